package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/storefront-plugins/product-reviews/internal/delivery/http/request"
	"github.com/storefront-plugins/product-reviews/internal/delivery/http/response"
	"github.com/storefront-plugins/product-reviews/internal/domain"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

// ImportService is the batch import surface the admin handler depends on
type ImportService interface {
	CreateJob(ctx context.Context, fileKey string) (*domain.BatchJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (*domain.BatchJob, error)
}

// AdminReviewHandler handles merchant-side review requests
type AdminReviewHandler struct {
	service ReviewService
	imports ImportService
	orders  domain.OrderLookup
	logger  *logger.Logger
}

// NewAdminReviewHandler creates a new admin review handler
func NewAdminReviewHandler(service ReviewService, imports ImportService, orders domain.OrderLookup, log *logger.Logger) *AdminReviewHandler {
	return &AdminReviewHandler{
		service: service,
		imports: imports,
		orders:  orders,
		logger:  log,
	}
}

// ReplyRequest represents the request body for a merchant reply
type ReplyRequest struct {
	Reply string `json:"reply"`
}

// CreateImportRequest represents the request body for starting an import
type CreateImportRequest struct {
	FileKey string `json:"file_key"`
}

// List handles GET /admin/product-reviews
// @Summary List reviews (admin)
// @Description Get a paginated list of reviews with the same filters as the store listing.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Paginated list of reviews"
// @Router /admin/product-reviews [get]
func (h *AdminReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := buildReviewFilter(r, h.orders)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, offset := request.GetPaginationParams(r)

	reviews, total, err := h.service.List(r.Context(), *filter, limit, offset)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Paginated(w, reviews, total, limit, offset)
}

// Stats handles GET /admin/product-reviews/stats
func (h *AdminReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	productIDs, err := request.GetUUIDListQuery(r, "product_id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(productIDs) == 0 {
		response.Error(w, http.StatusBadRequest, "At least one product_id is required")
		return
	}

	stats, err := h.service.Stats(r.Context(), productIDs)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, stats)
}

// ByOrder handles GET /admin/product-reviews/by-order
// @Summary Get reviews for an order
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param order_id query string true "Order ID (UUID)"
// @Success 200 {object} map[string]interface{} "Reviews for the order"
// @Router /admin/product-reviews/by-order [get]
func (h *AdminReviewHandler) ByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := request.GetUUIDQuery(r, "order_id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if orderID == nil {
		response.Error(w, http.StatusBadRequest, "order_id is required")
		return
	}

	reviews, err := h.service.RetrieveByOrder(r.Context(), *orderID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, reviews)
}

// Reply handles POST /admin/product-reviews/{id}
// @Summary Set a merchant reply
// @Description Set or update the merchant reply on a review. Rating, content and images are untouched.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Param reply body ReplyRequest true "Reply text"
// @Success 200 {object} map[string]interface{} "Review with reply"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /admin/product-reviews/{id} [post]
func (h *AdminReviewHandler) Reply(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var req ReplyRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	review, err := h.service.UpdateReply(r.Context(), &domain.UpdateReplyInput{
		ID:    id,
		Reply: req.Reply,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, review)
}

// Delete handles DELETE /admin/product-reviews/{id}
// @Summary Delete a review
// @Description Soft delete a review. The review disappears from listings and statistics.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Success 204 "Review deleted successfully"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /admin/product-reviews/{id} [delete]
func (h *AdminReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// CreateImport handles POST /admin/product-reviews/import
// @Summary Start a CSV review import
// @Description Create an asynchronous batch import job for an uploaded CSV file key. The worker processes it in the background.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param import body CreateImportRequest true "Uploaded CSV file key"
// @Success 202 {object} map[string]interface{} "Import job created"
// @Failure 400 {object} map[string]string "Missing file key"
// @Router /admin/product-reviews/import [post]
func (h *AdminReviewHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	var req CreateImportRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.imports.CreateJob(r.Context(), req.FileKey)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Accepted(w, job)
}

// GetImport handles GET /admin/product-reviews/import/{id}
// @Summary Get import job status
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Import job ID (UUID)"
// @Success 200 {object} map[string]interface{} "Import job status and result"
// @Failure 404 {object} map[string]string "Job not found"
// @Router /admin/product-reviews/import/{id} [get]
func (h *AdminReviewHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.imports.GetJob(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, job)
}

// buildReviewFilter assembles a review filter from query parameters. An
// order_id filter is resolved into the order's product and customer ids
// so order-scoped listings need no extra join.
func buildReviewFilter(r *http.Request, orders domain.OrderLookup) (*domain.ReviewFilter, error) {
	filter := &domain.ReviewFilter{}

	var err error
	if filter.IDs, err = request.GetUUIDListQuery(r, "id"); err != nil {
		return nil, err
	}
	if filter.ProductIDs, err = request.GetUUIDListQuery(r, "product_id"); err != nil {
		return nil, err
	}
	if filter.ProductVariantIDs, err = request.GetUUIDListQuery(r, "product_variant_id"); err != nil {
		return nil, err
	}
	if filter.CustomerIDs, err = request.GetUUIDListQuery(r, "customer_id"); err != nil {
		return nil, err
	}
	if filter.Ratings, err = request.GetIntListQuery(r, "rating"); err != nil {
		return nil, err
	}

	orderID, err := request.GetUUIDQuery(r, "order_id")
	if err != nil {
		return nil, err
	}
	if orderID != nil {
		summary, err := orders.GetOrderSummary(r.Context(), *orderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, errors.New("unknown order_id")
			}
			return nil, err
		}
		filter.ProductIDs = append(filter.ProductIDs, summary.ProductIDs...)
		filter.CustomerIDs = append(filter.CustomerIDs, summary.CustomerID)
	}

	return filter, nil
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *AdminReviewHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrConflict):
		response.Error(w, http.StatusConflict, "Conflicting state")
	default:
		h.logger.Error("Internal error in admin review handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
