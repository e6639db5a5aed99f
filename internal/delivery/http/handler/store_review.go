package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/storefront-plugins/product-reviews/internal/delivery/http/middleware"
	"github.com/storefront-plugins/product-reviews/internal/delivery/http/request"
	"github.com/storefront-plugins/product-reviews/internal/delivery/http/response"
	"github.com/storefront-plugins/product-reviews/internal/domain"
	"github.com/storefront-plugins/product-reviews/internal/pkg/logger"
)

// ReviewService is the review usecase surface the handlers depend on
type ReviewService interface {
	List(ctx context.Context, filter domain.ReviewFilter, limit, offset int) ([]*domain.Review, int, error)
	Stats(ctx context.Context, productIDs []uuid.UUID) ([]*domain.ReviewStats, error)
	RetrieveByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.Review, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	Create(ctx context.Context, input *domain.CreateReviewInput) (*domain.Review, error)
	Update(ctx context.Context, input *domain.UpdateReviewInput) (*domain.Review, error)
	UpdateReply(ctx context.Context, input *domain.UpdateReplyInput) (*domain.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// StoreReviewHandler handles storefront review requests
type StoreReviewHandler struct {
	service ReviewService
	orders  domain.OrderLookup
	logger  *logger.Logger
}

// NewStoreReviewHandler creates a new storefront review handler
func NewStoreReviewHandler(service ReviewService, orders domain.OrderLookup, log *logger.Logger) *StoreReviewHandler {
	return &StoreReviewHandler{
		service: service,
		orders:  orders,
		logger:  log,
	}
}

// CreateReviewRequest represents the request body for creating a review
type CreateReviewRequest struct {
	ProductID        string   `json:"product_id"`
	ProductVariantID string   `json:"product_variant_id,omitempty"`
	OrderID          string   `json:"order_id"`
	Rating           int      `json:"rating"`
	Content          string   `json:"content"`
	Images           []string `json:"images,omitempty"`
}

// UpdateReviewRequest represents the request body for updating a review
type UpdateReviewRequest struct {
	Rating     int      `json:"rating"`
	Content    string   `json:"content"`
	Images     []string `json:"images,omitempty"`
	ImagesKeep []string `json:"images_keep,omitempty"`
}

// List handles GET /store/product-reviews
// @Summary List product reviews
// @Description Get a paginated list of reviews. Filters: id, product_id, product_variant_id, customer_id, rating, order_id.
// @Tags Store
// @Produce json
// @Param product_id query string false "Product ID filter (repeatable)"
// @Param order_id query string false "Order ID filter"
// @Param rating query int false "Rating filter (repeatable)"
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} map[string]interface{} "Paginated list of reviews"
// @Failure 400 {object} map[string]string "Invalid filter"
// @Router /store/product-reviews [get]
func (h *StoreReviewHandler) List(w http.ResponseWriter, r *http.Request) {
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

// Stats handles GET /store/product-reviews/stats
// @Summary Get product review statistics
// @Description Get average rating, review count and a per-rating histogram for the requested products.
// @Tags Store
// @Produce json
// @Param product_id query string true "Product ID (repeatable)"
// @Success 200 {object} map[string]interface{} "Per-product statistics"
// @Failure 400 {object} map[string]string "Missing product_id"
// @Router /store/product-reviews/stats [get]
func (h *StoreReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
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

// Create handles POST /store/product-reviews
// @Summary Create a review
// @Description Create a review for a purchased product. The order must belong to the authenticated customer and contain the product.
// @Tags Store
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param review body CreateReviewRequest true "Review details"
// @Success 201 {object} map[string]interface{} "Review created successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Purchase could not be verified"
// @Router /store/product-reviews [post]
func (h *StoreReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Missing customer identity")
		return
	}

	var req CreateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var variantID *uuid.UUID
	if req.ProductVariantID != "" {
		id, err := uuid.Parse(req.ProductVariantID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid product variant ID")
			return
		}
		variantID = &id
	}

	// Verified purchase check: the order must belong to this customer
	// and contain the reviewed product
	owns, err := h.orders.CustomerOwnsProduct(r.Context(), customerID, orderID, productID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if !owns {
		response.Error(w, http.StatusUnauthorized, "Purchase could not be verified for this product")
		return
	}

	input := &domain.CreateReviewInput{
		ProductID:        productID,
		ProductVariantID: variantID,
		CustomerID:       customerID,
		OrderID:          orderID,
		Rating:           req.Rating,
		Content:          req.Content,
		Images:           req.Images,
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, created)
}

// Update handles POST /store/product-reviews/{id}
// @Summary Update an own review
// @Description Update rating, content and images of a review owned by the authenticated customer.
// @Tags Store
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID (UUID)"
// @Param review body UpdateReviewRequest true "Updated review details"
// @Success 200 {object} map[string]interface{} "Review updated successfully"
// @Failure 401 {object} map[string]string "Review belongs to another customer"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /store/product-reviews/{id} [post]
func (h *StoreReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Missing customer identity")
		return
	}

	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var req UpdateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	existing, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if existing.CustomerID != customerID {
		response.Error(w, http.StatusUnauthorized, "Review belongs to another customer")
		return
	}

	keep := make([]uuid.UUID, 0, len(req.ImagesKeep))
	for _, raw := range req.ImagesKeep {
		imageID, err := uuid.Parse(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid image ID in images_keep")
			return
		}
		keep = append(keep, imageID)
	}

	input := &domain.UpdateReviewInput{
		ID:         id,
		Rating:     req.Rating,
		Content:    req.Content,
		Images:     req.Images,
		ImagesKeep: keep,
	}

	updated, err := h.service.Update(r.Context(), input)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, updated)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *StoreReviewHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Review not found")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
	default:
		h.logger.Error("Internal error in store review handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

// customerFromContext returns the authenticated customer's id
func customerFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := claims.ActorUUID()
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
