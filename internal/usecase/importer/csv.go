package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Required CSV columns. ID, PRODUCT_VARIANT_ID and IMAGE<n> columns are
// optional.
var requiredColumns = []string{"PRODUCT_ID", "CUSTOMER_ID", "ORDER_ID", "RATING", "CONTENT"}

var imageColumnPattern = regexp.MustCompile(`^IMAGE\d+$`)

// ImportRow is one parsed review line from the source CSV
type ImportRow struct {
	ID               *uuid.UUID `json:"id,omitempty"`
	ProductID        uuid.UUID  `json:"product_id"`
	ProductVariantID *uuid.UUID `json:"product_variant_id,omitempty"`
	CustomerID       uuid.UUID  `json:"customer_id"`
	OrderID          uuid.UUID  `json:"order_id"`
	Rating           int        `json:"rating"`
	Content          string     `json:"content"`
	Images           []string   `json:"images,omitempty"`
}

// IdentityKey identifies a row for duplicate suppression: the review id
// when present, otherwise the (product, customer, order) natural key.
func (r *ImportRow) IdentityKey() string {
	if r.ID != nil {
		return r.ID.String()
	}
	return fmt.Sprintf("%s|%s|%s", r.ProductID, r.CustomerID, r.OrderID)
}

type columnLayout struct {
	id               int
	productID        int
	productVariantID int
	customerID       int
	orderID          int
	rating           int
	content          int
	images           []int
}

// ParseRows stream-parses a review CSV. The first record is the header;
// IMAGE1, IMAGE2, ... columns are folded into each row's image URL list
// in numeric order. Errors name the offending row.
func ParseRows(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	layout, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []ImportRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", line, err)
		}

		row, err := parseRow(layout, record)
		if err != nil {
			return nil, fmt.Errorf("invalid CSV row %d: %w", line, err)
		}
		rows = append(rows, *row)
	}

	return rows, nil
}

func resolveColumns(header []string) (*columnLayout, error) {
	layout := &columnLayout{
		id:               -1,
		productID:        -1,
		productVariantID: -1,
		customerID:       -1,
		orderID:          -1,
		rating:           -1,
		content:          -1,
	}

	type imageCol struct {
		order int
		index int
	}
	var imageCols []imageCol

	for i, name := range header {
		name = strings.ToUpper(strings.TrimSpace(name))
		switch name {
		case "ID":
			layout.id = i
		case "PRODUCT_ID":
			layout.productID = i
		case "PRODUCT_VARIANT_ID":
			layout.productVariantID = i
		case "CUSTOMER_ID":
			layout.customerID = i
		case "ORDER_ID":
			layout.orderID = i
		case "RATING":
			layout.rating = i
		case "CONTENT":
			layout.content = i
		default:
			if imageColumnPattern.MatchString(name) {
				order, _ := strconv.Atoi(strings.TrimPrefix(name, "IMAGE"))
				imageCols = append(imageCols, imageCol{order: order, index: i})
			}
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if !columnPresent(layout, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required CSV columns: %s", strings.Join(missing, ", "))
	}

	sort.Slice(imageCols, func(i, j int) bool { return imageCols[i].order < imageCols[j].order })
	for _, c := range imageCols {
		layout.images = append(layout.images, c.index)
	}

	return layout, nil
}

func columnPresent(layout *columnLayout, name string) bool {
	switch name {
	case "PRODUCT_ID":
		return layout.productID >= 0
	case "CUSTOMER_ID":
		return layout.customerID >= 0
	case "ORDER_ID":
		return layout.orderID >= 0
	case "RATING":
		return layout.rating >= 0
	case "CONTENT":
		return layout.content >= 0
	}
	return false
}

func parseRow(layout *columnLayout, record []string) (*ImportRow, error) {
	row := &ImportRow{}

	if layout.id >= 0 {
		if v := field(record, layout.id); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("invalid ID %q: %w", v, err)
			}
			row.ID = &id
		}
	}

	productID, err := uuid.Parse(field(record, layout.productID))
	if err != nil {
		return nil, fmt.Errorf("invalid PRODUCT_ID: %w", err)
	}
	row.ProductID = productID

	if layout.productVariantID >= 0 {
		if v := field(record, layout.productVariantID); v != "" {
			variantID, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("invalid PRODUCT_VARIANT_ID %q: %w", v, err)
			}
			row.ProductVariantID = &variantID
		}
	}

	customerID, err := uuid.Parse(field(record, layout.customerID))
	if err != nil {
		return nil, fmt.Errorf("invalid CUSTOMER_ID: %w", err)
	}
	row.CustomerID = customerID

	orderID, err := uuid.Parse(field(record, layout.orderID))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_ID: %w", err)
	}
	row.OrderID = orderID

	rating, err := strconv.Atoi(field(record, layout.rating))
	if err != nil {
		return nil, fmt.Errorf("invalid RATING %q: %w", field(record, layout.rating), err)
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("RATING %d out of range 1-5", rating)
	}
	row.Rating = rating

	row.Content = field(record, layout.content)
	if row.Content == "" {
		return nil, fmt.Errorf("empty CONTENT")
	}

	for _, idx := range layout.images {
		if v := field(record, idx); v != "" {
			row.Images = append(row.Images, v)
		}
	}

	return row, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
