package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxRequestBodySize = 1 << 20 // 1MB

// DecodeJSON decodes JSON request body into the provided struct with size limit
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	// Limit request body size to prevent DoS attacks
	limitedReader := io.LimitReader(r.Body, maxRequestBodySize)

	if err := json.NewDecoder(limitedReader).Decode(v); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// GetUUIDParam extracts a UUID parameter from the URL
func GetUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	param := chi.URLParam(r, key)
	if param == "" {
		return uuid.Nil, fmt.Errorf("missing parameter: %s", key)
	}

	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID: %w", err)
	}

	return id, nil
}

// GetUUIDQuery extracts an optional UUID query parameter. Returns nil
// when the parameter is absent.
func GetUUIDQuery(r *http.Request, key string) (*uuid.UUID, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in %s: %w", key, err)
	}
	return &id, nil
}

// GetUUIDListQuery extracts a repeatable UUID query parameter. Both
// repeated keys and comma-separated values are accepted.
func GetUUIDListQuery(r *http.Request, key string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, fmt.Errorf("invalid UUID in %s: %w", key, err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GetIntListQuery extracts a repeatable integer query parameter
func GetIntListQuery(r *http.Request, key string) ([]int, error) {
	var values []int
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid integer in %s: %w", key, err)
			}
			values = append(values, v)
		}
	}
	return values, nil
}

// GetIntQuery extracts an integer query parameter with a default value
func GetIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// GetPaginationParams extracts and validates pagination parameters
func GetPaginationParams(r *http.Request) (limit, offset int) {
	limit = GetIntQuery(r, "limit", 20)
	offset = GetIntQuery(r, "offset", 0)

	// Validate and clamp values
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
