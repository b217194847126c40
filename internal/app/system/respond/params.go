// internal/app/system/respond/params.go
package respond

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PathID parses the chi URL parameter name as an ObjectID.
// A malformed id is InvalidIdentifier, which clients see as 404.
func PathID(r *http.Request, name, what string) (primitive.ObjectID, error) {
	return ParseID(chi.URLParam(r, name), what)
}

// ParseID parses a hex ObjectID.
func ParseID(hex, what string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.InvalidID(what)
	}
	return oid, nil
}

// Page reads page/limit query parameters. page is 1-based; limit is clamped
// to [1, maxLimit] and defaults to def.
func Page(r *http.Request, def, maxLimit int) (page, limit int) {
	page, limit = 1, def
	if n, err := strconv.Atoi(query.Get(r, "page")); err == nil && n > 0 {
		page = n
	}
	if n, err := strconv.Atoi(query.Get(r, "limit")); err == nil && n > 0 {
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// Skip returns the number of documents to skip for page and limit.
func Skip(page, limit int) int64 { return int64((page - 1) * limit) }

// Paged is the envelope for paginated lists.
type Paged[T any] struct {
	Data  []T   `json:"data"`
	Count int   `json:"count"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int64 `json:"pages"`
}

// NewPaged builds a Paged from one page of items.
func NewPaged[T any](items []T, total int64, page, limit int) Paged[T] {
	if items == nil {
		items = []T{}
	}
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Paged[T]{Data: items, Count: len(items), Total: total, Page: page, Pages: pages}
}
