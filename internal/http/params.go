package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type pageParams struct {
	Offset *int
	Limit  *int
}

func parsePage(query url.Values) (pageParams, error) {
	var page pageParams
	offset, err := optionalInt(query, "offset", 0, 0)
	if err != nil {
		return page, err
	}
	limit, err := optionalInt(query, "limit", 0, 0)
	if err != nil {
		return page, err
	}
	page.Offset, page.Limit = offset, limit
	return page, nil
}

// optionalInt parses query[key] when present. It must be >= minVal and,
// when maxVal > 0, <= maxVal.
func optionalInt(query url.Values, key string, minVal, maxVal int) (*int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < minVal || (maxVal > 0 && v > maxVal) {
		return nil, fmt.Errorf("invalid %s value", key)
	}
	return &v, nil
}

func movieIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "movieID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id")
	}
	return id, nil
}
