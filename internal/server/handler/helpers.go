// Package handler implements the dashboard's HTTP endpoints.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/view"
)

// View is the dashboard state the handlers read.
type View interface {
	Snapshot() []domain.ArbitrageOpportunity
	Capacity() int
}

// StatusFunc reports the current feed status.
type StatusFunc func() domain.FeedStatus

// Pinger checks an optional dependency for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

var _ View = (*view.View)(nil)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseLimit reads the limit query parameter. Missing values select max;
// values above max are clamped. Malformed or non-positive values are errors.
func parseLimit(r *http.Request, max int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return max, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, strconv.ErrSyntax
	}
	if n > max {
		n = max
	}
	return n, nil
}
