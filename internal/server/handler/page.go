package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/table"
)

//go:embed templates/index.html
var pageFS embed.FS

var indexPage = template.Must(template.ParseFS(pageFS, "templates/index.html"))

// PageHandler serves the dashboard page and its table fragment.
type PageHandler struct {
	view   View
	status StatusFunc
	logger *slog.Logger
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(v View, status StatusFunc, logger *slog.Logger) *PageHandler {
	return &PageHandler{view: v, status: status, logger: logger.With(slog.String("handler", "page"))}
}

type pageData struct {
	Title  string
	Status domain.FeedStatus
	Badge  string
	Table  template.HTML
}

// Index renders the full dashboard.
// GET /{$}
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	var tbl bytes.Buffer
	if err := table.RenderHTML(&tbl, h.view.Snapshot()); err != nil {
		h.logger.Error("render table", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	status := h.status()
	data := pageData{
		Title:  "Cross-Chain Arbitrage Opportunities",
		Status: status,
		Badge:  badgeLabel(status.State),
		// RenderHTML output is escaped by html/template.
		Table: template.HTML(tbl.String()),
	}

	var page bytes.Buffer
	if err := indexPage.Execute(&page, data); err != nil {
		h.logger.Error("render page", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page.Bytes())
}

// Fragment renders only the table, for live refreshes.
// GET /fragment/table
func (h *PageHandler) Fragment(w http.ResponseWriter, r *http.Request) {
	var tbl bytes.Buffer
	if err := table.RenderHTML(&tbl, h.view.Snapshot()); err != nil {
		h.logger.Error("render table", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(tbl.Bytes())
}

// badgeLabel is the status badge text. Only Connected reads as connected.
func badgeLabel(s domain.ConnectionState) string {
	switch s {
	case domain.StateConnected:
		return "Connected"
	case domain.StateConnecting:
		return "Connecting"
	case domain.StateFailed:
		return "Failed"
	default:
		return "Disconnected"
	}
}
