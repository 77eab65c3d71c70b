package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/pkg/workerpool"
)

// ExportController renders reports on a bounded worker pool so a burst of
// exports cannot starve request handling.
type ExportController struct {
	exports *services.ExportService
	pool    *workerpool.Pool
	trust   TrustChecker
}

func NewExportController(exports *services.ExportService, pool *workerpool.Pool, trust TrustChecker) *ExportController {
	return &ExportController{exports: exports, pool: pool, trust: trust}
}

// Orders serves GET /api/orders/export.
func (c *ExportController) Orders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(q.Get("format")))
	if format == "" {
		format = services.FormatXLSX
	}
	opts := services.OrdersReportOptions{
		Format:         format,
		Status:         models.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Search:         strings.TrimSpace(q.Get("search")),
		IncludeItems:   queryBool(r, "include_items", false),
		IncludeSummary: queryBool(r, "include_summary", false),
	}
	req := requesterFrom(r, c.trust)

	c.render(w, r, func(ctx context.Context) (services.Report, error) {
		return c.exports.OrdersReport(ctx, req, opts)
	})
}

// Items serves GET /api/order-items/export?type=excel|word.
func (c *ExportController) Items(w http.ResponseWriter, r *http.Request) {
	orderID, ok := queryUint(w, r, "order_id")
	if !ok {
		return
	}
	kind := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))
	if kind == "" {
		kind = "excel"
	}
	req := requesterFrom(r, c.trust)

	c.render(w, r, func(ctx context.Context) (services.Report, error) {
		return c.exports.ItemsReport(ctx, req, kind, orderID)
	})
}

func (c *ExportController) render(w http.ResponseWriter, r *http.Request, build func(context.Context) (services.Report, error)) {
	var rep services.Report
	err := c.pool.Do(r.Context(), func() error {
		var err error
		rep, err = build(r.Context())
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", rep.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rep.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rep.Body)
}
