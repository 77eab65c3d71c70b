package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/policy"
	"github.com/shashiranjanraj/cafe/app/repositories"
	"github.com/shashiranjanraj/cafe/pkg/metrics"
)

const (
	FormatXLSX = "xlsx"
	FormatDoc  = "doc"
	FormatCSV  = "csv"

	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeDoc  = "application/msword; charset=utf-8"
	contentTypeCSV  = "text/csv; charset=utf-8"

	exportRowLimit = 50000
)

// Report is a generated file ready to send or store.
type Report struct {
	Filename    string
	ContentType string
	Body        []byte
}

// OrdersReportOptions select and shape the staff orders report.
type OrdersReportOptions struct {
	Format         string
	Status         models.Status
	Search         string
	IncludeItems   bool
	IncludeSummary bool
}

// table is one sheet or one document section.
type table struct {
	Title   string
	Headers []string
	Rows    [][]interface{}
}

type ExportService struct {
	orders *repositories.OrderRepository
	items  *repositories.OrderItemRepository
	now    func() time.Time
}

func NewExportService(db *gorm.DB) *ExportService {
	return &ExportService{
		orders: repositories.NewOrderRepository(db),
		items:  repositories.NewOrderItemRepository(db),
		now:    time.Now,
	}
}

// OrdersReport builds the staff report of orders, optionally with their
// lines and a revenue summary.
func (s *ExportService) OrdersReport(ctx context.Context, req policy.Requester, opts OrdersReportOptions) (Report, error) {
	if err := allow(req, policy.ActionExport, policy.KindOrder, nil); err != nil {
		return Report{}, err
	}
	if opts.Format != FormatXLSX && opts.Format != FormatDoc {
		return Report{}, invalid("format", "The format must be xlsx or doc.")
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return Report{}, invalid("status", "The selected status is invalid.")
	}

	orders, err := s.orders.List(ctx, repositories.OrderScope{Status: opts.Status, Search: opts.Search}, true)
	if err != nil {
		return Report{}, fmt.Errorf("export: load orders: %w", err)
	}
	tables := ordersTables(orders, opts)

	base := "orders_" + s.now().Format("2006-01-02_15-04")
	var rep Report
	switch opts.Format {
	case FormatXLSX:
		body, err := renderXLSX(tables)
		if err != nil {
			return Report{}, err
		}
		rep = Report{Filename: base + ".xlsx", ContentType: contentTypeXLSX, Body: body}
	case FormatDoc:
		body, err := renderDoc("Orders export", tables)
		if err != nil {
			return Report{}, err
		}
		rep = Report{Filename: base + ".doc", ContentType: contentTypeDoc, Body: body}
	}
	metrics.ExportsGenerated.WithLabelValues(opts.Format).Inc()
	return rep, nil
}

func ordersTables(orders []models.Order, opts OrdersReportOptions) []table {
	if len(orders) > exportRowLimit {
		orders = orders[:exportRowLimit]
	}
	ordersT := table{Title: "Orders", Headers: []string{"ID", "Customer", "Status", "Created", "Items", "Total"}}
	itemsT := table{Title: "OrderItems", Headers: []string{"ID", "Order ID", "Item", "Qty", "Unit price", "Line total"}}
	revenue := decimal.Zero

	for _, o := range orders {
		total := OrderTotal(o)
		revenue = revenue.Add(total)
		ordersT.Rows = append(ordersT.Rows, []interface{}{
			o.ID, customerName(o), o.Status.Label(), o.CreatedAt.Format("2006-01-02 15:04"), len(o.Items), total.StringFixed(2),
		})
		if !opts.IncludeItems {
			continue
		}
		for _, it := range o.Items {
			name, price := "", decimal.Zero
			if it.MenuItem != nil {
				name, price = it.MenuItem.Name, it.MenuItem.Price
			}
			itemsT.Rows = append(itemsT.Rows, []interface{}{
				it.ID, o.ID, name, it.Quantity, price.StringFixed(2), LineTotal(it).StringFixed(2),
			})
		}
	}

	out := []table{ordersT}
	if opts.IncludeItems {
		out = append(out, itemsT)
	}
	if opts.IncludeSummary {
		avg := decimal.Zero
		if n := len(ordersT.Rows); n > 0 {
			avg = revenue.Div(decimal.NewFromInt(int64(n)))
		}
		out = append(out, table{
			Title:   "Summary",
			Headers: []string{"Metric", "Value"},
			Rows: [][]interface{}{
				{"Orders", len(ordersT.Rows)},
				{"Revenue", revenue.StringFixed(2)},
				{"Average check", avg.StringFixed(2)},
			},
		})
	}
	return out
}

func customerName(o models.Order) string {
	if o.Customer == nil || o.Customer.Name == "" {
		return "-"
	}
	return o.Customer.Name
}

// ItemsReport exports order lines visible to req as CSV ("excel") or a
// Word-compatible HTML document ("word").
func (s *ExportService) ItemsReport(ctx context.Context, req policy.Requester, kind string, orderID uint) (Report, error) {
	if err := allow(req, policy.ActionList, policy.KindOrderItem, nil); err != nil {
		return Report{}, err
	}
	if kind != "excel" && kind != "word" {
		return Report{}, invalid("type", "Unknown export type.")
	}
	items, err := s.items.List(ctx, repositories.ItemScope{OwnerID: ownerScope(req), OrderID: orderID})
	if err != nil {
		return Report{}, fmt.Errorf("export: load items: %w", err)
	}
	if len(items) > exportRowLimit {
		items = items[:exportRowLimit]
	}

	t := table{Title: "Order items", Headers: []string{"ID", "Order", "Menu item", "Quantity"}}
	for _, it := range items {
		name := "#" + strconv.FormatUint(uint64(it.MenuItemID), 10)
		if it.MenuItem != nil && it.MenuItem.Name != "" {
			name = it.MenuItem.Name
		}
		t.Rows = append(t.Rows, []interface{}{it.ID, "#" + strconv.FormatUint(uint64(it.OrderID), 10), name, it.Quantity})
	}

	if kind == "word" {
		body, err := renderDoc("Order items", []table{t})
		if err != nil {
			return Report{}, err
		}
		metrics.ExportsGenerated.WithLabelValues(FormatDoc).Inc()
		return Report{Filename: "order_items.doc", ContentType: contentTypeDoc, Body: body}, nil
	}
	body, err := renderCSV(t)
	if err != nil {
		return Report{}, err
	}
	metrics.ExportsGenerated.WithLabelValues(FormatCSV).Inc()
	return Report{Filename: "order_items.csv", ContentType: contentTypeCSV, Body: body}, nil
}

func renderXLSX(tables []table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("export: xlsx style: %w", err)
	}
	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Title); err != nil {
				return nil, fmt.Errorf("export: xlsx sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.Title); err != nil {
			return nil, fmt.Errorf("export: xlsx sheet: %w", err)
		}

		headers := make([]interface{}, len(t.Headers))
		widths := make([]int, len(t.Headers))
		for j, h := range t.Headers {
			headers[j] = h
			widths[j] = len(h)
		}
		if err := f.SetSheetRow(t.Title, "A1", &headers); err != nil {
			return nil, fmt.Errorf("export: xlsx header: %w", err)
		}
		if err := f.SetRowStyle(t.Title, 1, 1, header); err != nil {
			return nil, fmt.Errorf("export: xlsx header style: %w", err)
		}
		for r, row := range t.Rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(t.Title, cell, &row); err != nil {
				return nil, fmt.Errorf("export: xlsx row: %w", err)
			}
			for j, v := range row {
				if j < len(widths) {
					if n := len(fmt.Sprint(v)); n > widths[j] {
						widths[j] = n
					}
				}
			}
		}
		for j, w := range widths {
			col, _ := excelize.ColumnNumberToName(j + 1)
			if err := f.SetColWidth(t.Title, col, col, float64(min(w+2, 60))); err != nil {
				return nil, fmt.Errorf("export: xlsx width: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// renderCSV writes a UTF-8 BOM and a sep= hint so spreadsheet apps pick the
// right encoding and delimiter.
func renderCSV(t table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeffsep=;\r\n")
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	w.UseCRLF = true

	if err := w.Write(t.Headers); err != nil {
		return nil, fmt.Errorf("export: csv: %w", err)
	}
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = fmt.Sprint(v)
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("export: csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: csv: %w", err)
	}
	return buf.Bytes(), nil
}

var docTemplate = template.Must(template.New("doc").Parse(`<html><head><meta charset="utf-8"><title>{{.Title}}</title></head><body>
<h2>{{.Title}}</h2>
{{range .Tables}}<h3>{{.Title}}</h3>
<table border="1" cellspacing="0" cellpadding="4">
<tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
{{end}}</body></html>`))

// renderDoc produces HTML that Word opens as a document.
func renderDoc(title string, tables []table) ([]byte, error) {
	var buf bytes.Buffer
	err := docTemplate.Execute(&buf, struct {
		Title  string
		Tables []table
	}{title, tables})
	if err != nil {
		return nil, fmt.Errorf("export: doc: %w", err)
	}
	return buf.Bytes(), nil
}
