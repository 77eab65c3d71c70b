package services_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/pkg/event"
)

type exportFixture struct {
	exports    *services.ExportService
	alice      models.User
	bob        models.User
	staffer    models.User
	aliceOrder uint
}

func newExportFixture(t *testing.T) exportFixture {
	t.Helper()
	db := newDB(t)
	cart := services.NewCartService(db, event.New())
	f := exportFixture{
		exports: services.NewExportService(db),
		alice:   createUser(t, db, "alice", models.RoleRegular),
		bob:     createUser(t, db, "bob", models.RoleRegular),
		staffer: createUser(t, db, "staff", models.RoleElevated),
	}
	espresso := createMenuItem(t, db, "Espresso", "150.00")
	water := createMenuItem(t, db, "Sparkling water", "99.50")

	line, err := cart.Add(t.Context(), regular(f.alice), services.AddToCart{MenuItemID: espresso.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = cart.Add(t.Context(), regular(f.alice), services.AddToCart{MenuItemID: water.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = cart.Add(t.Context(), regular(f.bob), services.AddToCart{MenuItemID: water.ID, Quantity: 3})
	require.NoError(t, err)
	f.aliceOrder = line.OrderID
	return f
}

func TestOrdersReportIsStaffOnly(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.exports.OrdersReport(t.Context(), regular(f.alice), services.OrdersReportOptions{Format: services.FormatXLSX})
	assert.ErrorIs(t, err, services.ErrPermissionDenied)

	// Exports are reads; staff need no second factor.
	_, err = f.exports.OrdersReport(t.Context(), staff(f.staffer, false), services.OrdersReportOptions{Format: services.FormatXLSX})
	assert.NoError(t, err)

	_, err = f.exports.OrdersReport(t.Context(), staff(f.staffer, false), services.OrdersReportOptions{Format: "pdf"})
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestOrdersReportWorkbook(t *testing.T) {
	f := newExportFixture(t)

	rep, err := f.exports.OrdersReport(t.Context(), staff(f.staffer, false), services.OrdersReportOptions{
		Format: services.FormatXLSX, IncludeItems: true, IncludeSummary: true,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rep.Filename, "orders_"))
	assert.True(t, strings.HasSuffix(rep.Filename, ".xlsx"))
	assert.Contains(t, rep.ContentType, "spreadsheetml")

	book, err := excelize.OpenReader(bytes.NewReader(rep.Body))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{"Orders", "OrderItems", "Summary"}, book.GetSheetList())

	orders, err := book.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, []string{"ID", "Customer", "Status", "Created", "Items", "Total"}, orders[0])

	items, err := book.GetRows("OrderItems")
	require.NoError(t, err)
	assert.Len(t, items, 4)

	summary, err := book.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, summary, 4)
	assert.Equal(t, []string{"Orders", "2"}, summary[1])
	assert.Equal(t, []string{"Revenue", "698.00"}, summary[2])
	assert.Equal(t, []string{"Average check", "349.00"}, summary[3])
}

func TestOrdersReportWithoutExtrasHasOneSheet(t *testing.T) {
	f := newExportFixture(t)

	rep, err := f.exports.OrdersReport(t.Context(), staff(f.staffer, false), services.OrdersReportOptions{Format: services.FormatXLSX})
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(rep.Body))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{"Orders"}, book.GetSheetList())
}

func TestOrdersReportDocument(t *testing.T) {
	f := newExportFixture(t)

	rep, err := f.exports.OrdersReport(t.Context(), staff(f.staffer, false), services.OrdersReportOptions{
		Format: services.FormatDoc, Status: models.StatusNew, IncludeSummary: true,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(rep.Filename, ".doc"))
	body := string(rep.Body)
	assert.Contains(t, body, "<h3>Orders</h3>")
	assert.Contains(t, body, "<h3>Summary</h3>")
	assert.Contains(t, body, "<td>New</td>")
	assert.NotContains(t, body, "<h3>OrderItems</h3>")
}

func TestItemsReportCSVIsScoped(t *testing.T) {
	f := newExportFixture(t)

	rep, err := f.exports.ItemsReport(t.Context(), regular(f.alice), "excel", 0)
	require.NoError(t, err)
	assert.Equal(t, "order_items.csv", rep.Filename)

	body := string(rep.Body)
	require.True(t, strings.HasPrefix(body, "\ufeffsep=;\r\nID;Order;Menu item;Quantity\r\n"))
	lines := strings.Split(strings.TrimSuffix(body, "\r\n"), "\r\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[2], ";#"+itoa(f.aliceOrder)+";Espresso;2"), lines[2])
	assert.NotContains(t, body, ";3\r\n", "bob's line is out of scope")

	all, err := f.exports.ItemsReport(t.Context(), staff(f.staffer, false), "excel", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(all.Body), "\r\n"), "sep, header and three lines")
}

func TestItemsReportWordAndUnknownType(t *testing.T) {
	f := newExportFixture(t)

	rep, err := f.exports.ItemsReport(t.Context(), regular(f.alice), "word", f.aliceOrder)
	require.NoError(t, err)
	assert.Equal(t, "order_items.doc", rep.Filename)
	assert.Contains(t, string(rep.Body), "<td>Sparkling water</td>")

	_, err = f.exports.ItemsReport(t.Context(), regular(f.alice), "pdf", 0)
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)
}
