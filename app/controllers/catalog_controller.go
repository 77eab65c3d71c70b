package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/repositories"
	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/pkg/response"
)

// maxImageBytes caps menu image uploads.
const maxImageBytes = 5 << 20

type CatalogController struct {
	catalog *services.CatalogService
	trust   TrustChecker
}

func NewCatalogController(catalog *services.CatalogService, trust TrustChecker) *CatalogController {
	return &CatalogController{catalog: catalog, trust: trust}
}

// ── Categories ────────────────────────────────────────────────────────────────

type categoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (c *CatalogController) Categories(w http.ResponseWriter, r *http.Request) {
	list, err := c.catalog.Categories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, list)
}

func (c *CatalogController) Category(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	cat, err := c.catalog.Category(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, cat)
}

func (c *CatalogController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryInput
	if !decode(w, r, &in) {
		return
	}
	cat, err := c.catalog.SaveCategory(r.Context(), requesterFrom(r, c.trust), 0, in.Name)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, cat)
}

func (c *CatalogController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in categoryInput
	if !decode(w, r, &in) {
		return
	}
	cat, err := c.catalog.SaveCategory(r.Context(), requesterFrom(r, c.trust), id, in.Name)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, cat)
}

func (c *CatalogController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := c.catalog.DeleteCategory(r.Context(), requesterFrom(r, c.trust), id); err != nil {
		fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// ── Menu ──────────────────────────────────────────────────────────────────────

type menuItemView struct {
	models.MenuItem
	ImageURL string `json:"image_url,omitempty"`
}

func (c *CatalogController) view(m models.MenuItem) menuItemView {
	return menuItemView{MenuItem: m, ImageURL: c.catalog.ImageURL(m.Image)}
}

type menuInput struct {
	Name       string           `json:"name"        validate:"required,max=200"`
	CategoryID *uint            `json:"category_id"`
	Price      *decimal.Decimal `json:"price"       validate:"required,money"`
}

func (in menuInput) service() services.MenuInput {
	return services.MenuInput{Name: in.Name, CategoryID: in.CategoryID, Price: *in.Price}
}

func (c *CatalogController) Menu(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := queryUint(w, r, "category_id")
	if !ok {
		return
	}
	items, err := c.catalog.Menu(r.Context(), repositories.MenuFilter{
		CategoryID: categoryID,
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]menuItemView, 0, len(items))
	for _, m := range items {
		out = append(out, c.view(m))
	}
	response.Success(w, out)
}

func (c *CatalogController) MenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	m, err := c.catalog.MenuItem(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, c.view(m))
}

func (c *CatalogController) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var in menuInput
	if !decode(w, r, &in) {
		return
	}
	m, err := c.catalog.SaveMenuItem(r.Context(), requesterFrom(r, c.trust), 0, in.service())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, c.view(m))
}

func (c *CatalogController) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in menuInput
	if !decode(w, r, &in) {
		return
	}
	m, err := c.catalog.SaveMenuItem(r.Context(), requesterFrom(r, c.trust), id, in.service())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, c.view(m))
}

func (c *CatalogController) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := c.catalog.DeleteMenuItem(r.Context(), requesterFrom(r, c.trust), id); err != nil {
		fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// UploadImage takes a multipart "image" field.
func (c *CatalogController) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		response.ValidationError(w, map[string]string{"image": "The image must be a file of at most 5 MB."})
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		response.ValidationError(w, map[string]string{"image": "The image field is required."})
		return
	}
	defer file.Close()

	m, err := c.catalog.SetImage(r.Context(), requesterFrom(r, c.trust), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, c.view(m))
}

func (c *CatalogController) MenuStats(w http.ResponseWriter, r *http.Request) {
	st, err := c.catalog.MenuStats(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, st)
}
