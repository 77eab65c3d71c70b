package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/policy"
	"github.com/shashiranjanraj/cafe/app/repositories"
	"github.com/shashiranjanraj/cafe/pkg/logger"
	"github.com/shashiranjanraj/cafe/pkg/storage"
)

// MenuInput is the writable part of a menu item.
type MenuInput struct {
	Name       string
	CategoryID *uint
	Price      decimal.Decimal
}

// PriceStats summarises menu prices.
type PriceStats struct {
	Count int64           `json:"count"`
	Avg   decimal.Decimal `json:"avg"`
	Min   decimal.Decimal `json:"min"`
	Max   decimal.Decimal `json:"max"`
}

type CatalogService struct {
	repo *repositories.CatalogRepository
	disk storage.Disk
}

func NewCatalogService(db *gorm.DB, disk storage.Disk) *CatalogService {
	return &CatalogService{repo: repositories.NewCatalogRepository(db), disk: disk}
}

// ── Categories ────────────────────────────────────────────────────────────────

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	out, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: categories: %w", err)
	}
	return out, nil
}

func (s *CatalogService) Category(ctx context.Context, id uint) (models.Category, error) {
	c, err := s.repo.Category(ctx, id)
	return c, notFound("catalog: category", err)
}

func (s *CatalogService) SaveCategory(ctx context.Context, req policy.Requester, id uint, name string) (models.Category, error) {
	if err := allow(req, writeAction(id), policy.KindCategory, nil); err != nil {
		return models.Category{}, err
	}
	c := models.Category{}
	if id != 0 {
		var err error
		if c, err = s.repo.Category(ctx, id); err != nil {
			return models.Category{}, notFound("catalog: category", err)
		}
	}
	c.Name = strings.TrimSpace(name)
	if err := s.repo.SaveCategory(ctx, &c); err != nil {
		return models.Category{}, fmt.Errorf("catalog: save category: %w", err)
	}
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, req policy.Requester, id uint) error {
	if err := allow(req, policy.ActionDelete, policy.KindCategory, nil); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return notFound("catalog: delete category", err)
	}
	logger.Audit(ctx, "category.deleted", "category_id", id, "user_id", req.UserID)
	return nil
}

// ── Menu ──────────────────────────────────────────────────────────────────────

func (s *CatalogService) Menu(ctx context.Context, f repositories.MenuFilter) ([]models.MenuItem, error) {
	out, err := s.repo.MenuItems(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("catalog: menu: %w", err)
	}
	return out, nil
}

func (s *CatalogService) MenuItem(ctx context.Context, id uint) (models.MenuItem, error) {
	m, err := s.repo.MenuItem(ctx, id)
	return m, notFound("catalog: menu item", err)
}

// SaveMenuItem creates (id 0) or updates a menu item.
func (s *CatalogService) SaveMenuItem(ctx context.Context, req policy.Requester, id uint, in MenuInput) (models.MenuItem, error) {
	if err := allow(req, writeAction(id), policy.KindMenuItem, nil); err != nil {
		return models.MenuItem{}, err
	}
	m := models.MenuItem{}
	if id != 0 {
		var err error
		if m, err = s.repo.MenuItem(ctx, id); err != nil {
			return models.MenuItem{}, notFound("catalog: menu item", err)
		}
	}
	if in.Price.IsNegative() {
		return models.MenuItem{}, invalid("price", "The price must not be negative.")
	}
	if in.CategoryID != nil {
		if _, err := s.repo.Category(ctx, *in.CategoryID); err != nil {
			if err = notFound("catalog: category", err); isNotFound(err) {
				return models.MenuItem{}, invalid("category_id", "The selected category is invalid.")
			}
			return models.MenuItem{}, err
		}
	}

	m.Name = strings.TrimSpace(in.Name)
	m.CategoryID = in.CategoryID
	m.Category = nil
	m.Price = in.Price.Round(2)
	if err := s.repo.SaveMenuItem(ctx, &m); err != nil {
		return models.MenuItem{}, fmt.Errorf("catalog: save menu item: %w", err)
	}
	return s.MenuItem(ctx, m.ID)
}

// DeleteMenuItem refuses while any order line references the item.
func (s *CatalogService) DeleteMenuItem(ctx context.Context, req policy.Requester, id uint) error {
	if err := allow(req, policy.ActionDelete, policy.KindMenuItem, nil); err != nil {
		return err
	}
	m, err := s.repo.MenuItem(ctx, id)
	if err != nil {
		return notFound("catalog: menu item", err)
	}
	refs, err := s.repo.MenuItemReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("catalog: count references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("catalog: menu item %d has %d order lines: %w", id, refs, ErrInUse)
	}
	if err := s.repo.DeleteMenuItem(ctx, id); err != nil {
		return notFound("catalog: delete menu item", err)
	}
	if m.Image != "" && s.disk != nil {
		if err := s.disk.Delete(ctx, m.Image); err != nil {
			logger.WithCtx(ctx).Warn("catalog: image cleanup failed", "key", m.Image, "error", err)
		}
	}
	logger.Audit(ctx, "menu_item.deleted", "menu_item_id", id, "user_id", req.UserID)
	return nil
}

var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// SetImage stores an uploaded image on the disk and links it to the item.
func (s *CatalogService) SetImage(ctx context.Context, req policy.Requester, id uint, contentType string, r io.Reader) (models.MenuItem, error) {
	if err := allow(req, policy.ActionUpdate, policy.KindMenuItem, nil); err != nil {
		return models.MenuItem{}, err
	}
	ext, ok := imageTypes[contentType]
	if !ok {
		return models.MenuItem{}, invalid("image", "The image must be a png, jpeg, webp or gif file.")
	}
	m, err := s.repo.MenuItem(ctx, id)
	if err != nil {
		return models.MenuItem{}, notFound("catalog: menu item", err)
	}

	key := path.Join("menu", fmt.Sprintf("%d%s", m.ID, ext))
	if err := s.disk.Put(ctx, key, r, contentType); err != nil {
		return models.MenuItem{}, fmt.Errorf("catalog: store image: %w", err)
	}
	if m.Image != "" && m.Image != key {
		if err := s.disk.Delete(ctx, m.Image); err != nil {
			logger.WithCtx(ctx).Warn("catalog: old image cleanup failed", "key", m.Image, "error", err)
		}
	}
	m.Image = key
	m.Category = nil
	if err := s.repo.SaveMenuItem(ctx, &m); err != nil {
		return models.MenuItem{}, fmt.Errorf("catalog: save menu item: %w", err)
	}
	return s.MenuItem(ctx, id)
}

// ImageURL is the public address of a stored image key.
func (s *CatalogService) ImageURL(key string) string {
	if key == "" || s.disk == nil {
		return ""
	}
	return s.disk.URL(key)
}

// MenuStats aggregates prices in decimal arithmetic.
func (s *CatalogService) MenuStats(ctx context.Context) (PriceStats, error) {
	items, err := s.repo.MenuItems(ctx, repositories.MenuFilter{})
	if err != nil {
		return PriceStats{}, fmt.Errorf("catalog: stats: %w", err)
	}
	st := PriceStats{Avg: decimal.Zero, Min: decimal.Zero, Max: decimal.Zero}
	if len(items) == 0 {
		return st, nil
	}
	sum := decimal.Zero
	st.Min, st.Max = items[0].Price, items[0].Price
	for _, m := range items {
		sum = sum.Add(m.Price)
		if m.Price.LessThan(st.Min) {
			st.Min = m.Price
		}
		if m.Price.GreaterThan(st.Max) {
			st.Max = m.Price
		}
	}
	st.Count = int64(len(items))
	st.Avg = sum.Div(decimal.NewFromInt(st.Count)).Round(2)
	return st, nil
}

func writeAction(id uint) policy.Action {
	if id == 0 {
		return policy.ActionCreate
	}
	return policy.ActionUpdate
}
