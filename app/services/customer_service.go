package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/policy"
	"github.com/shashiranjanraj/cafe/app/repositories"
	"github.com/shashiranjanraj/cafe/pkg/logger"
)

type CustomerInput struct {
	Name  string
	Phone string
	// UserID links the customer to an account. Only staff may set it to
	// someone else; regular users always own what they create.
	UserID *uint
}

type CustomerService struct {
	repo *repositories.CustomerRepository
}

func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{repo: repositories.NewCustomerRepository(db)}
}

func (s *CustomerService) List(ctx context.Context, req policy.Requester) ([]models.Customer, error) {
	if err := allow(req, policy.ActionList, policy.KindCustomer, nil); err != nil {
		return nil, err
	}
	out, err := s.repo.All(ctx, ownerScope(req))
	if err != nil {
		return nil, fmt.Errorf("customers: list: %w", err)
	}
	return out, nil
}

// Get hides customers the requester may not see behind ErrNotFound.
func (s *CustomerService) Get(ctx context.Context, req policy.Requester, id uint) (models.Customer, error) {
	if err := allow(req, policy.ActionRetrieve, policy.KindCustomer, nil); err != nil {
		return models.Customer{}, err
	}
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return models.Customer{}, notFound("customers: find", err)
	}
	if !policy.CanAccess(req, c) {
		return models.Customer{}, fmt.Errorf("customers: find: %w", ErrNotFound)
	}
	return c, nil
}

func (s *CustomerService) Create(ctx context.Context, req policy.Requester, in CustomerInput) (models.Customer, error) {
	if err := allow(req, policy.ActionCreate, policy.KindCustomer, nil); err != nil {
		return models.Customer{}, err
	}
	c := models.Customer{Name: strings.TrimSpace(in.Name), Phone: strings.TrimSpace(in.Phone)}
	if req.Elevated() {
		c.UserID = in.UserID
	} else {
		uid := req.UserID
		c.UserID = &uid
	}
	if err := s.repo.Save(ctx, &c); err != nil {
		return models.Customer{}, fmt.Errorf("customers: create: %w", err)
	}
	return c, nil
}

func (s *CustomerService) Update(ctx context.Context, req policy.Requester, id uint, in CustomerInput) (models.Customer, error) {
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return models.Customer{}, notFound("customers: find", err)
	}
	if err := allow(req, policy.ActionUpdate, policy.KindCustomer, c); err != nil {
		return models.Customer{}, err
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Phone = strings.TrimSpace(in.Phone)
	if req.Elevated() && in.UserID != nil {
		c.UserID = in.UserID
	}
	if err := s.repo.Save(ctx, &c); err != nil {
		return models.Customer{}, fmt.Errorf("customers: update: %w", err)
	}
	return c, nil
}

func (s *CustomerService) Delete(ctx context.Context, req policy.Requester, id uint) error {
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return notFound("customers: find", err)
	}
	if err := allow(req, policy.ActionDelete, policy.KindCustomer, c); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("customers: delete: %w", err)
	}
	logger.Audit(ctx, "customer.deleted", "customer_id", id, "user_id", req.UserID)
	return nil
}
