package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/pkg/response"
)

type CustomerController struct {
	customers *services.CustomerService
	trust     TrustChecker
}

func NewCustomerController(customers *services.CustomerService, trust TrustChecker) *CustomerController {
	return &CustomerController{customers: customers, trust: trust}
}

type customerInput struct {
	Name   string `json:"name"    validate:"required,max=150"`
	Phone  string `json:"phone"   validate:"nullable,max=32"`
	UserID *uint  `json:"user_id"`
}

func (in customerInput) service() services.CustomerInput {
	return services.CustomerInput{Name: in.Name, Phone: in.Phone, UserID: in.UserID}
}

func (c *CustomerController) Index(w http.ResponseWriter, r *http.Request) {
	list, err := c.customers.List(r.Context(), requesterFrom(r, c.trust))
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, list)
}

func (c *CustomerController) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	cust, err := c.customers.Get(r.Context(), requesterFrom(r, c.trust), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, cust)
}

func (c *CustomerController) Store(w http.ResponseWriter, r *http.Request) {
	var in customerInput
	if !decode(w, r, &in) {
		return
	}
	cust, err := c.customers.Create(r.Context(), requesterFrom(r, c.trust), in.service())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, cust)
}

func (c *CustomerController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in customerInput
	if !decode(w, r, &in) {
		return
	}
	cust, err := c.customers.Update(r.Context(), requesterFrom(r, c.trust), id, in.service())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, cust)
}

func (c *CustomerController) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := c.customers.Delete(r.Context(), requesterFrom(r, c.trust), id); err != nil {
		fail(w, r, err)
		return
	}
	response.NoContent(w)
}
