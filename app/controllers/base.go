package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/policy"
	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/pkg/bind"
	"github.com/shashiranjanraj/cafe/pkg/logger"
	"github.com/shashiranjanraj/cafe/pkg/middleware"
	"github.com/shashiranjanraj/cafe/pkg/response"
	"github.com/shashiranjanraj/cafe/pkg/workerpool"
)

// TrustChecker is the slice of the trust gate controllers need to resolve
// a requester.
type TrustChecker interface {
	IsTrusted(ctx context.Context, userID uint) bool
}

// requesterFrom turns the authenticated identity into a policy requester.
// Trust is looked up only for elevated callers.
func requesterFrom(r *http.Request, trust TrustChecker) policy.Requester {
	id, ok := middleware.IdentityFromCtx(r.Context())
	if !ok {
		return policy.Anonymous()
	}
	role, ok := models.ParseRole(id.Role)
	if !ok {
		role = models.RoleRegular
	}
	req := policy.Requester{UserID: id.UserID, Role: role}
	if req.Elevated() {
		req.Trusted = trust.IsTrusted(r.Context(), id.UserID)
	}
	return req
}

// fail maps service errors onto HTTP answers.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	var denied *services.DeniedError

	switch {
	case errors.As(err, &verr):
		response.ValidationError(w, verr.Fields)
	case errors.As(err, &denied):
		if denied.Reason == policy.ReasonUnauthenticated {
			response.Unauthorized(w)
			return
		}
		response.Forbidden(w, denied.Reason)
	case errors.Is(err, services.ErrNotFound):
		response.NotFound(w)
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrInUse):
		response.Error(w, http.StatusConflict, "Resource is still referenced by orders")
	case errors.Is(err, services.ErrTerminalStatus):
		response.Error(w, http.StatusConflict, "Order is in a terminal status")
	case errors.Is(err, services.ErrInvalidStatus):
		response.Error(w, http.StatusConflict, "Invalid status transition")
	case errors.Is(err, workerpool.ErrPoolFull):
		w.Header().Set("Retry-After", "5")
		response.Error(w, http.StatusTooManyRequests, "Export queue is busy, retry shortly")
	default:
		logger.WithCtx(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// decode binds the JSON body into dest and answers 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	errs, err := bind.JSON(r, dest)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return false
	}
	return true
}

// idParam reads a positive integer URL parameter, answering 404 otherwise.
func idParam(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || n == 0 {
		response.NotFound(w)
		return 0, false
	}
	return uint(n), true
}

// queryUint parses an optional positive integer query parameter.
func queryUint(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		response.ValidationError(w, map[string]string{name: "The " + name + " must be a positive integer."})
		return 0, false
	}
	return uint(n), true
}

// queryBool accepts 1/true/yes/on.
func queryBool(r *http.Request, name string, def bool) bool {
	switch r.URL.Query().Get(name) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// quantity accepts a JSON number or numeric string. Anything non-numeric or
// below one decodes as zero, which the cart coerces to one. Values past
// maxQuantity decode as maxQuantity+1 so the max rule rejects them.
type quantity int

func (q *quantity) UnmarshalJSON(b []byte) error {
	*q = 0
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		q.set(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil && f == math.Trunc(f) {
			q.set(f)
		}
	}
	return nil
}

func (q *quantity) set(n float64) {
	switch {
	case n > maxQuantity:
		*q = maxQuantity + 1
	case n >= 1:
		*q = quantity(n)
	}
}

const maxQuantity = 1_000_000
