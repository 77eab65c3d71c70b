package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/pkg/middleware"
	"github.com/shashiranjanraj/cafe/pkg/response"
)

// TrustController serves /api/2fa. Every route sits behind RequireAuth.
type TrustController struct {
	gate *services.TrustGate
	auth *services.AuthService
}

func NewTrustController(gate *services.TrustGate, auth *services.AuthService) *TrustController {
	return &TrustController{gate: gate, auth: auth}
}

func (c *TrustController) user(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	id, ok := middleware.IdentityFromCtx(r.Context())
	if !ok {
		response.Unauthorized(w)
		return models.User{}, false
	}
	user, err := c.auth.User(r.Context(), id.UserID)
	if err != nil {
		fail(w, r, err)
		return models.User{}, false
	}
	return user, true
}

func (c *TrustController) Secret(w http.ResponseWriter, r *http.Request) {
	user, ok := c.user(w, r)
	if !ok {
		return
	}
	enrollment, err := c.gate.EnrollSecret(r.Context(), user)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, enrollment)
}

type verifyInput struct {
	Code string `json:"code" validate:"required"`
}

// Verify answers 200 with the fresh window, or 400 {success: false} when the
// code is rejected.
func (c *TrustController) Verify(w http.ResponseWriter, r *http.Request) {
	user, ok := c.user(w, r)
	if !ok {
		return
	}
	var in verifyInput
	if !decode(w, r, &in) {
		return
	}

	passed, err := c.gate.VerifyCode(r.Context(), user, in.Code)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !passed {
		response.Fail(w, http.StatusBadRequest, "Invalid or expired code", map[string]interface{}{
			"success":     false,
			"trusted":     false,
			"ttl_seconds": 0,
		})
		return
	}

	status, err := c.gate.Status(r.Context(), user)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]interface{}{
		"success":     true,
		"trusted":     status.Trusted,
		"ttl_seconds": status.TTLSeconds,
	})
}

func (c *TrustController) Status(w http.ResponseWriter, r *http.Request) {
	user, ok := c.user(w, r)
	if !ok {
		return
	}
	status, err := c.gate.Status(r.Context(), user)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, status)
}

func (c *TrustController) Revoke(w http.ResponseWriter, r *http.Request) {
	user, ok := c.user(w, r)
	if !ok {
		return
	}
	if err := c.gate.Revoke(r.Context(), user.ID, "manual"); err != nil {
		fail(w, r, err)
		return
	}
	c.Status(w, r)
}

// Reset rotates the secret; previously provisioned authenticators stop
// working and the new enrollment is returned.
func (c *TrustController) Reset(w http.ResponseWriter, r *http.Request) {
	user, ok := c.user(w, r)
	if !ok {
		return
	}
	enrollment, err := c.gate.Reset(r.Context(), user)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, enrollment)
}
