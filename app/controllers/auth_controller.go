package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/cafe/app/models"
	"github.com/shashiranjanraj/cafe/app/services"
	"github.com/shashiranjanraj/cafe/pkg/logger"
	"github.com/shashiranjanraj/cafe/pkg/middleware"
	"github.com/shashiranjanraj/cafe/pkg/response"
	"github.com/shashiranjanraj/cafe/pkg/session"
)

type AuthController struct {
	service *services.AuthService
	trust   *services.TrustGate
}

func NewAuthController(service *services.AuthService, trust *services.TrustGate) *AuthController {
	return &AuthController{service: service, trust: trust}
}

// Me is the caller as seen by the API.
type Me struct {
	IsAuthenticated bool        `json:"is_authenticated"`
	ID              uint        `json:"id,omitempty"`
	Username        string      `json:"username,omitempty"`
	Role            models.Role `json:"role,omitempty"`
	IsElevated      bool        `json:"is_elevated"`
}

func meOf(u models.User) Me {
	return Me{IsAuthenticated: true, ID: u.ID, Username: u.Username, Role: u.Role, IsElevated: u.IsElevated()}
}

type loginInput struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

// Login checks credentials, binds the user to a fresh session and also hands
// out a bearer token for non-browser clients.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if !decode(w, r, &in) {
		return
	}

	user, token, err := c.service.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		fail(w, r, err)
		return
	}

	if sess := session.FromCtx(r); sess != nil {
		if err := sess.Regenerate(r.Context()); err != nil {
			fail(w, r, err)
			return
		}
		sess.Set(middleware.SessionUserID, user.ID)
		sess.Set(middleware.SessionRole, string(user.Role))
		if err := sess.Save(r.Context(), w); err != nil {
			fail(w, r, err)
			return
		}
	}

	response.Success(w, map[string]interface{}{
		"token": token,
		"me":    meOf(user),
	})
}

// Logout ends the session and closes any open trust window.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := middleware.IdentityFromCtx(r.Context()); ok {
		if err := c.trust.Revoke(r.Context(), id.UserID, "logout"); err != nil {
			logger.WithCtx(r.Context()).Warn("logout: revoke trust", "user_id", id.UserID, "error", err)
		}
	}
	if sess := session.FromCtx(r); sess != nil {
		sess.Invalidate()
		if err := sess.Save(r.Context(), w); err != nil {
			fail(w, r, err)
			return
		}
	}
	response.Success(w, map[string]bool{"success": true})
}

func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromCtx(r.Context())
	if !ok {
		response.Success(w, Me{})
		return
	}
	user, err := c.service.User(r.Context(), id.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, meOf(user))
}
