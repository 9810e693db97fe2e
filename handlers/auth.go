package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-service/internal/identity"
	"storefront-service/internal/users"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"
)

func (h *Handler) GenerateKey(c *gin.Context) {
	key, err := identity.NewGuestKey(time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"key": key})
}

func (h *Handler) Register(c *gin.Context) {
	var nu users.NewUser
	if err := c.ShouldBindJSON(&nu); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, err := h.Users.Register(c.Request.Context(), nu)
	if err != nil {
		writeError(c, err)
		return
	}
	h.startSession(c, http.StatusCreated, "Registration successful", u)
}

func (h *Handler) Login(c *gin.Context) {
	var l users.Login
	if err := c.ShouldBindJSON(&l); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, err := h.Users.Authenticate(c.Request.Context(), l)
	if err != nil {
		writeError(c, err)
		return
	}
	h.startSession(c, http.StatusOK, "Login successful", u)
}

// startSession issues a token and folds the caller's guest cart and wishlist into the account.
// A failed merge is logged and the login still succeeds.
func (h *Handler) startSession(c *gin.Context, status int, message string, u users.User) {
	token, err := h.Keys.GenerateToken(u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if guest := guestFromHeader(c); guest.IsGuest() {
		h.Carts.MergeQuietly(c.Request.Context(), guest, identity.User(u.ID))
	}
	slog.Info("session started", slog.String(logkey.TraceID, ctxmanage.GetTraceIdOfRequest(c)),
		slog.Int64(logkey.UserID, u.ID))
	respondMessage(c, status, message, h.session(u, token))
}

func (h *Handler) session(u users.User, token string) gin.H {
	return gin.H{
		"user":       u,
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int64(h.Keys.TTL().Seconds()),
	}
}

// Refresh issues a new token for the signed-in user.
func (h *Handler) Refresh(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	u, err := h.Users.Get(c.Request.Context(), owner.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	token, err := h.Keys.GenerateToken(u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Token refreshed", h.session(u, token))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var p users.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, err := h.Users.UpdateProfile(c.Request.Context(), owner.UserID, p)
	if err != nil {
		writeError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Profile updated successfully", u)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var pc users.PasswordChange
	if err := c.ShouldBindJSON(&pc); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Users.ChangePassword(c.Request.Context(), owner.UserID, pc); err != nil {
		writeError(c, err)
		return
	}
	slog.Info("password changed", slog.String(logkey.TraceID, ctxmanage.GetTraceIdOfRequest(c)),
		slog.Int64(logkey.UserID, owner.UserID))
	respondMessage(c, http.StatusOK, "Password changed successfully", nil)
}

// Logout discards the guest cart and wishlist tied to the X-USER-KEY header. Session tokens
// are stateless and simply expire.
func (h *Handler) Logout(c *gin.Context) {
	if guest := guestFromHeader(c); guest.IsGuest() {
		if err := h.Carts.Discard(c.Request.Context(), guest); err != nil {
			writeError(c, err)
			return
		}
	}
	respondMessage(c, http.StatusOK, "Logged out successfully", nil)
}

func guestFromHeader(c *gin.Context) identity.Identity {
	key := strings.TrimSpace(c.GetHeader(identity.GuestKeyHeader))
	if !identity.ValidGuestKey(key) {
		return identity.Identity{}
	}
	return identity.Guest(key)
}
