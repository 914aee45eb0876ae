package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/gatekeeper/internal/api/middleware"
	"github.com/Wikid82/gatekeeper/internal/services"
	"github.com/Wikid82/gatekeeper/internal/session"
)

type AuthHandler struct {
	authService *services.AuthService
	tokens      *session.TokenProvider
	secure      bool
}

// NewAuthHandler wires login/logout. secure marks the session cookie
// HTTPS-only and should be true in production.
func NewAuthHandler(authService *services.AuthService, tokens *session.TokenProvider, secure bool) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens, secure: secure}
}

// setSecureCookie sets the session cookie HttpOnly with SameSite=Lax so the
// redirect back from /login keeps it.
func (h *AuthHandler) setSecureCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.tokens.CookieName(), value, maxAge, "/", "", h.secure, true)
}

type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func wantsJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "application/json") ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}

// Login accepts a JSON body or the login form. Form posts are redirected to
// the home page; JSON callers get the username back.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrAccountDisabled) {
			status = http.StatusUnauthorized
		}
		if !wantsJSON(c) && status == http.StatusUnauthorized {
			c.Redirect(http.StatusSeeOther, "/login?error=1")
			return
		}
		if status == http.StatusUnauthorized {
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		middleware.GetRequestLogger(c).WithError(err).Error("Login failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	h.setSecureCookie(c, token, int(h.tokens.TTL().Seconds()))

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"username": req.Username})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSecureCookie(c, "", -1)
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

// Me reports the session carried by the request. API routes bypass the
// admission gate, so the cookie is checked here.
func (h *AuthHandler) Me(c *gin.Context) {
	s, ok := h.tokens.Lookup(c.Request)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username":   s.User.Username,
		"expires_at": s.ExpiresAt,
	})
}

const loginPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Sign in</title></head>
<body>
<form method="post" action="/api/v1/auth/login">
<label>Username <input name="username" autocomplete="username" required></label>
<label>Password <input name="password" type="password" autocomplete="current-password" required></label>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`

// LoginPage serves a minimal sign-in form when no upstream application
// provides its own /login.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginPage))
}
