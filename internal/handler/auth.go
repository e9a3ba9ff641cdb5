package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartattendance/internal/auth"
	"smartattendance/internal/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func profile(p users.Person) gin.H {
	return gin.H{
		"uuid":       p.UUID,
		"firstname":  p.Firstname,
		"lastname":   p.Lastname,
		"role":       p.Role,
		"department": p.Department,
		"email":      p.Email,
	}
}

// Login verifies credentials and sets the token cookies.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid or missing JSON body")
		return
	}

	p, err := h.People.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	pair, err := h.Tokens.Issue(p.UUID, string(p.Role), p.Department)
	if err != nil {
		h.fail(c, err)
		return
	}
	auth.SetTokenCookies(c, pair, h.Cookies)
	h.Log.Info(c.Request.Context(), "login", "uuid", p.UUID, "role", p.Role)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful", "user": profile(p)})
}

// Refresh issues a new access cookie from a valid refresh token.
func (h *Handler) Refresh(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	token, exp, err := h.Tokens.Refresh(claims)
	if err != nil {
		h.fail(c, err)
		return
	}
	auth.SetAccessCookie(c, token, exp, h.Cookies)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Token refreshed"})
}

func (h *Handler) Logout(c *gin.Context) {
	auth.ClearTokenCookies(c, h.Cookies)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}
