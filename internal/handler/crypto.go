package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"smartattendance/internal/session"
)

// SessionKey returns the symmetric key bound to the caller's session cookie,
// creating the session on first use.
func (h *Handler) SessionKey(c *gin.Context) {
	if h.Sessions == nil {
		unavailable(c, "session store not configured")
		return
	}
	sid, err := c.Cookie(session.CookieName)
	if err != nil || sid == "" {
		sid = uuid.NewString()
		c.SetSameSite(h.Cookies.SameSite)
		c.SetCookie(session.CookieName, sid, 0, "/", h.Cookies.Domain, h.Cookies.Secure, true)
	}
	key, err := h.Sessions.KeyFor(c.Request.Context(), sid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keyB64": key})
}
