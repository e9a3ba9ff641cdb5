package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Cookie names shared with the web client.
const (
	AccessCookie  = "access_token_cookie"
	RefreshCookie = "refresh_token_cookie"

	claimsKey = "claims"
)

// CookieOptions controls the attributes of token cookies.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

func (o CookieOptions) set(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(o.SameSite)
	c.SetCookie(name, value, maxAge, "/", o.Domain, o.Secure, true)
}

// SetTokenCookies stores both tokens as HttpOnly cookies.
func SetTokenCookies(c *gin.Context, pair TokenPair, opts CookieOptions) {
	SetAccessCookie(c, pair.AccessToken, pair.AccessExp, opts)
	opts.set(c, RefreshCookie, pair.RefreshToken, maxAge(pair.RefreshExp))
}

// SetAccessCookie replaces the access token cookie.
func SetAccessCookie(c *gin.Context, token string, exp time.Time, opts CookieOptions) {
	opts.set(c, AccessCookie, token, maxAge(exp))
}

// ClearTokenCookies expires both cookies.
func ClearTokenCookies(c *gin.Context, opts CookieOptions) {
	opts.set(c, AccessCookie, "", -1)
	opts.set(c, RefreshCookie, "", -1)
}

func maxAge(exp time.Time) int {
	if s := int(time.Until(exp).Seconds()); s > 0 {
		return s
	}
	return -1
}

func tokenFrom(c *gin.Context, cookie string) string {
	if v, err := c.Cookie(cookie); err == nil && v != "" {
		return v
	}
	authz := c.GetHeader("Authorization")
	if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}

// CookieAuth requires a valid access token, read from the access cookie or a
// bearer Authorization header.
func CookieAuth(iss *Issuer) gin.HandlerFunc {
	return requireToken(iss, AccessCookie, TypeAccess)
}

// RefreshAuth requires a valid refresh token.
func RefreshAuth(iss *Issuer) gin.HandlerFunc {
	return requireToken(iss, RefreshCookie, TypeRefresh)
}

func requireToken(iss *Issuer, cookie string, typ TokenType) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFrom(c, cookie)
		if tokenStr == "" {
			abort(c, http.StatusUnauthorized, "Missing token")
			return
		}
		claims, err := iss.Parse(tokenStr, typ)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole allows only callers whose token carries one of roles.
// It must run after CookieAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Missing token")
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "Access forbidden")
	}
}

// ClaimsFrom returns the claims stored by CookieAuth.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
