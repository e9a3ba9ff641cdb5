// Package handler exposes the attendance API over gin.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartattendance/internal/apperr"
	"smartattendance/internal/attendance"
	"smartattendance/internal/auth"
	"smartattendance/internal/biometric"
	"smartattendance/internal/cloudinary"
	"smartattendance/internal/logging"
	"smartattendance/internal/queue"
	"smartattendance/internal/users"
)

// People is the user directory used by the API.
type People interface {
	Authenticate(ctx context.Context, email, password string) (users.Person, error)
	EnrollStaff(ctx context.Context, in users.StaffInput) (users.Person, error)
	EnrollStudent(ctx context.Context, in users.StudentInput) (users.Person, error)
	UserByUUID(ctx context.Context, id string) (users.Person, error)
	UserByID(ctx context.Context, id int64) (users.Person, error)
	StudentByID(ctx context.Context, id int64) (users.Person, error)
	ListUsers(ctx context.Context) ([]users.Person, error)
	ListStudents(ctx context.Context) ([]users.Person, error)
}

type (
	Templates interface {
		Enroll(ctx context.Context, userID int64, face biometric.FaceVector, fingerprint []byte) (biometric.Template, error)
	}
	Listings interface {
		List(ctx context.Context, kind attendance.Kind, day *time.Time) ([]attendance.Entry, error)
	}
	Uploader interface {
		UploadBase64(ctx context.Context, data string) (*cloudinary.UploadResult, error)
		UploadBytes(ctx context.Context, data []byte, filename string) (*cloudinary.UploadResult, error)
	}
	SessionKeys interface {
		KeyFor(ctx context.Context, sessionID string) (string, error)
	}
)

// Deps wires the handler. Uploader, Queue and Sessions may be nil; the
// endpoints that need them answer 503.
type Deps struct {
	People     People
	Matcher    *biometric.Matcher
	Templates  Templates
	Engine     *attendance.Engine
	Records    Listings
	Tokens     *auth.Issuer
	Cookies    auth.CookieOptions
	Sessions   SessionKeys
	Uploader   Uploader
	Queue      queue.Queue
	Production bool
	Now        func() time.Time
	Log        logging.Logger
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	d.Log = d.Log.With("component", "http")
	return &Handler{Deps: d}
}

// Register mounts every route under /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	authn := auth.CookieAuth(h.Tokens)
	admin := auth.RequireRole(string(users.RoleAdmin))

	a := api.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/refresh", auth.RefreshAuth(h.Tokens), h.Refresh)
	a.POST("/logout", h.Logout)

	u := api.Group("/users", authn, admin)
	u.POST("/enroll/staff", h.EnrollStaff)
	u.POST("/enroll/student", h.EnrollStudent)
	u.GET("/staff", h.ListStaff)
	u.GET("/students", h.ListStudents)

	b := api.Group("/biometrics")
	b.POST("/verify/face", h.VerifyFace)
	b.POST("/enroll", authn, admin, h.EnrollBiometric)
	b.POST("/enroll/image", authn, admin, h.EnrollImage)

	at := api.Group("/attendance")
	at.POST("/signin", h.BiometricSignIn)
	at.POST("/manual/staff", authn, admin, h.ManualStaff)
	at.POST("/manual/student", authn, admin, h.ManualStudent)
	at.GET("/users", authn, admin, h.StaffDirectory)
	at.GET("/students", authn, admin, h.StudentDirectory)
	at.GET("/today/staff", authn, admin, h.listing(attendance.KindStaff, true))
	at.GET("/today/students", authn, admin, h.listing(attendance.KindStudent, true))
	at.GET("/all/staff", authn, admin, h.listing(attendance.KindStaff, false))
	at.GET("/all/students", authn, admin, h.listing(attendance.KindStudent, false))

	api.GET("/crypto/session-key", h.SessionKey)
}

// fail writes err as {success:false, message}. Errors without a client-safe
// message are logged, and hidden in production.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := apperr.Message(err)
	if msg == "" {
		h.Log.Error(c.Request.Context(), "request failed", "route", c.FullPath(), "err", err)
		msg = "Internal server error"
		if !h.Production {
			msg = err.Error()
		}
	}
	c.JSON(status, gin.H{"success": false, "message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
}

func unavailable(c *gin.Context, msg string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": msg})
}

func isoTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
