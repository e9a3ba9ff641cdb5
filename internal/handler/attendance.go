package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"smartattendance/internal/attendance"
	"smartattendance/internal/biometric"
	"smartattendance/internal/metrics"
	"smartattendance/internal/users"
)

type signInRequest struct {
	FaceEmbedding       biometric.FaceVector `json:"face_embedding"`
	FingerprintTemplate string               `json:"fingerprint_template"`
}

// BiometricSignIn identifies a staff member by face or fingerprint and signs
// them in for today.
func (h *Handler) BiometricSignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if len(req.FaceEmbedding) == 0 && req.FingerprintTemplate == "" {
		badRequest(c, "No biometric provided")
		return
	}
	fingerprint, err := biometric.DecodeFingerprint(req.FingerprintTemplate)
	if err != nil {
		badRequest(c, "Invalid fingerprint template")
		return
	}

	ctx := c.Request.Context()
	match, err := h.Matcher.Identify(ctx, req.FaceEmbedding, fingerprint)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !match.Matched {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "No match found"})
		return
	}

	res, err := h.Engine.Apply(ctx, attendance.KindStaff, attendance.ActionSignIn, match.Owner.UserID,
		h.Now().UTC(), attendance.Method(match.Method))
	if err != nil {
		h.fail(c, err)
		return
	}
	observeTransition(attendance.KindStaff, attendance.ActionSignIn, res)

	body := gin.H{
		"success":   true,
		"message":   "Attendance recorded",
		"user_uuid": match.Owner.UUID,
		"firstname": match.Owner.Firstname,
		"lastname":  match.Owner.Lastname,
		"method":    match.Method,
		"status":    res.Record.Status,
		"time":      isoTime(res.Record.TimeIn),
	}
	if !res.Applied {
		body["message"] = "Already signed in today"
	}
	if match.Method == biometric.MethodFace {
		body["score"] = match.Score
	}
	c.JSON(http.StatusOK, body)
}

type manualStaffRequest struct {
	UserID    int64  `json:"user_id"`
	UserUUID  string `json:"user_uuid"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

// ManualStaff records an admin-entered sign-in or sign-out for a staff member.
func (h *Handler) ManualStaff(c *gin.Context) {
	var req manualStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON")
		return
	}
	action, err := attendance.ParseAction(req.Action)
	if err != nil || (req.UserID == 0 && req.UserUUID == "") {
		badRequest(c, "Missing required fields")
		return
	}
	ts, err := attendance.ResolveTimestamp(req.Timestamp, h.Now)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	var person users.Person
	if req.UserID != 0 {
		person, err = h.People.UserByID(ctx, req.UserID)
	} else {
		person, err = h.People.UserByUUID(ctx, req.UserUUID)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Engine.Apply(ctx, attendance.KindStaff, action, person.ID, ts, attendance.MethodManual)
	if err != nil {
		h.fail(c, err)
		return
	}
	observeTransition(attendance.KindStaff, action, res)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": transitionMessage("User", action, res.Applied),
		"attendance": gin.H{
			"id":       res.Record.ID,
			"time_in":  isoTime(res.Record.TimeIn),
			"time_out": isoTime(res.Record.TimeOut),
			"status":   res.Record.Status,
		},
	})
}

type manualStudentRequest struct {
	StudentID int64  `json:"student_id"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

// ManualStudent records an admin-entered sign-in or sign-out for a student.
// An applied sign-in answers 201.
func (h *Handler) ManualStudent(c *gin.Context) {
	var req manualStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON")
		return
	}
	action, err := attendance.ParseAction(req.Action)
	if err != nil || req.StudentID == 0 {
		badRequest(c, "Missing student_id or invalid action")
		return
	}
	ts, err := attendance.ResolveTimestamp(req.Timestamp, h.Now)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	student, err := h.People.StudentByID(ctx, req.StudentID)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Engine.Apply(ctx, attendance.KindStudent, action, student.ID, ts, attendance.MethodManual)
	if err != nil {
		h.fail(c, err)
		return
	}
	observeTransition(attendance.KindStudent, action, res)

	status := http.StatusOK
	if action == attendance.ActionSignIn && res.Applied {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"success": true,
		"message": transitionMessage("Student", action, res.Applied),
		"attendance": gin.H{
			"id":       res.Record.ID,
			"sign_in":  isoTime(res.Record.TimeIn),
			"sign_out": isoTime(res.Record.TimeOut),
			"status":   res.Record.Status,
		},
	})
}

func transitionMessage(who string, action attendance.Action, applied bool) string {
	switch {
	case applied && action == attendance.ActionSignIn:
		return "Manual sign-in recorded"
	case applied:
		return "Manual sign-out recorded"
	case action == attendance.ActionSignIn:
		return who + " already signed in today"
	default:
		return who + " already signed out today"
	}
}

func observeTransition(kind attendance.Kind, action attendance.Action, res attendance.Result) {
	metrics.Transitions.WithLabelValues(string(kind), string(action), string(res.Record.Status),
		strconv.FormatBool(res.Applied)).Inc()
}

func directory(list []users.Person) []gin.H {
	out := make([]gin.H, 0, len(list))
	for _, p := range list {
		out = append(out, gin.H{
			"id":         p.ID,
			"uuid":       p.UUID,
			"firstname":  p.Firstname,
			"lastname":   p.Lastname,
			"role":       p.Role,
			"department": p.Department,
		})
	}
	return out
}

// StaffDirectory is the minimal staff list used by the admin dropdown.
func (h *Handler) StaffDirectory(c *gin.Context) {
	list, err := h.People.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": directory(list)})
}

func (h *Handler) StudentDirectory(c *gin.Context) {
	list, err := h.People.ListStudents(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": directory(list)})
}

// listing serves today's records (today=true) or the full history of kind.
func (h *Handler) listing(kind attendance.Kind, today bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var day *time.Time
		if today {
			d := h.Engine.Hours().Day(h.Now())
			day = &d
		}
		entries, err := h.Records.List(c.Request.Context(), kind, day)
		if err != nil {
			h.fail(c, err)
			return
		}
		data := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			data = append(data, gin.H{
				"id":        e.ID,
				"user_id":   e.PersonID,
				"user_name": optional(strings.TrimSpace(e.PersonName)),
				"time_in":   isoTime(e.TimeIn),
				"time_out":  isoTime(e.TimeOut),
				"status":    e.Status,
				"method":    optional(string(e.Method)),
			})
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
	}
}
