package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartattendance/internal/users"
)

type staffRequest struct {
	Firstname  string  `json:"firstname"`
	Lastname   string  `json:"lastname"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Role       string  `json:"role"`
	Department string  `json:"department"`
	Phone      *string `json:"phone"`
}

type studentRequest struct {
	Firstname  string  `json:"firstname"`
	Lastname   string  `json:"lastname"`
	Email      string  `json:"email"`
	Department string  `json:"department"`
	Phone      *string `json:"phone"`
}

func (h *Handler) EnrollStaff(c *gin.Context) {
	var req staffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid or missing JSON body")
		return
	}
	p, err := h.People.EnrollStaff(c.Request.Context(), users.StaffInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User enrolled successfully", "uuid": p.UUID})
}

func (h *Handler) EnrollStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid or missing JSON body")
		return
	}
	p, err := h.People.EnrollStudent(c.Request.Context(), users.StudentInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Student enrolled successfully", "uuid": p.UUID})
}

func people(list []users.Person) []gin.H {
	out := make([]gin.H, 0, len(list))
	for _, p := range list {
		out = append(out, gin.H{
			"uuid":       p.UUID,
			"firstname":  p.Firstname,
			"lastname":   p.Lastname,
			"email":      p.Email,
			"role":       p.Role,
			"department": p.Department,
		})
	}
	return out
}

// ListStaff returns every staff member and admin as a bare array.
func (h *Handler) ListStaff(c *gin.Context) {
	list, err := h.People.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, people(list))
}

func (h *Handler) ListStudents(c *gin.Context) {
	list, err := h.People.ListStudents(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, people(list))
}
