package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollStaff(t *testing.T) {
	env := newEnv(t)
	admin := env.cookieFor(t, root)

	w := env.do(t, http.MethodPost, "/api/users/enroll/staff", map[string]string{
		"firstname": "Grace", "lastname": "Hopper", "email": "grace@example.com",
		"password": "pw", "role": "staff", "department": "CS",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "staff-grace@example.com", decode(t, w)["uuid"])

	w = env.do(t, http.MethodPost, "/api/users/enroll/staff", map[string]string{
		"firstname": "Grace", "lastname": "Hopper", "email": "grace@example.com",
		"password": "pw", "role": "STAFF", "department": "CS",
	}, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already exists", decode(t, w)["message"])

	w = env.do(t, http.MethodPost, "/api/users/enroll/staff", map[string]string{
		"firstname": "X", "lastname": "Y", "email": "x@example.com",
		"password": "pw", "role": "JANITOR", "department": "CS",
	}, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["message"], "Invalid role")
}

func TestEnrollStudentAndList(t *testing.T) {
	env := newEnv(t)
	admin := env.cookieFor(t, root)

	w := env.do(t, http.MethodPost, "/api/users/enroll/student", map[string]string{
		"firstname": "Cy", "lastname": "Young", "email": "cy@example.com", "department": "Bio",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/students", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"uuid":"uuid-bob","firstname":"Bob","lastname":"Stone","email":"bob@example.com","role":"STUDENT","department":"Math"},
		{"uuid":"student-cy@example.com","firstname":"Cy","lastname":"Young","email":"cy@example.com","role":"STUDENT","department":"Bio"}
	]`, w.Body.String())
}
