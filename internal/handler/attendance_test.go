package handler

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartattendance/internal/attendance"
	"smartattendance/internal/biometric"
	"smartattendance/internal/metrics"
)

func TestBiometricSignIn_Face(t *testing.T) {
	env := newEnv(t)
	env.tpls.enroll(ada, biometric.FaceVector{1, 0, 0}, nil)

	w := env.do(t, http.MethodPost, "/api/attendance/signin", map[string]any{"face_embedding": []float64{0.9, 0.1, 0}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Attendance recorded", body["message"])
	assert.Equal(t, ada.UUID, body["user_uuid"])
	assert.Equal(t, "face", body["method"])
	assert.Equal(t, "ON_TIME", body["status"])
	assert.Equal(t, "2024-03-04T07:55:00Z", body["time"])
	assert.Greater(t, body["score"].(float64), 0.65)

	w = env.do(t, http.MethodPost, "/api/attendance/signin", map[string]any{"face_embedding": []float64{1, 0, 0}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Already signed in today", decode(t, w)["message"])
	assert.Equal(t, 1, env.records.Len())
}

func TestBiometricSignIn_FingerprintFallback(t *testing.T) {
	env := newEnv(t)
	env.tpls.enroll(ada, biometric.FaceVector{0, 1}, []byte("ridge-data"))

	w := env.do(t, http.MethodPost, "/api/attendance/signin", map[string]any{
		"face_embedding":       []float64{1, 0},
		"fingerprint_template": base64.StdEncoding.EncodeToString([]byte("ridge-data")),
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "fingerprint", body["method"])
	assert.NotContains(t, body, "score")

	rec, ok := env.records.Get(attendance.KindStaff, ada.ID, attendance.DefaultOfficeHours().Day(testNow))
	require.True(t, ok)
	assert.Equal(t, attendance.MethodFingerprint, rec.Method)
}

func TestBiometricSignIn_Rejections(t *testing.T) {
	env := newEnv(t)
	env.tpls.enroll(ada, biometric.FaceVector{1, 0}, nil)

	w := env.do(t, http.MethodPost, "/api/attendance/signin", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No biometric provided", decode(t, w)["message"])

	w = env.do(t, http.MethodPost, "/api/attendance/signin", map[string]any{"face_embedding": []float64{-1, 0}})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No match found", body["message"])
	assert.Zero(t, env.records.Len())
}

func TestManualStaff(t *testing.T) {
	env := newEnv(t)
	admin := env.cookieFor(t, root)
	before := testutil.ToFloat64(metrics.Transitions.WithLabelValues("staff", "sign_in", "LATE", "true"))

	w := env.do(t, http.MethodPost, "/api/attendance/manual/staff",
		map[string]any{"user_id": ada.ID, "action": "SIGN_IN", "timestamp": "2024-03-04T09:00:00"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Manual sign-in recorded", body["message"])
	att := body["attendance"].(map[string]any)
	assert.Equal(t, "LATE", att["status"])
	assert.Equal(t, "2024-03-04T09:00:00Z", att["time_in"])
	assert.Nil(t, att["time_out"])
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Transitions.WithLabelValues("staff", "sign_in", "LATE", "true")))

	w = env.do(t, http.MethodPost, "/api/attendance/manual/staff",
		map[string]any{"user_uuid": ada.UUID, "action": "sign_in", "timestamp": "2024-03-04T07:00:00"}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "User already signed in today", body["message"])
	assert.Equal(t, "LATE", body["attendance"].(map[string]any)["status"])

	w = env.do(t, http.MethodPost, "/api/attendance/manual/staff",
		map[string]any{"user_id": ada.ID, "action": "sign_out", "timestamp": "2024-03-04T17:30:00Z"}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	att = decode(t, w)["attendance"].(map[string]any)
	assert.Equal(t, "SIGNED_OUT", att["status"])
	assert.Equal(t, "2024-03-04T17:30:00Z", att["time_out"])
}

func TestManualStaff_SignInAfterSignOut(t *testing.T) {
	env := newEnv(t)
	admin := env.cookieFor(t, root)

	w := env.do(t, http.MethodPost, "/api/attendance/manual/staff",
		map[string]any{"user_id": ada.ID, "action": "sign_out", "timestamp": "2024-03-04T09:00:00Z"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "EARLY_SIGNOUT", decode(t, w)["attendance"].(map[string]any)["status"])

	w = env.do(t, http.MethodPost, "/api/attendance/manual/staff",
		map[string]any{"user_id": ada.ID, "action": "sign_in", "timestamp": "2024-03-04T10:00:00Z"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Manual sign-in recorded", body["message"])
	att := body["attendance"].(map[string]any)
	assert.Equal(t, "LATE", att["status"])
	assert.Equal(t, "2024-03-04T10:00:00Z", att["time_in"])
	assert.Equal(t, "2024-03-04T09:00:00Z", att["time_out"])
	assert.Equal(t, 1, env.records.Len())
}

func TestManualStaff_BadInput(t *testing.T) {
	env := newEnv(t)
	admin := env.cookieFor(t, root)

	tests := []struct {
		name string
		body map[string]any
		code int
		msg  string
	}{
		{"no person", map[string]any{"action": "sign_in"}, http.StatusBadRequest, "Missing required fields"},
		{"bad action", map[string]any{"user_id": 1, "action": "jump"}, http.StatusBadRequest, "Missing required fields"},
		{"bad timestamp", map[string]any{"user_id": 1, "action": "sign_in", "timestamp": "yesterday"}, http.StatusBadRequest, "Invalid timestamp format"},
		{"unknown user", map[string]any{"user_id": 99, "action": "sign_in"}, http.StatusNotFound, "user not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/attendance/manual/staff", tt.body, admin)
			require.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.msg, decode(t, w)["message"])
		})
	}
	assert.Zero(t, env.records.Len())
}

func TestManualStudent(t *testing.T) {
	env := newEnv(t)
	admin := env.cookieFor(t, root)
	post := func(action, ts string) (int, map[string]any) {
		w := env.do(t, http.MethodPost, "/api/attendance/manual/student",
			map[string]any{"student_id": bob.ID, "action": action, "timestamp": ts}, admin)
		return w.Code, decode(t, w)
	}

	code, body := post("sign_out", "2024-03-04T15:00:00")
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Student has not signed in today", body["message"])

	code, body = post("sign_in", "2024-03-04T07:30:00")
	require.Equal(t, http.StatusCreated, code)
	att := body["attendance"].(map[string]any)
	assert.Equal(t, "2024-03-04T07:30:00Z", att["sign_in"])
	assert.Equal(t, "ON_TIME", att["status"])

	code, body = post("sign_in", "2024-03-04T08:30:00")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Student already signed in today", body["message"])

	code, body = post("sign_out", "2024-03-04T15:00:00")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Manual sign-out recorded", body["message"])
	att = body["attendance"].(map[string]any)
	assert.Equal(t, "2024-03-04T15:00:00Z", att["sign_out"])
	assert.Equal(t, "ON_TIME", att["status"])

	code, body = post("sign_out", "2024-03-04T16:00:00")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Student already signed out today", body["message"])
}

func TestManualStudent_UnknownStudent(t *testing.T) {
	env := newEnv(t)
	w := env.do(t, http.MethodPost, "/api/attendance/manual/student",
		map[string]any{"student_id": 42, "action": "sign_in"}, env.cookieFor(t, root))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "student not found", decode(t, w)["message"])
}

func TestListings(t *testing.T) {
	env := newEnv(t)
	admin := env.cookieFor(t, root)

	w := env.do(t, http.MethodGet, "/api/attendance/today/staff", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())

	env.do(t, http.MethodPost, "/api/attendance/manual/staff",
		map[string]any{"user_id": ada.ID, "action": "sign_in", "timestamp": "2024-03-04T07:59:00"}, admin)
	env.do(t, http.MethodPost, "/api/attendance/manual/staff",
		map[string]any{"user_id": ada.ID, "action": "sign_in", "timestamp": "2024-03-01T08:10:00"}, admin)

	w = env.do(t, http.MethodGet, "/api/attendance/today/staff", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]any)
	require.Len(t, data, 1)
	row := data[0].(map[string]any)
	assert.Equal(t, "Ada Lovelace", row["user_name"])
	assert.Equal(t, "ON_TIME", row["status"])
	assert.Equal(t, "manual", row["method"])

	w = env.do(t, http.MethodGet, "/api/attendance/all/staff", nil, admin)
	data = decode(t, w)["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "LATE", data[0].(map[string]any)["status"])

	w = env.do(t, http.MethodGet, "/api/attendance/all/students", nil, admin)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}

func TestDirectories(t *testing.T) {
	env := newEnv(t)
	admin := env.cookieFor(t, root)

	w := env.do(t, http.MethodGet, "/api/attendance/users", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["users"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, float64(ada.ID), list[0].(map[string]any)["id"])

	w = env.do(t, http.MethodGet, "/api/attendance/students", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["students"].([]any), 1)
}
