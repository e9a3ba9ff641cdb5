package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"smartattendance/internal/apperr"
	"smartattendance/internal/attendance"
	"smartattendance/internal/auth"
	"smartattendance/internal/biometric"
	"smartattendance/internal/queue"
	"smartattendance/internal/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePeople struct {
	staff     []users.Person
	students  []users.Person
	passwords map[string]string
}

func (f *fakePeople) Authenticate(_ context.Context, email, password string) (users.Person, error) {
	if email == "" || password == "" {
		return users.Person{}, apperr.Validation("Email and password are required")
	}
	for _, p := range f.staff {
		if p.Email == email && f.passwords[email] == password {
			return p, nil
		}
	}
	return users.Person{}, users.ErrInvalidCredentials
}

func (f *fakePeople) EnrollStaff(_ context.Context, in users.StaffInput) (users.Person, error) {
	for _, p := range f.staff {
		if p.Email == in.Email {
			return users.Person{}, users.ErrEmailTaken
		}
	}
	role, err := users.ParseStaffRole(in.Role)
	if err != nil {
		return users.Person{}, err
	}
	p := users.Person{ID: int64(len(f.staff) + 1), UUID: "staff-" + in.Email, Firstname: in.Firstname,
		Lastname: in.Lastname, Email: in.Email, Role: role, Department: in.Department}
	f.staff = append(f.staff, p)
	return p, nil
}

func (f *fakePeople) EnrollStudent(_ context.Context, in users.StudentInput) (users.Person, error) {
	p := users.Person{ID: int64(len(f.students) + 1), UUID: "student-" + in.Email, Firstname: in.Firstname,
		Lastname: in.Lastname, Email: in.Email, Role: users.RoleStudent, Department: in.Department}
	f.students = append(f.students, p)
	return p, nil
}

func (f *fakePeople) UserByUUID(_ context.Context, id string) (users.Person, error) {
	for _, p := range f.staff {
		if p.UUID == id {
			return p, nil
		}
	}
	return users.Person{}, apperr.NotFound("user")
}

func (f *fakePeople) UserByID(_ context.Context, id int64) (users.Person, error) {
	for _, p := range f.staff {
		if p.ID == id {
			return p, nil
		}
	}
	return users.Person{}, apperr.NotFound("user")
}

func (f *fakePeople) StudentByID(_ context.Context, id int64) (users.Person, error) {
	for _, p := range f.students {
		if p.ID == id {
			return p, nil
		}
	}
	return users.Person{}, apperr.NotFound("student")
}

func (f *fakePeople) ListUsers(context.Context) ([]users.Person, error)    { return f.staff, nil }
func (f *fakePeople) ListStudents(context.Context) ([]users.Person, error) { return f.students, nil }

// fakeTemplates backs both the matcher and enrollment.
type fakeTemplates struct {
	rows []biometric.Template
	err  error
}

func (f *fakeTemplates) FaceTemplates(context.Context) ([]biometric.Template, error) {
	return f.filter(func(t biometric.Template) bool { return t.Face != nil })
}

func (f *fakeTemplates) FingerprintTemplates(context.Context) ([]biometric.Template, error) {
	return f.filter(func(t biometric.Template) bool { return t.Fingerprint != nil })
}

func (f *fakeTemplates) filter(keep func(biometric.Template) bool) ([]biometric.Template, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []biometric.Template
	for _, t := range f.rows {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTemplates) Enroll(_ context.Context, userID int64, face biometric.FaceVector, fp []byte) (biometric.Template, error) {
	if len(face) == 0 && len(fp) == 0 {
		return biometric.Template{}, apperr.Validation("no biometric template provided")
	}
	t := biometric.Template{ID: int64(len(f.rows) + 1), Owner: biometric.Owner{UserID: userID}}
	if len(face) > 0 {
		raw, err := face.Encode()
		if err != nil {
			return biometric.Template{}, err
		}
		t.Face = raw
	}
	if len(fp) > 0 {
		t.Fingerprint = fp
	}
	f.rows = append(f.rows, t)
	return t, nil
}

// enroll stores a template owned by p directly.
func (f *fakeTemplates) enroll(p users.Person, face biometric.FaceVector, fp []byte) {
	t := biometric.Template{
		ID:          int64(len(f.rows) + 1),
		Owner:       biometric.Owner{UserID: p.ID, UUID: p.UUID, Firstname: p.Firstname, Lastname: p.Lastname},
		Fingerprint: fp,
	}
	if face != nil {
		t.Face, _ = face.Encode()
	}
	f.rows = append(f.rows, t)
}

type testEnv struct {
	router  *gin.Engine
	handler *Handler
	people  *fakePeople
	tpls    *fakeTemplates
	records *attendance.MemoryStore
	queue   *queue.InMemory
	tokens  *auth.Issuer
}

var (
	testNow = time.Date(2024, 3, 4, 7, 55, 0, 0, time.UTC)
	ada     = users.Person{ID: 1, UUID: "uuid-ada", Firstname: "Ada", Lastname: "Lovelace",
		Email: "ada@example.com", Role: users.RoleStaff, Department: "Math"}
	root = users.Person{ID: 2, UUID: "uuid-root", Firstname: "Root", Lastname: "Admin",
		Email: "root@example.com", Role: users.RoleAdmin, Department: "Administration"}
	bob = users.Person{ID: 1, UUID: "uuid-bob", Firstname: "Bob", Lastname: "Stone",
		Email: "bob@example.com", Role: users.RoleStudent, Department: "Math"}
)

func newEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	env := &testEnv{
		people: &fakePeople{
			staff:     []users.Person{ada, root},
			students:  []users.Person{bob},
			passwords: map[string]string{ada.Email: "secret", root.Email: "rootpw"},
		},
		tpls:    &fakeTemplates{},
		records: attendance.NewMemoryStore(),
		queue:   queue.NewInMemory(4),
		tokens:  auth.NewIssuer("attendance-test", "test-key", time.Hour, 24*time.Hour),
	}
	env.records.SetName(attendance.KindStaff, ada.ID, ada.FullName())
	env.records.SetName(attendance.KindStudent, bob.ID, bob.FullName())

	d := Deps{
		People:    env.people,
		Matcher:   biometric.NewMatcher(env.tpls, 0, nil),
		Templates: env.tpls,
		Engine:    attendance.NewEngine(env.records, attendance.DefaultOfficeHours()),
		Records:   env.records,
		Tokens:    env.tokens,
		Cookies:   auth.CookieOptions{SameSite: http.SameSiteLaxMode},
		Queue:     env.queue,
		Now:       func() time.Time { return testNow },
	}
	for _, m := range mutate {
		m(&d)
	}
	env.handler = New(d)
	env.router = gin.New()
	env.handler.Register(env.router)
	return env
}

func (e *testEnv) cookieFor(t *testing.T, p users.Person) *http.Cookie {
	t.Helper()
	pair, err := e.tokens.Issue(p.UUID, string(p.Role), p.Department)
	require.NoError(t, err)
	return &http.Cookie{Name: auth.AccessCookie, Value: pair.AccessToken}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestFail_HidesInternalErrorsInProduction(t *testing.T) {
	for _, prod := range []bool{false, true} {
		env := newEnv(t, func(d *Deps) { d.Production = prod })
		env.tpls.err = errors.New("pq: relation biometrics does not exist")

		w := env.do(t, http.MethodPost, "/api/biometrics/verify/face", map[string]any{"embedding": []float64{1, 0}})
		require.Equal(t, http.StatusInternalServerError, w.Code)
		msg := decode(t, w)["message"].(string)
		if prod {
			require.Equal(t, "Internal server error", msg)
		} else {
			require.True(t, strings.Contains(msg, "relation biometrics"), msg)
		}
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodGet, "/api/users/staff", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/staff", nil, env.cookieFor(t, ada))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Access forbidden", decode(t, w)["message"])

	w = env.do(t, http.MethodGet, "/api/users/staff", nil, env.cookieFor(t, root))
	require.Equal(t, http.StatusOK, w.Code)
}
