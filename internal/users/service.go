package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"smartattendance/internal/apperr"
	"smartattendance/internal/logging"
)

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = fmt.Errorf("%w: Invalid email or password", apperr.ErrUnauthorized)

// Store is the persistence the service needs.
type Store interface {
	CreateUser(ctx context.Context, p Person, passwordHash string) (Person, error)
	CreateStudent(ctx context.Context, p Person) (Person, error)
	SetPassword(ctx context.Context, userID int64, passwordHash string) error
	Credentials(ctx context.Context, email string) (Person, string, error)
	UserByUUID(ctx context.Context, id string) (Person, error)
	UserByID(ctx context.Context, id int64) (Person, error)
	StudentByID(ctx context.Context, id int64) (Person, error)
	ListUsers(ctx context.Context) ([]Person, error)
	ListStudents(ctx context.Context) ([]Person, error)
}

// Service handles enrollment and authentication of people.
type Service struct {
	store Store
	log   logging.Logger
}

// NewService creates a service.
func NewService(store Store, log logging.Logger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{store: store, log: log.With("component", "users")}
}

// StaffInput is the payload for enrolling a staff member or admin.
type StaffInput struct {
	Firstname  string
	Lastname   string
	Email      string
	Password   string
	Role       string
	Department string
	Phone      *string
}

// StudentInput is the payload for enrolling a student.
type StudentInput struct {
	Firstname  string
	Lastname   string
	Email      string
	Department string
	Phone      *string
}

func missing(fields ...[2]string) error {
	var names []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			names = append(names, f[0])
		}
	}
	if len(names) > 0 {
		return apperr.Validation("Missing required fields: " + strings.Join(names, ", "))
	}
	return nil
}

func validEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Validation("Invalid email address")
	}
	return nil
}

// EnrollStaff creates a user with a hashed password.
func (s *Service) EnrollStaff(ctx context.Context, in StaffInput) (Person, error) {
	if err := missing(
		[2]string{"firstname", in.Firstname},
		[2]string{"lastname", in.Lastname},
		[2]string{"email", in.Email},
		[2]string{"password", in.Password},
		[2]string{"role", in.Role},
		[2]string{"department", in.Department},
	); err != nil {
		return Person{}, err
	}
	if err := validEmail(in.Email); err != nil {
		return Person{}, err
	}
	role, err := ParseStaffRole(in.Role)
	if err != nil {
		return Person{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Person{}, err
	}
	p, err := s.store.CreateUser(ctx, Person{
		Firstname:  strings.TrimSpace(in.Firstname),
		Lastname:   strings.TrimSpace(in.Lastname),
		Email:      strings.TrimSpace(in.Email),
		Phone:      in.Phone,
		Role:       role,
		Department: strings.TrimSpace(in.Department),
	}, hash)
	if err != nil {
		return Person{}, err
	}
	s.log.Info(ctx, "staff enrolled", "uuid", p.UUID, "role", p.Role)
	return p, nil
}

// EnrollStudent creates a student record.
func (s *Service) EnrollStudent(ctx context.Context, in StudentInput) (Person, error) {
	if err := missing(
		[2]string{"firstname", in.Firstname},
		[2]string{"lastname", in.Lastname},
		[2]string{"email", in.Email},
		[2]string{"department", in.Department},
	); err != nil {
		return Person{}, err
	}
	if err := validEmail(in.Email); err != nil {
		return Person{}, err
	}
	p, err := s.store.CreateStudent(ctx, Person{
		Firstname:  strings.TrimSpace(in.Firstname),
		Lastname:   strings.TrimSpace(in.Lastname),
		Email:      strings.TrimSpace(in.Email),
		Phone:      in.Phone,
		Role:       RoleStudent,
		Department: strings.TrimSpace(in.Department),
	})
	if err != nil {
		return Person{}, err
	}
	s.log.Info(ctx, "student enrolled", "uuid", p.UUID)
	return p, nil
}

// Authenticate verifies an email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Person, error) {
	if email == "" || password == "" {
		return Person{}, apperr.Validation("Email and password are required")
	}
	p, hash, err := s.store.Credentials(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Person{}, ErrInvalidCredentials
		}
		return Person{}, err
	}
	if hash == "" {
		return Person{}, ErrInvalidCredentials
	}
	ok, err := VerifyPassword(hash, password)
	if err != nil {
		s.log.Warn(ctx, "stored password hash unreadable", "uuid", p.UUID, "err", err)
		return Person{}, ErrInvalidCredentials
	}
	if !ok {
		return Person{}, ErrInvalidCredentials
	}
	return p, nil
}

// AdminResult tells whether CreateOrResetAdmin created a new account.
type AdminResult struct {
	Person  Person
	Created bool
}

// CreateOrResetAdmin creates an ADMIN account, or resets the password of an
// existing one. An existing non-admin with the same email is left untouched.
func (s *Service) CreateOrResetAdmin(ctx context.Context, firstname, lastname, email, password string) (AdminResult, error) {
	if err := missing(
		[2]string{"firstname", firstname},
		[2]string{"lastname", lastname},
		[2]string{"email", email},
		[2]string{"password", password},
	); err != nil {
		return AdminResult{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return AdminResult{}, err
	}

	existing, _, err := s.store.Credentials(ctx, email)
	switch {
	case err == nil:
		if !existing.IsAdmin() {
			return AdminResult{}, fmt.Errorf("%w: a user with email %s exists but is not an ADMIN", apperr.ErrForbidden, email)
		}
		if err := s.store.SetPassword(ctx, existing.ID, hash); err != nil {
			return AdminResult{}, err
		}
		s.log.Info(ctx, "admin password reset", "uuid", existing.UUID)
		return AdminResult{Person: existing}, nil
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return AdminResult{}, err
	}

	p, err := s.store.CreateUser(ctx, Person{
		Firstname:  firstname,
		Lastname:   lastname,
		Email:      email,
		Role:       RoleAdmin,
		Department: "Administration",
	}, hash)
	if err != nil {
		return AdminResult{}, err
	}
	s.log.Info(ctx, "admin created", "uuid", p.UUID)
	return AdminResult{Person: p, Created: true}, nil
}

// UserByUUID returns a staff member or admin.
func (s *Service) UserByUUID(ctx context.Context, id string) (Person, error) {
	if id == "" {
		return Person{}, apperr.Validation("user_uuid is required")
	}
	return s.store.UserByUUID(ctx, id)
}

// UserByID returns a staff member or admin.
func (s *Service) UserByID(ctx context.Context, id int64) (Person, error) {
	return s.store.UserByID(ctx, id)
}

// StudentByID returns a student.
func (s *Service) StudentByID(ctx context.Context, id int64) (Person, error) {
	return s.store.StudentByID(ctx, id)
}

// ListUsers returns staff and admins.
func (s *Service) ListUsers(ctx context.Context) ([]Person, error) {
	return s.store.ListUsers(ctx)
}

// ListStudents returns students.
func (s *Service) ListStudents(ctx context.Context) ([]Person, error) {
	return s.store.ListStudents(ctx)
}
