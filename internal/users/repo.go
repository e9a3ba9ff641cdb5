package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"smartattendance/internal/apperr"
	"smartattendance/internal/store"
)

// ErrEmailTaken is returned when the email is already registered.
var ErrEmailTaken = fmt.Errorf("%w: Email already exists", apperr.ErrConflict)

// Repository persists users, credentials and students in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, uuid, firstname, lastname, email, phone, role, department, created_at`

func scanPerson(row interface{ Scan(...any) error }) (Person, error) {
	var (
		p     Person
		phone sql.NullString
	)
	if err := row.Scan(&p.ID, &p.UUID, &p.Firstname, &p.Lastname, &p.Email, &phone, &p.Role, &p.Department, &p.CreatedAt); err != nil {
		return Person{}, err
	}
	if phone.Valid {
		p.Phone = &phone.String
	}
	return p, nil
}

func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// CreateUser inserts a user and its credential in one transaction.
func (r *Repository) CreateUser(ctx context.Context, p Person, passwordHash string) (Person, error) {
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	err := store.WithTx(ctx, r.db, nil, func(ctx context.Context, tx store.DBTX) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO users (uuid, firstname, lastname, email, phone, role, department)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+userColumns,
			p.UUID, p.Firstname, p.Lastname, p.Email, nullable(p.Phone), string(p.Role), p.Department)
		created, err := scanPerson(row)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO credentials (user_id, password_hash, last_password_reset_at)
			VALUES ($1, $2, NOW())
		`, created.ID, passwordHash); err != nil {
			return err
		}
		p = created
		return nil
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Person{}, ErrEmailTaken
		}
		return Person{}, apperr.Persistence("create user", err)
	}
	return p, nil
}

// CreateStudent inserts a student.
func (r *Repository) CreateStudent(ctx context.Context, p Person) (Person, error) {
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (uuid, firstname, lastname, email, phone, department)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		p.UUID, p.Firstname, p.Lastname, p.Email, nullable(p.Phone), p.Department)
	created, err := scanPerson(row)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Person{}, ErrEmailTaken
		}
		return Person{}, apperr.Persistence("create student", err)
	}
	return created, nil
}

// SetPassword replaces (or creates) the credential of a user.
func (r *Repository) SetPassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, last_password_reset_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			last_password_reset_at = EXCLUDED.last_password_reset_at
	`, userID, passwordHash)
	return apperr.Persistence("set password", err)
}

// Credentials returns the user with the given email and its password hash.
// The hash is empty when the user has no credential.
func (r *Repository) Credentials(ctx context.Context, email string) (Person, string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.uuid, u.firstname, u.lastname, u.email, u.phone, u.role, u.department, u.created_at,
		       COALESCE(c.password_hash, '')
		FROM users u
		LEFT JOIN credentials c ON c.user_id = u.id
		WHERE u.email = $1
	`, email)
	var (
		p     Person
		phone sql.NullString
		hash  string
	)
	if err := row.Scan(&p.ID, &p.UUID, &p.Firstname, &p.Lastname, &p.Email, &phone, &p.Role, &p.Department, &p.CreatedAt, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Person{}, "", apperr.NotFound("user")
		}
		return Person{}, "", apperr.Persistence("find credentials", err)
	}
	if phone.Valid {
		p.Phone = &phone.String
	}
	return p, hash, nil
}

// UserByUUID looks up a staff member or admin.
func (r *Repository) UserByUUID(ctx context.Context, id string) (Person, error) {
	return r.one(ctx, "user", `SELECT `+userColumns+` FROM users WHERE uuid = $1`, id)
}

// UserByID looks up a staff member or admin by numeric id.
func (r *Repository) UserByID(ctx context.Context, id int64) (Person, error) {
	return r.one(ctx, "user", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// StudentByID looks up a student by numeric id.
func (r *Repository) StudentByID(ctx context.Context, id int64) (Person, error) {
	return r.one(ctx, "student", `SELECT `+userColumns+` FROM students WHERE id = $1`, id)
}

// ListUsers returns staff and admins ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]Person, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

// ListStudents returns students ordered by id.
func (r *Repository) ListStudents(ctx context.Context) ([]Person, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM students ORDER BY id`)
}

func (r *Repository) one(ctx context.Context, what, query string, arg any) (Person, error) {
	p, err := scanPerson(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Person{}, apperr.NotFound(what)
		}
		return Person{}, apperr.Persistence("find "+what, err)
	}
	return p, nil
}

func (r *Repository) list(ctx context.Context, query string) ([]Person, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Persistence("list people", err)
	}
	defer rows.Close()

	out := []Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, apperr.Persistence("scan person", err)
		}
		out = append(out, p)
	}
	return out, apperr.Persistence("iterate people", rows.Err())
}
