package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smartattendance/internal/apperr"
	"smartattendance/internal/store"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InTx implements Store on top of store.WithTx.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx Records) error) error {
	return store.WithTx(ctx, r.db, nil, func(ctx context.Context, tx store.DBTX) error {
		return fn(ctx, &pgRecords{db: tx})
	})
}

type tables struct {
	records string
	people  string
}

func tablesFor(kind Kind) (tables, error) {
	switch kind {
	case KindStaff:
		return tables{records: "staff_attendance", people: "users"}, nil
	case KindStudent:
		return tables{records: "student_attendance", people: "students"}, nil
	}
	return tables{}, apperr.Validation(fmt.Sprintf("unknown attendance kind %q", kind))
}

const recordColumns = `id, user_id, day, time_in, time_out, method, status, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, kind Kind, extra ...any) (Record, error) {
	var (
		rec     Record
		in, out sql.NullTime
		method  sql.NullString
	)
	dest := append([]any{&rec.ID, &rec.PersonID, &rec.Day, &in, &out, &method, &rec.Status, &rec.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Record{}, err
	}
	rec.Kind = kind
	if in.Valid {
		t := in.Time.UTC()
		rec.TimeIn = &t
	}
	if out.Valid {
		t := out.Time.UTC()
		rec.TimeOut = &t
	}
	rec.Method = Method(method.String)
	return rec, nil
}

type pgRecords struct {
	db store.DBTX
}

func (p *pgRecords) Find(ctx context.Context, kind Kind, personID int64, day time.Time) (*Record, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	row := p.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM `+t.records+`
		WHERE user_id = $1 AND day = $2
		FOR UPDATE
	`, personID, day)
	rec, err := scanRecord(row, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Persistence("find attendance", err)
	}
	return &rec, nil
}

// Create relies on the (user_id, day) unique constraint: a concurrent insert
// turns into a no-op and the winner's row is read back under lock.
func (p *pgRecords) Create(ctx context.Context, kind Kind, personID int64, day time.Time) (Record, bool, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return Record{}, false, err
	}
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO `+t.records+` (user_id, day)
		VALUES ($1, $2)
		ON CONFLICT (user_id, day) DO NOTHING
		RETURNING `+recordColumns, personID, day)
	rec, err := scanRecord(row, kind)
	switch {
	case err == nil:
		return rec, true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, ferr := p.Find(ctx, kind, personID, day)
		if ferr != nil {
			return Record{}, false, ferr
		}
		if existing == nil {
			return Record{}, false, apperr.Persistence("create attendance", errors.New("conflicting row vanished"))
		}
		return *existing, false, nil
	case store.IsForeignKeyViolation(err):
		return Record{}, false, apperr.NotFound(string(kind))
	default:
		return Record{}, false, apperr.Persistence("create attendance", err)
	}
}

func (p *pgRecords) Save(ctx context.Context, rec Record) error {
	t, err := tablesFor(rec.Kind)
	if err != nil {
		return err
	}
	var method any
	if rec.Method != "" {
		method = string(rec.Method)
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE `+t.records+`
		SET time_in = $2, time_out = $3, method = $4, status = $5
		WHERE id = $1
	`, rec.ID, rec.TimeIn, rec.TimeOut, method, string(rec.Status))
	if err != nil {
		return apperr.Persistence("save attendance", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Persistence("save attendance", err)
	}
	if n == 0 {
		return apperr.Persistence("save attendance", fmt.Errorf("record %d not found", rec.ID))
	}
	return nil
}

// List returns records joined with the person's name. A nil day lists every
// record, newest first; otherwise only that day's records ordered by person.
func (r *Repository) List(ctx context.Context, kind Kind, day *time.Time) ([]Entry, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT a.id, a.user_id, a.day, a.time_in, a.time_out, a.method, a.status, a.created_at,
		       p.firstname || ' ' || p.lastname
		FROM ` + t.records + ` a
		JOIN ` + t.people + ` p ON p.id = a.user_id`
	var args []any
	if day != nil {
		query += ` WHERE a.day = $1 ORDER BY a.user_id`
		args = append(args, *day)
	} else {
		query += ` ORDER BY a.created_at DESC, a.id DESC`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Persistence("list attendance", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		rec, err := scanRecord(rows, kind, &e.PersonName)
		if err != nil {
			return nil, apperr.Persistence("scan attendance", err)
		}
		e.Record = rec
		out = append(out, e)
	}
	return out, apperr.Persistence("iterate attendance", rows.Err())
}
