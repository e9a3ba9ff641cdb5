package attendance

import (
	"context"
	"fmt"
	"time"

	"smartattendance/internal/apperr"
)

// ErrNotSignedIn is returned when a student signs out without a sign-in that day.
var ErrNotSignedIn = fmt.Errorf("%w: Student has not signed in today", apperr.ErrValidation)

// Records is the transactional view of the record store.
type Records interface {
	// Find returns the locked record for (kind, person, day), or nil when absent.
	Find(ctx context.Context, kind Kind, personID int64, day time.Time) (*Record, error)
	// Create inserts an empty record unless one exists. It returns the stored
	// row and whether this call created it.
	Create(ctx context.Context, kind Kind, personID int64, day time.Time) (Record, bool, error)
	Save(ctx context.Context, rec Record) error
}

// Store runs fn inside a single transaction; any error rolls it back.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Records) error) error
}

// Result describes the outcome of a transition.
type Result struct {
	Record  Record
	Created bool
	Applied bool
}

// Engine applies sign-in and sign-out transitions to per-day records.
type Engine struct {
	store Store
	hours OfficeHours
}

// NewEngine creates an engine classifying against hours.
func NewEngine(store Store, hours OfficeHours) *Engine {
	if hours.Location == nil {
		hours.Location = time.UTC
	}
	return &Engine{store: store, hours: hours}
}

// Hours returns the configured office hours.
func (e *Engine) Hours() OfficeHours { return e.hours }

// SignIn sets time_in on the day's record. A record that already has a
// time_in is returned unchanged.
func (e *Engine) SignIn(ctx context.Context, kind Kind, personID int64, day, ts time.Time, method Method) (Result, error) {
	if err := validate(kind, personID, ts, method); err != nil {
		return Result{}, err
	}
	var res Result
	err := e.store.InTx(ctx, func(ctx context.Context, tx Records) error {
		rec, created, err := findOrCreate(ctx, tx, kind, personID, day)
		if err != nil {
			return err
		}
		if rec.TimeIn != nil {
			res = Result{Record: rec, Created: created}
			return nil
		}
		at := ts
		rec.TimeIn = &at
		rec.Method = method
		rec.Status = e.hours.SignInStatus(ts)
		if err := tx.Save(ctx, rec); err != nil {
			return err
		}
		res = Result{Record: rec, Created: created, Applied: true}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// SignOutStaff sets time_out on the day's record, creating a bare record when
// the person never signed in.
func (e *Engine) SignOutStaff(ctx context.Context, personID int64, day, ts time.Time, method Method) (Result, error) {
	if err := validate(KindStaff, personID, ts, method); err != nil {
		return Result{}, err
	}
	var res Result
	err := e.store.InTx(ctx, func(ctx context.Context, tx Records) error {
		rec, created, err := findOrCreate(ctx, tx, KindStaff, personID, day)
		if err != nil {
			return err
		}
		if rec.TimeOut != nil {
			res = Result{Record: rec, Created: created}
			return nil
		}
		at := ts
		rec.TimeOut = &at
		rec.Method = method
		rec.Status = e.hours.SignOutStatus(ts)
		if err := tx.Save(ctx, rec); err != nil {
			return err
		}
		res = Result{Record: rec, Created: created, Applied: true}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// SignOutStudent sets time_out on a record that already has a time_in.
// Status and method keep their sign-in values.
func (e *Engine) SignOutStudent(ctx context.Context, personID int64, day, ts time.Time, method Method) (Result, error) {
	if err := validate(KindStudent, personID, ts, method); err != nil {
		return Result{}, err
	}
	var res Result
	err := e.store.InTx(ctx, func(ctx context.Context, tx Records) error {
		rec, err := tx.Find(ctx, KindStudent, personID, day)
		if err != nil {
			return err
		}
		if rec == nil || rec.TimeIn == nil {
			return ErrNotSignedIn
		}
		if rec.TimeOut != nil {
			res = Result{Record: *rec}
			return nil
		}
		at := ts
		rec.TimeOut = &at
		if err := tx.Save(ctx, *rec); err != nil {
			return err
		}
		res = Result{Record: *rec, Applied: true}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// SignOut dispatches to the staff or student variant.
func (e *Engine) SignOut(ctx context.Context, kind Kind, personID int64, day, ts time.Time, method Method) (Result, error) {
	if kind == KindStudent {
		return e.SignOutStudent(ctx, personID, day, ts, method)
	}
	return e.SignOutStaff(ctx, personID, day, ts, method)
}

// Apply runs action for the person on the calendar day of ts.
func (e *Engine) Apply(ctx context.Context, kind Kind, action Action, personID int64, ts time.Time, method Method) (Result, error) {
	day := e.hours.Day(ts)
	switch action {
	case ActionSignIn:
		return e.SignIn(ctx, kind, personID, day, ts, method)
	case ActionSignOut:
		return e.SignOut(ctx, kind, personID, day, ts, method)
	}
	return Result{}, apperr.Validation("Invalid action. Must be 'sign_in' or 'sign_out'")
}

func findOrCreate(ctx context.Context, tx Records, kind Kind, personID int64, day time.Time) (Record, bool, error) {
	rec, err := tx.Find(ctx, kind, personID, day)
	if err != nil {
		return Record{}, false, err
	}
	if rec != nil {
		return *rec, false, nil
	}
	return tx.Create(ctx, kind, personID, day)
}

func validate(kind Kind, personID int64, ts time.Time, method Method) error {
	switch {
	case kind != KindStaff && kind != KindStudent:
		return apperr.Validation(fmt.Sprintf("unknown attendance kind %q", kind))
	case personID <= 0:
		return apperr.Validation("person id is required")
	case ts.IsZero():
		return apperr.Validation("timestamp is required")
	case !method.Valid():
		return apperr.Validation(fmt.Sprintf("unknown method %q", method))
	}
	return nil
}
