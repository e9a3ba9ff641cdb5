package attendance

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects the population a record belongs to.
type Kind string

const (
	KindStaff   Kind = "staff"
	KindStudent Kind = "student"
)

// Method records how the latest transition was captured.
type Method string

const (
	MethodFace        Method = "face"
	MethodFingerprint Method = "fingerprint"
	MethodManual      Method = "manual"
)

// Valid reports whether m is a known capture method.
func (m Method) Valid() bool {
	switch m {
	case MethodFace, MethodFingerprint, MethodManual:
		return true
	}
	return false
}

// Status is the punctuality classification of a record.
type Status string

const (
	StatusSignedIn     Status = "SIGNED_IN"
	StatusOnTime       Status = "ON_TIME"
	StatusLate         Status = "LATE"
	StatusEarlySignout Status = "EARLY_SIGNOUT"
	StatusSignedOut    Status = "SIGNED_OUT"
)

// Action is a requested transition.
type Action string

const (
	ActionSignIn  Action = "sign_in"
	ActionSignOut Action = "sign_out"
)

// ParseAction accepts "sign_in" / "sign_out" in any case.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionSignIn, ActionSignOut:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Record is the attendance row of one person for one calendar day.
// TimeIn and TimeOut are each written at most once.
type Record struct {
	ID        int64
	Kind      Kind
	PersonID  int64
	Day       time.Time
	TimeIn    *time.Time
	TimeOut   *time.Time
	Method    Method
	Status    Status
	CreatedAt time.Time
}

// Entry is a record joined with the person's display name, used by listings.
type Entry struct {
	Record
	PersonName string
}
