package attendance

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"smartattendance/internal/apperr"
)

type recordKey struct {
	kind     Kind
	personID int64
	day      time.Time
}

// MemoryStore is an in-process Store. Transactions are serialized and only
// published when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	seq   int64
	rows  map[recordKey]Record
	names map[recordKey]string
	now   func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:  map[recordKey]Record{},
		names: map[recordKey]string{},
		now:   time.Now,
	}
}

// SetName registers a display name used by List.
func (m *MemoryStore) SetName(kind Kind, personID int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[recordKey{kind: kind, personID: personID}] = name
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Records) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{parent: m, seq: m.seq, staged: make(map[recordKey]Record, len(m.rows))}
	for k, v := range m.rows {
		tx.staged[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.rows = tx.staged
	m.seq = tx.seq
	return nil
}

// Get returns a copy of the committed record, for assertions.
func (m *MemoryStore) Get(kind Kind, personID int64, day time.Time) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[recordKey{kind: kind, personID: personID, day: day}]
	return rec, ok
}

// Len is the number of committed records.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// List mirrors Repository.List.
func (m *MemoryStore) List(ctx context.Context, kind Kind, day *time.Time) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Entry{}
	for k, rec := range m.rows {
		if k.kind != kind || (day != nil && !k.day.Equal(*day)) {
			continue
		}
		out = append(out, Entry{Record: rec, PersonName: m.names[recordKey{kind: kind, personID: k.personID}]})
	}
	sort.Slice(out, func(i, j int) bool {
		if day != nil {
			return out[i].PersonID < out[j].PersonID
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type memTx struct {
	parent *MemoryStore
	seq    int64
	staged map[recordKey]Record
}

func (t *memTx) Find(_ context.Context, kind Kind, personID int64, day time.Time) (*Record, error) {
	rec, ok := t.staged[recordKey{kind: kind, personID: personID, day: day}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (t *memTx) Create(_ context.Context, kind Kind, personID int64, day time.Time) (Record, bool, error) {
	k := recordKey{kind: kind, personID: personID, day: day}
	if rec, ok := t.staged[k]; ok {
		return rec, false, nil
	}
	t.seq++
	rec := Record{
		ID:        t.seq,
		Kind:      kind,
		PersonID:  personID,
		Day:       day,
		Status:    StatusSignedIn,
		CreatedAt: t.parent.now().UTC(),
	}
	t.staged[k] = rec
	return rec, true, nil
}

func (t *memTx) Save(_ context.Context, rec Record) error {
	k := recordKey{kind: rec.Kind, personID: rec.PersonID, day: rec.Day}
	if _, ok := t.staged[k]; !ok {
		return errRecordMissing
	}
	t.staged[k] = rec
	return nil
}

var errRecordMissing = apperr.Persistence("save attendance", errors.New("record not found"))
