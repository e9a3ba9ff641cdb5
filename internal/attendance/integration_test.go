//go:build integration

package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"smartattendance/internal/store"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "attendance",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil || container == nil {
		t.Skipf("docker not available, skipping integration test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := store.NewDB(fmt.Sprintf("postgres://test:test@%s:%s/attendance?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(ctx, db.Client))
	return db.Client
}

func TestIntegration_ConcurrentSignIn(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	var staffID int64
	require.NoError(t, db.QueryRowContext(ctx, `
		INSERT INTO users (uuid, firstname, lastname, email, role, department)
		VALUES ('00000000-0000-0000-0000-000000000001', 'Ada', 'Obi', 'ada@example.com', 'STAFF', 'ICT')
		RETURNING id`).Scan(&staffID))

	repo := NewRepository(db)
	eng := NewEngine(repo, DefaultOfficeHours())

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := eng.SignIn(ctx, KindStaff, staffID, testDay, at(7, 50, i), MethodManual)
			if !assert.NoError(t, err) {
				return
			}
			if res.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, applied)

	rows, err := repo.List(ctx, KindStaff, &testDay)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada Obi", rows[0].PersonName)
	assert.Equal(t, StatusOnTime, rows[0].Status)
}

func TestIntegration_StudentDay(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	var studentID int64
	require.NoError(t, db.QueryRowContext(ctx, `
		INSERT INTO students (uuid, firstname, lastname, email, department)
		VALUES ('00000000-0000-0000-0000-000000000002', 'Tunde', 'Bello', 'tunde@example.com', 'ICT')
		RETURNING id`).Scan(&studentID))

	eng := NewEngine(NewRepository(db), DefaultOfficeHours())

	_, err := eng.SignOutStudent(ctx, studentID, testDay, at(12, 0, 0), MethodManual)
	require.ErrorIs(t, err, ErrNotSignedIn)

	in, err := eng.SignIn(ctx, KindStudent, studentID, testDay, at(8, 20, 0), MethodFace)
	require.NoError(t, err)
	assert.Equal(t, StatusLate, in.Record.Status)

	out, err := eng.SignOutStudent(ctx, studentID, testDay, at(12, 0, 0), MethodManual)
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, in.Record.ID, out.Record.ID)
	assert.Equal(t, MethodFace, out.Record.Method)
}
