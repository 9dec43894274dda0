package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	// testcontainers panics instead of returning an error when no Docker
	// host can be found; recover so the skip path below still applies.
	ctr, err := func() (ctr *postgres.PostgresContainer, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		return postgres.Run(ctx, "postgres:16",
			postgres.WithDatabase("quilt"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
	}()
	if err != nil {
		fmt.Printf("skipping postgres tests, container unavailable: %v\n", err)
		os.Exit(m.Run())
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(fmt.Sprintf("get connection string: %v", err))
	}

	testPool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		panic(fmt.Sprintf("create pool: %v", err))
	}
	if err := RunMigrations(ctx, testPool); err != nil {
		panic(fmt.Sprintf("run migrations: %v", err))
	}

	code := m.Run()

	testPool.Close()
	ctr.Terminate(ctx)
	os.Exit(code)
}

func requirePostgres(t *testing.T) *PostgresStore {
	t.Helper()
	if testPool == nil {
		t.Skip("postgres container unavailable")
	}
	return NewPostgresStore(testPool, 5*time.Second)
}

func TestPostgresStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := requirePostgres(t)

	if _, err := s.Load(ctx, "pgdb", "row-1"); !errors.Is(err, ErrDocNotFound) {
		t.Errorf("load absent: got %v, want ErrDocNotFound", err)
	}

	if err := s.Save(ctx, "pgdb", "row-1", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	exists, err := s.Exists(ctx, "pgdb", "row-1")
	if err != nil || !exists {
		t.Errorf("exists: got %v, %v", exists, err)
	}
	data, err := s.Load(ctx, "pgdb", "row-1")
	if err != nil || string(data) != `{"a":1}` {
		t.Errorf("load: got %q, %v", data, err)
	}

	if err := s.Save(ctx, "pgdb", "row-1", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	data, _ = s.Load(ctx, "pgdb", "row-1")
	if string(data) != `{"a":2}` {
		t.Errorf("load after upsert: got %q", data)
	}

	if err := s.Delete(ctx, "pgdb", "row-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if exists, _ := s.Exists(ctx, "pgdb", "row-1"); exists {
		t.Error("exists after delete: got true")
	}
	// Deleting an absent document is a no-op.
	if err := s.Delete(ctx, "pgdb", "row-1"); err != nil {
		t.Errorf("double delete: %v", err)
	}
}

func TestPostgresStore_KeysAreScoped(t *testing.T) {
	ctx := context.Background()
	s := requirePostgres(t)

	s.Save(ctx, "pg-a", "obj", []byte("a"))
	s.Save(ctx, "pg-b", "obj", []byte("b"))

	data, err := s.Load(ctx, "pg-a", "obj")
	if err != nil || string(data) != "a" {
		t.Errorf("pg-a: got %q, %v", data, err)
	}
	s.Delete(ctx, "pg-a", "obj")
	if exists, _ := s.Exists(ctx, "pg-b", "obj"); !exists {
		t.Error("deleting pg-a/obj removed pg-b/obj")
	}
}
