//go:build integration

package mariadb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/doorlock/internal/gallery"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "testdb",
			"MARIADB_ROOT_PASSWORD": "root",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("test:test@tcp(%s:%s)/testdb?parseTime=true", host, port.Port())

	// The port opens before the server accepts logins.
	var pool *Pool
	for range 30 {
		pool, err = NewPool(ctx, dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to migrate: %v", err)
	}

	return pool, func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func TestTemplateRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewTemplateRepository(pool)
	enrolled := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	for id := range 2 {
		tpl := gallery.Template{ID: id, Embedding: gallery.Embedding{float32(id), 0.25, -0.5}, EnrolledAt: enrolled}
		if err := repo.Append(ctx, tpl); err != nil {
			t.Fatalf("Append(%d): %v", id, err)
		}
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d templates, want 2", len(got))
	}
	if got[1].ID != 1 || got[1].Embedding[0] != 1 || got[1].Embedding[2] != -0.5 {
		t.Errorf("template 1 = %+v", got[1])
	}
	if !got[0].EnrolledAt.Equal(enrolled) {
		t.Errorf("enrolled at = %v", got[0].EnrolledAt)
	}

	if err := repo.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := repo.Remove(ctx, 1); err == nil {
		t.Error("expected error removing a missing template")
	}

	got, err = repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("loaded %d templates after remove, want 1", len(got))
	}
}
