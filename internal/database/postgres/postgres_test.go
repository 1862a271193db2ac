//go:build integration

package postgres

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
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
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
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
	pool, err := NewPool(ctx, dbURL)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return pool, cleanup
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

	embedding := func(seed float32) gallery.Embedding {
		e := make(gallery.Embedding, 512)
		for i := range e {
			e[i] = seed + float32(i)/512
		}
		return e
	}

	t.Run("AppendAndLoad", func(t *testing.T) {
		for id := range 3 {
			tpl := gallery.Template{ID: id, Embedding: embedding(float32(id)), EnrolledAt: enrolled}
			if err := repo.Append(ctx, tpl); err != nil {
				t.Fatalf("Append(%d): %v", id, err)
			}
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("loaded %d templates, want 3", len(got))
		}
		for i, tpl := range got {
			if tpl.ID != i {
				t.Errorf("position %d has id %d", i, tpl.ID)
			}
			if len(tpl.Embedding) != 512 || tpl.Embedding[0] != float32(i) {
				t.Errorf("template %d embedding not round-tripped", i)
			}
			if !tpl.EnrolledAt.Equal(enrolled) {
				t.Errorf("template %d enrolled at %v", i, tpl.EnrolledAt)
			}
		}
	})

	t.Run("DuplicateIDRejected", func(t *testing.T) {
		if err := repo.Append(ctx, gallery.Template{ID: 0, Embedding: embedding(9), EnrolledAt: enrolled}); err == nil {
			t.Error("expected primary key violation")
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := repo.Remove(ctx, 2); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		if err := repo.Remove(ctx, 2); err == nil {
			t.Error("expected error removing a missing template")
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("loaded %d templates after remove, want 2", len(got))
		}
	})

	t.Run("RestoreIntoGallery", func(t *testing.T) {
		g := gallery.New(7, nil)
		if err := g.Restore(ctx, repo); err != nil {
			t.Fatalf("Restore: %v", err)
		}
		id, err := g.Enroll(ctx, embedding(5))
		if err != nil {
			t.Fatalf("Enroll: %v", err)
		}
		if id != 2 {
			t.Errorf("enrolled id = %d, want 2", id)
		}
	})

	t.Run("MigrationsRecorded", func(t *testing.T) {
		if err := pool.Migrate(ctx); err != nil {
			t.Fatalf("second Migrate: %v", err)
		}
		versions, err := pool.MigrationsApplied(ctx)
		if err != nil {
			t.Fatalf("MigrationsApplied: %v", err)
		}
		if len(versions) != 1 || versions[0] != "001_gallery_templates.sql" {
			t.Errorf("applied = %v", versions)
		}
	})
}
