package history

import (
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) == 0 || len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, idx := range []string{"idx_generations_created", "idx_generations_task"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestSaveAndGetGeneration(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	want := Generation{
		ID:            "gen-001",
		CreatedAt:     now,
		Provider:      "ollama",
		Model:         "llama3.1",
		TaskID:        "create-test-plan",
		PromptChars:   120,
		ResponseChars: 2048,
		DurationMs:    3500,
	}
	if err := s.SaveGeneration(want); err != nil {
		t.Fatalf("SaveGeneration: %v", err)
	}

	got, err := s.GetGeneration("gen-001")
	if err != nil {
		t.Fatalf("GetGeneration: %v", err)
	}
	want.Status = StatusCompleted
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if got != want {
		t.Errorf("GetGeneration = %+v, want %+v", got, want)
	}
}

func TestGetGenerationNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetGeneration("does-not-exist")
	if err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListGenerationsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		g := Generation{
			ID:        fmt.Sprintf("gen-%d", i),
			CreatedAt: base.Add(time.Duration(i) * 500 * time.Millisecond),
			Provider:  "openai",
			Model:     "gpt-4.1",
			Status:    StatusFailed,
			Error:     "boom",
		}
		if err := s.SaveGeneration(g); err != nil {
			t.Fatalf("SaveGeneration: %v", err)
		}
	}

	page, err := s.ListGenerations(2, 1)
	if err != nil {
		t.Fatalf("ListGenerations: %v", err)
	}
	if len(page) != 2 || page[0].ID != "gen-3" || page[1].ID != "gen-2" {
		t.Errorf("page = %+v", page)
	}
	if page[0].Status != StatusFailed || page[0].Error != "boom" {
		t.Errorf("status/error not round-tripped: %+v", page[0])
	}

	all, err := s.ListGenerations(0, 0)
	if err != nil || len(all) != 5 {
		t.Errorf("ListGenerations(0,0) = %d items, %v", len(all), err)
	}
}

func TestListGenerationsEmpty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ListGenerations(10, 0)
	if err != nil {
		t.Fatalf("ListGenerations: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

func TestSettings(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetSetting("llm.model"); err != ErrNotFound {
		t.Errorf("GetSetting on empty = %v, want ErrNotFound", err)
	}
	if err := s.SetSetting("llm.model", "llama3.1"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := s.SetSetting("llm.model", "qwen2.5"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	if err := s.SetSetting("llm.provider", "openai"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}

	v, err := s.GetSetting("llm.model")
	if err != nil || v != "qwen2.5" {
		t.Errorf("GetSetting = %q, %v", v, err)
	}
	all, err := s.GetAllSettings()
	if err != nil {
		t.Fatalf("GetAllSettings: %v", err)
	}
	if len(all) != 2 || all["llm.provider"] != "openai" {
		t.Errorf("GetAllSettings = %v", all)
	}
}
