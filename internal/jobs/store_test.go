package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "Episode 12", "Some Podcast")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("job id must be assigned")
	}
	if job.Status != StatusPending {
		t.Fatalf("status = %q", job.Status)
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SourceURL != job.SourceURL || got.EpisodeTitle != "Episode 12" || got.PodcastName != "Some Podcast" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestCreateRequiresURL(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Create(context.Background(), "   ", "", ""); err == nil {
		t.Fatal("expected error for empty source url")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "https://youtu.be/dQw4w9WgXcQ", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.MarkRunning(ctx, job.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	got, _ := store.Get(ctx, job.ID)
	if got.Status != StatusRunning {
		t.Fatalf("status = %q", got.Status)
	}

	if err := store.MarkCompleted(ctx, job.ID, "captions", 4200, 0); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	got, _ = store.Get(ctx, job.ID)
	if got.Status != StatusCompleted || got.Provider != "captions" || got.TranscriptChars != 4200 {
		t.Fatalf("completed job = %+v", got)
	}
	if got.CompletedAt == "" {
		t.Fatal("completed_at must be set")
	}
	if !got.Status.IsTerminal() {
		t.Fatal("completed must be terminal")
	}
}

func TestMarkFailedRecordsCategory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "https://youtu.be/dQw4w9WgXcQ", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, "blocked", "sign in to confirm you're not a bot"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	got, _ := store.Get(ctx, job.ID)
	if got.Status != StatusFailed || got.FailureCategory != "blocked" {
		t.Fatalf("failed job = %+v", got)
	}
}

func TestGetUnknownID(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestListFilterAndOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, _ := store.Create(ctx, "https://youtu.be/aaaaaaaaaaa", "", "")
	second, _ := store.Create(ctx, "https://youtu.be/bbbbbbbbbbb", "", "")
	if err := store.MarkRunning(ctx, second.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}

	all, err := store.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("list size = %d", len(all))
	}

	pending, err := store.List(ctx, StatusPending, 10)
	if err != nil {
		t.Fatalf("List(pending): %v", err)
	}
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Fatalf("pending list = %+v", pending)
	}

	if _, err := store.List(ctx, Status("bogus"), 10); err == nil {
		t.Fatal("unknown status must be rejected")
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job, err := store.Create(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(context.Background(), job.ID); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}
