package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/jobtrack/internal/tracker"
)

func newFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStore(dir, func() time.Time { return testTime })
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s, dir
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s, _ := newFileStore(t)

	apps, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if apps == nil || len(apps) != 0 {
		t.Errorf("List = %#v, want empty non-nil", apps)
	}
}

func TestFileStore_CRUD(t *testing.T) {
	s, dir := newFileStore(t)
	ctx := context.Background()

	app, err := s.Create(ctx, acmeInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !app.CreatedAt.Equal(app.UpdatedAt) {
		t.Errorf("CreatedAt %v != UpdatedAt %v", app.CreatedAt, app.UpdatedAt)
	}

	second, err := s.Create(ctx, acmeInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if second.ID == app.ID {
		t.Fatalf("duplicate id %s", app.ID)
	}

	status, applied := tracker.StatusApplied, "2025-01-10"
	patched, err := s.PatchFields(ctx, app.ID, tracker.FieldPatch{Status: &status, AppliedDate: &applied})
	if err != nil {
		t.Fatalf("PatchFields: %v", err)
	}
	if patched.CompanyName != "Acme" || patched.Status != tracker.StatusApplied {
		t.Errorf("patched = %+v", patched)
	}
	if !patched.UpdatedAt.After(app.UpdatedAt) {
		t.Errorf("UpdatedAt did not advance")
	}

	// A fresh store over the same directory sees the persisted values.
	reopened, err := NewFileStore(dir, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	got, err := reopened.Get(ctx, app.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AppliedDate != "2025-01-10" {
		t.Errorf("AppliedDate = %q", got.AppliedDate)
	}

	if err := s.Delete(ctx, app.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, app.ID); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if err := s.Delete(ctx, app.ID); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("second Delete = %v", err)
	}

	apps, _ := s.List(ctx)
	if len(apps) != 1 || apps[0].ID != second.ID {
		t.Errorf("List = %v", apps)
	}
}

func TestFileStore_WritesJSONArray(t *testing.T) {
	s, dir := newFileStore(t)
	if _, err := s.Create(context.Background(), acmeInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, applicationsFile))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("file is not a JSON array: %v", err)
	}
	if len(raw) != 1 || raw[0]["companyName"] != "Acme" {
		t.Errorf("file = %s", data)
	}
	if _, ok := raw[0]["Position"]; ok {
		t.Error("Position leaked into the file")
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	s, dir := newFileStore(t)
	if err := os.WriteFile(filepath.Join(dir, applicationsFile), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := s.List(context.Background())
	if !tracker.IsUpstream(err) {
		t.Errorf("List error = %v, want upstream", err)
	}
}

func TestSettingsFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := NewSettingsFile(dir)
	ctx := context.Background()

	got, err := f.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings on missing file: %v", err)
	}
	if got.SpreadsheetID != "" {
		t.Errorf("SpreadsheetID = %q, want empty", got.SpreadsheetID)
	}

	if err := f.SaveSettings(ctx, tracker.Settings{SpreadsheetID: "sheet-123"}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, err = NewSettingsFile(dir).LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.SpreadsheetID != "sheet-123" {
		t.Errorf("SpreadsheetID = %q", got.SpreadsheetID)
	}
}

func TestFileStore_ConcurrentInterviewsAllKept(t *testing.T) {
	s, _ := newFileStore(t)
	ctx := context.Background()
	app, err := s.Create(ctx, acmeInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const n = 6
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddInterview(ctx, app.ID, tracker.Interview{Date: "2025-01-12", Type: tracker.InterviewPhoneScreen}); err != nil {
				t.Errorf("AddInterview: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, app.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Interviews) != n {
		t.Errorf("interviews = %d, want %d", len(got.Interviews), n)
	}
	if _, err := s.AddInterview(ctx, "missing", tracker.Interview{}); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("AddInterview unknown id = %v, want ErrNotFound", err)
	}
}
