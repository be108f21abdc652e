package tracker

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

// fakeStore is an in-process Store with optional injected failures.
type fakeStore struct {
	apps       []Application
	next       int
	listErr    error
	refreshErr error
	refreshes  int
	lastPatch  FieldPatch
}

func (f *fakeStore) List(ctx context.Context) ([]Application, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return CloneAll(f.apps), nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (Application, error) {
	for _, a := range f.apps {
		if a.ID == id {
			return a.Clone(), nil
		}
	}
	return Application{}, ErrNotFound
}

func (f *fakeStore) Create(ctx context.Context, in ApplicationInput) (Application, error) {
	f.next++
	a := Application{ID: strconv.Itoa(f.next)}
	in.Apply(&a)
	f.apps = append(f.apps, a)
	return a, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, in ApplicationInput) (Application, error) {
	for i := range f.apps {
		if f.apps[i].ID == id {
			in.Apply(&f.apps[i])
			return f.apps[i].Clone(), nil
		}
	}
	return Application{}, ErrNotFound
}

func (f *fakeStore) PatchFields(ctx context.Context, id string, p FieldPatch) (Application, error) {
	f.lastPatch = p
	for i := range f.apps {
		if f.apps[i].ID == id {
			p.Apply(&f.apps[i])
			return f.apps[i].Clone(), nil
		}
	}
	return Application{}, ErrNotFound
}

func (f *fakeStore) AddInterview(ctx context.Context, id string, iv Interview) (Application, error) {
	for i := range f.apps {
		if f.apps[i].ID == id {
			f.apps[i].Interviews = append(f.apps[i].Interviews, iv)
			return f.apps[i].Clone(), nil
		}
	}
	return Application{}, ErrNotFound
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	for i := range f.apps {
		if f.apps[i].ID == id {
			f.apps = append(f.apps[:i], f.apps[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) Refresh(ctx context.Context) error {
	f.refreshes++
	return f.refreshErr
}

type fakeSource struct{ id string }

func (s *fakeSource) SpreadsheetID() string      { return s.id }
func (s *fakeSource) SetSpreadsheetID(id string) { s.id = id }

type fakeSettings struct {
	saved   Settings
	saveErr error
}

func (s *fakeSettings) LoadSettings(ctx context.Context) (Settings, error) { return s.saved, nil }

func (s *fakeSettings) SaveSettings(ctx context.Context, v Settings) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = v
	return nil
}

func TestService_ListFilters(t *testing.T) {
	store := &fakeStore{apps: []Application{
		{ID: "1", CompanyName: "Acme Corp", Title: "Backend Engineer", Status: StatusApplied},
		{ID: "2", CompanyName: "Globex", Title: "Frontend Engineer", Status: StatusToDo},
		{ID: "3", CompanyName: "acme labs", Title: "Data Scientist", Status: StatusApplied},
	}}
	svc := NewService(store, Options{})
	ctx := context.Background()

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{"no filter", Filter{}, []string{"1", "2", "3"}},
		{"status", Filter{Status: StatusApplied}, []string{"1", "3"}},
		{"company case-insensitive", Filter{CompanyName: "ACME"}, []string{"1", "3"}},
		{"title substring", Filter{Title: "engineer"}, []string{"1", "2"}},
		{"combined", Filter{Status: StatusApplied, Title: "data"}, []string{"3"}},
		{"no match", Filter{CompanyName: "Initech"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if got == nil {
				t.Fatal("List returned nil slice")
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("List = %d records, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("record %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestService_ListRejectsUnknownStatus(t *testing.T) {
	svc := NewService(&fakeStore{}, Options{})
	_, err := svc.List(context.Background(), Filter{Status: "Hired"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("List error = %v, want validation", err)
	}
}

func TestService_CreateValidates(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, Options{})

	if _, err := svc.Create(context.Background(), ApplicationInput{Title: "x"}); !errors.Is(err, ErrValidation) {
		t.Errorf("Create error = %v, want validation", err)
	}
	if len(store.apps) != 0 {
		t.Error("invalid input reached the store")
	}

	app, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if app.CompanyName != "Acme" {
		t.Errorf("CompanyName = %q", app.CompanyName)
	}
}

func TestService_UpdateStatus(t *testing.T) {
	store := &fakeStore{apps: []Application{{ID: "1", CompanyName: "Acme", Status: StatusToDo}}}
	svc := NewService(store, Options{})

	got, err := svc.UpdateStatus(context.Background(), "1", StatusInput{Status: StatusInterviewed})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != StatusInterviewed || got.CompanyName != "Acme" {
		t.Errorf("got %+v", got)
	}
	if fields := store.lastPatch.Fields(); len(fields) != 1 || fields[0] != "status" {
		t.Errorf("patched fields = %v, want [status]", fields)
	}

	if _, err := svc.UpdateStatus(context.Background(), "1", StatusInput{Status: "nope"}); !errors.Is(err, ErrValidation) {
		t.Errorf("UpdateStatus(bad) = %v, want validation", err)
	}
}

func TestService_AddInterview(t *testing.T) {
	existing := Interview{Date: "2025-01-10", Type: InterviewPhoneScreen}
	store := &fakeStore{apps: []Application{{ID: "1", Interviews: []Interview{existing}}}}
	svc := NewService(store, Options{})

	got, err := svc.AddInterview(context.Background(), "1", InterviewInput{Date: "2025-01-17", Type: InterviewOnSite, Notes: "panel"})
	if err != nil {
		t.Fatalf("AddInterview: %v", err)
	}
	if len(got.Interviews) != 2 || got.Interviews[0] != existing || got.Interviews[1].Notes != "panel" {
		t.Errorf("Interviews = %+v", got.Interviews)
	}
	if len(store.apps[0].Interviews) != 2 {
		t.Errorf("stored interviews = %+v", store.apps[0].Interviews)
	}

	if _, err := svc.AddInterview(context.Background(), "missing", InterviewInput{Date: "2025-01-17"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddInterview(missing) = %v, want ErrNotFound", err)
	}
}

func TestService_PatchFieldsRejectsEmpty(t *testing.T) {
	svc := NewService(&fakeStore{apps: []Application{{ID: "1"}}}, Options{})
	if _, err := svc.PatchFields(context.Background(), "1", FieldPatch{}); !errors.Is(err, ErrValidation) {
		t.Errorf("PatchFields(empty) = %v, want validation", err)
	}
}

func TestService_Delete(t *testing.T) {
	store := &fakeStore{apps: []Application{{ID: "1"}}}
	svc := NewService(store, Options{})
	ctx := context.Background()

	if err := svc.Delete(ctx, "1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if err := svc.Delete(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v", err)
	}
}

func TestService_Stats(t *testing.T) {
	store := &fakeStore{apps: statsFixture()}
	svc := NewService(store, Options{Now: func() time.Time { return statsNow }})

	st, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Summary.TotalJobs != 7 || st.LikelyGhosted.Count != 1 {
		t.Errorf("Stats = %+v", st.Summary)
	}

	store.listErr = Upstream("load applications", errors.New("boom"))
	if _, err := svc.Stats(context.Background()); !IsUpstream(err) {
		t.Errorf("Stats error = %v, want upstream", err)
	}
}

func TestService_SetSpreadsheetID(t *testing.T) {
	store := &fakeStore{}
	source := &fakeSource{id: "old"}
	settings := &fakeSettings{}
	svc := NewService(store, Options{Backend: "sheets", Source: source, Settings: settings})
	ctx := context.Background()

	change, err := svc.SetSpreadsheetID(ctx, "  new-id  ")
	if err != nil {
		t.Fatalf("SetSpreadsheetID: %v", err)
	}
	if !change.Refreshed || change.SpreadsheetID != "new-id" {
		t.Errorf("change = %+v", change)
	}
	if source.id != "new-id" || settings.saved.SpreadsheetID != "new-id" || store.refreshes != 1 {
		t.Errorf("source=%q saved=%q refreshes=%d", source.id, settings.saved.SpreadsheetID, store.refreshes)
	}
	if cfg := svc.Config(); cfg.Backend != "sheets" || cfg.SpreadsheetID != "new-id" {
		t.Errorf("Config = %+v", cfg)
	}

	store.refreshErr = errors.New("404")
	change, err = svc.SetSpreadsheetID(ctx, "other-id")
	if err != nil {
		t.Fatalf("SetSpreadsheetID with failing refresh returned %v", err)
	}
	if change.Refreshed || change.Message == "" {
		t.Errorf("change = %+v, want unrefreshed with message", change)
	}

	if _, err := svc.SetSpreadsheetID(ctx, "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("empty id error = %v, want validation", err)
	}

	settings.saveErr = errors.New("disk full")
	refreshes := store.refreshes
	if _, err := svc.SetSpreadsheetID(ctx, "third"); !IsUpstream(err) {
		t.Errorf("save failure error = %v, want upstream", err)
	}
	if source.id != "other-id" {
		t.Errorf("source switched to %q despite failed save", source.id)
	}
	if store.refreshes != refreshes {
		t.Errorf("refreshes = %d after failed save, want %d", store.refreshes, refreshes)
	}
}

func TestService_SetSpreadsheetIDUnsupported(t *testing.T) {
	svc := NewService(&fakeStore{}, Options{Backend: "file"})
	if _, err := svc.SetSpreadsheetID(context.Background(), "abc"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}

func TestService_RestoreSettings(t *testing.T) {
	source := &fakeSource{id: "from-env"}
	settings := &fakeSettings{saved: Settings{SpreadsheetID: "from-file"}}
	svc := NewService(&fakeStore{}, Options{Source: source, Settings: settings})

	if err := svc.RestoreSettings(context.Background()); err != nil {
		t.Fatalf("RestoreSettings: %v", err)
	}
	if source.id != "from-file" {
		t.Errorf("source id = %q, want from-file", source.id)
	}

	settings.saved = Settings{}
	source.id = "from-env"
	svc.RestoreSettings(context.Background())
	if source.id != "from-env" {
		t.Errorf("empty settings overwrote source id: %q", source.id)
	}
}

func TestApplication_Touch(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Application{UpdatedAt: base}

	a.Touch(base)
	if !a.UpdatedAt.Equal(base.Add(time.Millisecond)) {
		t.Errorf("same-instant Touch = %v, want +1ms", a.UpdatedAt)
	}
	a.Touch(base.Add(-time.Hour))
	if !a.UpdatedAt.Equal(base.Add(2 * time.Millisecond)) {
		t.Errorf("backwards Touch = %v, want +2ms", a.UpdatedAt)
	}
	later := base.Add(time.Minute + 123456*time.Nanosecond)
	a.Touch(later)
	if !a.UpdatedAt.Equal(later.Truncate(time.Millisecond)) {
		t.Errorf("forward Touch = %v, want %v", a.UpdatedAt, later.Truncate(time.Millisecond))
	}
}

func TestApplication_CloneIsDeep(t *testing.T) {
	a := Application{Interviews: []Interview{{Date: "2025-01-01"}}}
	b := a.Clone()
	b.Interviews[0].Date = "2030-01-01"
	if a.Interviews[0].Date != "2025-01-01" {
		t.Error("Clone shares the interviews slice")
	}
	if (Application{}).Clone().Interviews == nil {
		t.Error("Clone of zero application has nil interviews")
	}
}

func TestStartCacheWarmer(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		store := &fakeStore{}
		NewService(store, Options{}).StartCacheWarmer(context.Background(), 0)
		if store.refreshes != 0 {
			t.Errorf("refreshes = %d, want 0", store.refreshes)
		}
	})

	t.Run("warms once then stops", func(t *testing.T) {
		store := &fakeStore{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		NewService(store, Options{}).StartCacheWarmer(ctx, time.Hour)
		if store.refreshes != 1 {
			t.Errorf("refreshes = %d, want 1", store.refreshes)
		}
	})

	t.Run("refresh failure is not fatal", func(t *testing.T) {
		store := &fakeStore{refreshErr: errors.New("quota")}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		NewService(store, Options{}).StartCacheWarmer(ctx, time.Hour)
		if store.refreshes != 1 {
			t.Errorf("refreshes = %d, want 1", store.refreshes)
		}
	})
}
