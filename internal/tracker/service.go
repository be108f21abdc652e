package tracker

import (
	"context"
	"strings"
	"time"

	"github.com/JonMunkholm/jobtrack/internal/logging"
)

// Store is the data-access layer behind the service. Implementations return
// ErrNotFound for unknown ids and wrap backing-store failures as *UpstreamError.
type Store interface {
	List(ctx context.Context) ([]Application, error)
	Get(ctx context.Context, id string) (Application, error)
	Create(ctx context.Context, in ApplicationInput) (Application, error)
	Update(ctx context.Context, id string, in ApplicationInput) (Application, error)
	PatchFields(ctx context.Context, id string, p FieldPatch) (Application, error)
	AddInterview(ctx context.Context, id string, iv Interview) (Application, error)
	Delete(ctx context.Context, id string) error
	Refresh(ctx context.Context) error
}

// Settings are the user-adjustable values persisted next to the data.
type Settings struct {
	SpreadsheetID string `json:"spreadsheetId,omitempty"`
}

// SettingsStore persists Settings.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// SourceSwitcher retargets a spreadsheet-backed store at another document.
type SourceSwitcher interface {
	SpreadsheetID() string
	SetSpreadsheetID(id string)
}

// Filter narrows List results. Empty fields match everything; text fields
// match case-insensitive substrings.
type Filter struct {
	Status      Status
	CompanyName string
	Title       string
}

// Validate rejects an unknown status filter.
func (f Filter) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return NewValidationError("status", "must be one of: "+joinValues(Statuses))
	}
	return nil
}

func (f Filter) match(a Application) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.CompanyName != "" && !containsFold(a.CompanyName, f.CompanyName) {
		return false
	}
	if f.Title != "" && !containsFold(a.Title, f.Title) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Config is the externally visible store configuration.
type Config struct {
	Backend       string `json:"backend"`
	SpreadsheetID string `json:"spreadsheetId"`
}

// SpreadsheetChange reports the outcome of retargeting the spreadsheet.
type SpreadsheetChange struct {
	SpreadsheetID string `json:"spreadsheetId"`
	Message       string `json:"message"`
	Refreshed     bool   `json:"refreshed"`
}

// Options configures a Service. Settings and Source may be nil when the
// backend has nothing to persist or retarget.
type Options struct {
	Backend  string
	Settings SettingsStore
	Source   SourceSwitcher
	Stats    StatsOptions
	Now      func() time.Time
}

// Service implements the application operations exposed over HTTP.
type Service struct {
	store    Store
	backend  string
	settings SettingsStore
	source   SourceSwitcher
	stats    StatsOptions
	now      func() time.Time
}

// NewService wires a Service around store.
func NewService(store Store, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Stats.GhostAfter <= 0 {
		opts.Stats.GhostAfter = DefaultGhostAfter
	}
	return &Service{
		store:    store,
		backend:  opts.Backend,
		settings: opts.Settings,
		source:   opts.Source,
		stats:    opts.Stats,
		now:      opts.Now,
	}
}

// List returns the applications matching f in store order. The result is
// never nil.
func (s *Service) List(ctx context.Context, f Filter) ([]Application, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	apps, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Application, 0, len(apps))
	for _, a := range apps {
		if f.match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Get returns one application.
func (s *Service) Get(ctx context.Context, id string) (Application, error) {
	return s.store.Get(ctx, id)
}

// Create validates and stores a new application.
func (s *Service) Create(ctx context.Context, in ApplicationInput) (Application, error) {
	if err := in.ValidateCreate(); err != nil {
		return Application{}, err
	}
	app, err := s.store.Create(ctx, in)
	if err != nil {
		return Application{}, err
	}
	logging.WithFields(ctx, "id", app.ID).Info("application created", "company", app.CompanyName)
	return app, nil
}

// Update replaces every editable field of an application.
func (s *Service) Update(ctx context.Context, id string, in ApplicationInput) (Application, error) {
	if err := in.ValidateUpdate(); err != nil {
		return Application{}, err
	}
	return s.store.Update(ctx, id, in)
}

// PatchFields writes only the fields set on p.
func (s *Service) PatchFields(ctx context.Context, id string, p FieldPatch) (Application, error) {
	if err := p.Validate(); err != nil {
		return Application{}, err
	}
	return s.store.PatchFields(ctx, id, p)
}

// UpdateStatus moves an application to another pipeline state.
func (s *Service) UpdateStatus(ctx context.Context, id string, in StatusInput) (Application, error) {
	if err := in.Validate(); err != nil {
		return Application{}, err
	}
	status := in.Status
	return s.store.PatchFields(ctx, id, FieldPatch{Status: &status})
}

// AddInterview appends an interview round to an application.
func (s *Service) AddInterview(ctx context.Context, id string, in InterviewInput) (Application, error) {
	if err := in.Validate(); err != nil {
		return Application{}, err
	}
	return s.store.AddInterview(ctx, id, in.Interview())
}

// Delete removes an application.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logging.WithFields(ctx, "id", id).Info("application deleted")
	return nil
}

// Refresh drops cached state and reloads from the backing store.
func (s *Service) Refresh(ctx context.Context) error {
	return s.store.Refresh(ctx)
}

// Stats computes dashboard statistics over every application.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	apps, err := s.store.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(apps, s.now(), s.stats), nil
}

// Config reports the active backend and spreadsheet.
func (s *Service) Config() Config {
	cfg := Config{Backend: s.backend}
	if s.source != nil {
		cfg.SpreadsheetID = s.source.SpreadsheetID()
	}
	return cfg
}

// SetSpreadsheetID persists the choice, points the store at another
// spreadsheet and attempts a reload. A failed save leaves the current
// spreadsheet in place; a failed reload is reported, not returned.
func (s *Service) SetSpreadsheetID(ctx context.Context, id string) (SpreadsheetChange, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return SpreadsheetChange{}, NewValidationError("spreadsheetId", "is required")
	}
	if s.source == nil {
		return SpreadsheetChange{}, ErrUnsupported
	}

	if s.settings != nil {
		if err := s.settings.SaveSettings(ctx, Settings{SpreadsheetID: id}); err != nil {
			return SpreadsheetChange{}, Upstream("save settings", err)
		}
	}
	s.source.SetSpreadsheetID(id)

	logger := logging.WithFields(ctx, "spreadsheet_id", id)
	change := SpreadsheetChange{SpreadsheetID: id}
	if err := s.store.Refresh(ctx); err != nil {
		logger.Warn("refresh after spreadsheet change failed", "error", err)
		change.Message = "Spreadsheet ID saved. Could not fetch data; check that the sheet exists and is shared with the service account."
		return change, nil
	}

	logger.Info("spreadsheet changed")
	change.Refreshed = true
	change.Message = "Spreadsheet ID updated and data refreshed"
	return change, nil
}

// RestoreSettings applies persisted settings at startup. Missing settings are
// not an error.
func (s *Service) RestoreSettings(ctx context.Context) error {
	if s.settings == nil || s.source == nil {
		return nil
	}
	saved, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if saved.SpreadsheetID != "" && saved.SpreadsheetID != s.source.SpreadsheetID() {
		s.source.SetSpreadsheetID(saved.SpreadsheetID)
		logging.FromContext(ctx).Info("restored spreadsheet id from settings", "spreadsheet_id", saved.SpreadsheetID)
	}
	return nil
}
