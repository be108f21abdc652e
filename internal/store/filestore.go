package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/JonMunkholm/jobtrack/internal/tracker"
)

const (
	applicationsFile = "applications.json"
	settingsFile     = "settings.json"
)

// SettingsFile persists tracker.Settings as a JSON object.
type SettingsFile struct {
	path string
	mu   sync.Mutex
}

// NewSettingsFile returns a settings store writing settings.json in dir.
func NewSettingsFile(dir string) *SettingsFile {
	return &SettingsFile{path: filepath.Join(dir, settingsFile)}
}

// LoadSettings reads the file. A missing file yields zero settings.
func (f *SettingsFile) LoadSettings(ctx context.Context) (tracker.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s tracker.Settings
	if err := readJSON(f.path, &s); err != nil {
		return tracker.Settings{}, err
	}
	return s, nil
}

// SaveSettings rewrites the file.
func (f *SettingsFile) SaveSettings(ctx context.Context, s tracker.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeJSON(f.path, s)
}

// FileStore keeps every record in one JSON array that is rewritten on each
// mutation. It suits a single local process.
type FileStore struct {
	*SettingsFile

	path string
	now  func() time.Time
	ids  idSource

	mu sync.Mutex
}

// NewFileStore stores applications.json and settings.json in dir, creating
// dir if needed.
func NewFileStore(dir string, now func() time.Time) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &FileStore{
		SettingsFile: NewSettingsFile(dir),
		path:         filepath.Join(dir, applicationsFile),
		now:          now,
	}, nil
}

func (s *FileStore) read() ([]tracker.Application, error) {
	var apps []tracker.Application
	if err := readJSON(s.path, &apps); err != nil {
		return nil, tracker.Upstream("load applications", err)
	}
	out := make([]tracker.Application, 0, len(apps))
	for i, a := range apps {
		if a.ID == "" {
			continue
		}
		if a.Interviews == nil {
			a.Interviews = []tracker.Interview{}
		}
		a.Position = i + 1
		s.ids.observe(a.ID)
		out = append(out, a)
	}
	return out, nil
}

func (s *FileStore) write(op string, apps []tracker.Application) error {
	if err := writeJSON(s.path, apps); err != nil {
		return tracker.Upstream(op, err)
	}
	return nil
}

// List returns every record in file order.
func (s *FileStore) List(ctx context.Context) ([]tracker.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Get returns the record with id.
func (s *FileStore) Get(ctx context.Context, id string) (tracker.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apps, err := s.read()
	if err != nil {
		return tracker.Application{}, err
	}
	i := indexOf(apps, id)
	if i < 0 {
		return tracker.Application{}, tracker.ErrNotFound
	}
	return apps[i], nil
}

// Create appends a new record.
func (s *FileStore) Create(ctx context.Context, in tracker.ApplicationInput) (tracker.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apps, err := s.read()
	if err != nil {
		return tracker.Application{}, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	app := tracker.Application{ID: s.ids.next(now), CreatedAt: now, UpdatedAt: now}
	in.Apply(&app)
	app.Position = len(apps) + 1

	if err := s.write("create application", append(apps, app)); err != nil {
		return tracker.Application{}, err
	}
	return app, nil
}

// Update replaces every editable field of id.
func (s *FileStore) Update(ctx context.Context, id string, in tracker.ApplicationInput) (tracker.Application, error) {
	return s.mutate(id, func(a *tracker.Application) { in.Apply(a) })
}

// PatchFields writes the fields set on p.
func (s *FileStore) PatchFields(ctx context.Context, id string, p tracker.FieldPatch) (tracker.Application, error) {
	return s.mutate(id, func(a *tracker.Application) { p.Apply(a) })
}

// AddInterview appends iv to the interviews of id.
func (s *FileStore) AddInterview(ctx context.Context, id string, iv tracker.Interview) (tracker.Application, error) {
	return s.mutate(id, func(a *tracker.Application) { a.Interviews = append(a.Interviews, iv) })
}

func (s *FileStore) mutate(id string, change func(a *tracker.Application)) (tracker.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apps, err := s.read()
	if err != nil {
		return tracker.Application{}, err
	}
	i := indexOf(apps, id)
	if i < 0 {
		return tracker.Application{}, tracker.ErrNotFound
	}

	app := apps[i].Clone()
	change(&app)
	app.Touch(s.now())
	apps[i] = app

	if err := s.write("update application", apps); err != nil {
		return tracker.Application{}, err
	}
	return app, nil
}

// Delete removes id from the file.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	apps, err := s.read()
	if err != nil {
		return err
	}
	i := indexOf(apps, id)
	if i < 0 {
		return tracker.ErrNotFound
	}
	return s.write("delete application", append(apps[:i], apps[i+1:]...))
}

// Refresh is a no-op; every call reads the file.
func (s *FileStore) Refresh(ctx context.Context) error {
	return nil
}

func indexOf(apps []tracker.Application, id string) int {
	for i := range apps {
		if apps[i].ID == id {
			return i
		}
	}
	return -1
}

// readJSON decodes path into v. A missing or empty file leaves v untouched.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON replaces path atomically with the encoding of v.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
