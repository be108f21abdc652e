// Package store implements tracker.Store over a remote worksheet and over
// flat JSON files.
package store

import (
	"context"
	"time"

	"github.com/JonMunkholm/jobtrack/internal/cache"
	"github.com/JonMunkholm/jobtrack/internal/logging"
	"github.com/JonMunkholm/jobtrack/internal/rowstore"
	"github.com/JonMunkholm/jobtrack/internal/sheet"
	"github.com/JonMunkholm/jobtrack/internal/tracker"
)

// Options configures a RowStore.
type Options struct {
	CacheTTL time.Duration
	Limiter  *WriteLimiter
	Now      func() time.Time
}

// RowStore serves reads from a cached snapshot of the worksheet and writes
// through to it. A mutation reaches the remote store before the cache; a
// failed remote call leaves the cache untouched.
type RowStore struct {
	remote  rowstore.Store
	codec   sheet.Codec
	cache   *cache.Cache
	limiter *WriteLimiter
	now     func() time.Time
	ids     idSource
}

// NewRowStore returns a store over remote with an empty cache.
func NewRowStore(remote rowstore.Store, opts Options) *RowStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Limiter == nil {
		opts.Limiter = NewWriteLimiter(DefaultMaxConcurrentWrites, DefaultMaxWriteWait)
	}
	s := &RowStore{
		remote:  remote,
		codec:   sheet.Codec{Now: opts.Now},
		limiter: opts.Limiter,
		now:     opts.Now,
	}
	s.cache = cache.New(s.load, cache.Options{TTL: opts.CacheTTL, Now: opts.Now})
	return s
}

// Limiter returns the limiter guarding mutations.
func (s *RowStore) Limiter() *WriteLimiter {
	return s.limiter
}

func (s *RowStore) load(ctx context.Context) ([]tracker.Application, error) {
	rows, err := s.remote.Get(ctx)
	if err != nil {
		return nil, err
	}

	codec := s.codec
	codec.Logger = logging.FromContext(ctx)

	apps := make([]tracker.Application, 0, len(rows))
	for i, row := range rows {
		app, ok := codec.Decode(row, rowstore.FirstDataRow+i)
		if !ok {
			continue
		}
		s.ids.observe(app.ID)
		apps = append(apps, app)
	}
	logging.FromContext(ctx).Debug("applications loaded", "rows", len(rows), "records", len(apps))
	return apps, nil
}

// List returns every record in row order.
func (s *RowStore) List(ctx context.Context) ([]tracker.Application, error) {
	apps, err := s.cache.EnsureFresh(ctx)
	if err != nil {
		return nil, s.fail(ctx, "load applications", err)
	}
	return apps, nil
}

// Get returns the record with id.
func (s *RowStore) Get(ctx context.Context, id string) (tracker.Application, error) {
	apps, err := s.List(ctx)
	if err != nil {
		return tracker.Application{}, err
	}
	for _, a := range apps {
		if a.ID == id {
			return a, nil
		}
	}
	return tracker.Application{}, tracker.ErrNotFound
}

// Create appends a new record. When the remote store does not report where
// the row landed, the cache is dropped so the next read picks it up.
func (s *RowStore) Create(ctx context.Context, in tracker.ApplicationInput) (tracker.Application, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return tracker.Application{}, err
	}
	defer s.limiter.Release()

	// Snapshot first so ids already in the sheet are known.
	existing, err := s.List(ctx)
	if err != nil {
		return tracker.Application{}, err
	}
	if len(existing) == 0 {
		s.writeHeader(ctx)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	app := tracker.Application{ID: s.ids.next(now), CreatedAt: now, UpdatedAt: now}
	in.Apply(&app)

	res, err := s.remote.Append(ctx, s.codec.Encode(app))
	if err != nil {
		return tracker.Application{}, s.fail(ctx, "create application", err)
	}

	logger := logging.WithFields(ctx, "id", app.ID)
	row, ok := res.Row()
	if !ok {
		logger.Warn("append range not reported, invalidating cache", "updated_range", res.UpdatedRange)
		s.cache.Invalidate()
		return app, nil
	}
	app.Position = row

	// A row that lands at or above a cached record may have shifted it.
	if row <= lastPosition(existing) {
		logger.Info("append filled an earlier row, invalidating cache", "row", row)
		s.cache.Invalidate()
		return app, nil
	}
	s.cache.Insert(app)
	return app, nil
}

// writeHeader puts the column names into row 1 of a worksheet that holds no
// records yet. A failure is logged; the header is not needed to read rows.
func (s *RowStore) writeHeader(ctx context.Context) {
	hw, ok := s.remote.(rowstore.HeaderWriter)
	if !ok {
		return
	}
	if err := hw.WriteHeader(ctx, sheet.Header()); err != nil {
		logging.FromContext(ctx).Warn("could not write header row", "error", err)
	}
}

func lastPosition(apps []tracker.Application) int {
	last := 0
	for _, a := range apps {
		last = max(last, a.Position)
	}
	return last
}

// Update rewrites the whole row of id. The id and createdAt are kept.
func (s *RowStore) Update(ctx context.Context, id string, in tracker.ApplicationInput) (tracker.Application, error) {
	return s.mutate(ctx, id, "update application", func(app *tracker.Application) error {
		in.Apply(app)
		app.Touch(s.now())
		return s.remote.Update(ctx, app.Position, s.codec.Encode(*app))
	})
}

// PatchFields writes only the cells of the fields set on p, plus updatedAt.
func (s *RowStore) PatchFields(ctx context.Context, id string, p tracker.FieldPatch) (tracker.Application, error) {
	return s.mutate(ctx, id, "update application", func(app *tracker.Application) error {
		p.Apply(app)
		app.Touch(s.now())
		return s.remote.BatchUpdate(ctx, sheet.BuildPatch(*app, p.Fields()))
	})
}

// AddInterview appends iv to the interviews of id. The read and the write
// happen under the write limiter so concurrent additions are not lost.
func (s *RowStore) AddInterview(ctx context.Context, id string, iv tracker.Interview) (tracker.Application, error) {
	return s.mutate(ctx, id, "add interview", func(app *tracker.Application) error {
		app.Interviews = append(app.Interviews, iv)
		app.Touch(s.now())
		return s.remote.BatchUpdate(ctx, sheet.BuildPatch(*app, []string{"interviews"}))
	})
}

// Delete clears the row of id.
func (s *RowStore) Delete(ctx context.Context, id string) error {
	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer s.limiter.Release()

	app, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.remote.Clear(ctx, app.Position); err != nil {
		return s.fail(ctx, "delete application", err)
	}
	s.cache.Remove(id)
	return nil
}

// Refresh drops the snapshot and loads a new one.
func (s *RowStore) Refresh(ctx context.Context) error {
	s.cache.Invalidate()
	if _, err := s.cache.EnsureFresh(ctx); err != nil {
		return s.fail(ctx, "refresh applications", err)
	}
	return nil
}

// mutate runs write against a copy of the cached record and splices the
// result back in once write succeeds.
func (s *RowStore) mutate(ctx context.Context, id, op string, write func(app *tracker.Application) error) (tracker.Application, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return tracker.Application{}, err
	}
	defer s.limiter.Release()

	app, err := s.Get(ctx, id)
	if err != nil {
		return tracker.Application{}, err
	}
	if err := write(&app); err != nil {
		return tracker.Application{}, s.fail(ctx, op, err)
	}
	if !s.cache.Replace(id, app) {
		s.cache.Invalidate()
	}
	return app, nil
}

func (s *RowStore) fail(ctx context.Context, op string, err error) error {
	logging.FromContext(ctx).Error("remote store call failed", "op", op, "error", err)
	return tracker.Upstream(op, err)
}
