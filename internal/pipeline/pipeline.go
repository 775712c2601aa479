// Package pipeline runs every source of a build: fetch, decode,
// transform and write, with bounded parallelism and dependency ordering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"dotaconstants/internal/feed"
	"dotaconstants/internal/storage"
	"dotaconstants/internal/telemetry"
	"dotaconstants/internal/transform"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	defaultWorkers          = 6
	defaultFetchConcurrency = 8
)

var (
	// ErrDependencyFailed marks a source whose prerequisite failed.
	ErrDependencyFailed = errors.New("dependency failed")

	// ErrUnknownDependency marks a source list naming a missing source.
	ErrUnknownDependency = errors.New("unknown dependency")
)

// Store records runs, documents and the upgrade value index.
type Store interface {
	StartRun(ctx context.Context, runID string, started time.Time) error
	FinishRun(ctx context.Context, runID string, finished time.Time, runErr error) error
	SaveUpgradeValues(ctx context.Context, runID string, index *transform.UpgradeIndex) error
	SaveDocument(ctx context.Context, runID string, doc storage.Document) error
}

// Publisher pushes a finished document to a remote destination.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, runID string, doc storage.Document, body []byte) error
}

// SourceError is the failure of one source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Report summarizes a run.
type Report struct {
	RunID     string
	Started   time.Time
	Duration  time.Duration
	Documents []storage.Document
	Skipped   []string
	Failures  []*SourceError
}

// Runner executes sources against a feed client and writer.
type Runner struct {
	client     *feed.Client
	writer     *storage.Writer
	store      Store
	publishers []Publisher
	sources    []Source

	workers          int
	fetchConcurrency int
	staticDir        string
	indexPath        string
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore persists runs and documents.
func WithStore(s Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithPublishers adds remote destinations for every document.
func WithPublishers(p ...Publisher) Option {
	return func(r *Runner) { r.publishers = append(r.publishers, p...) }
}

// WithSources replaces the default source list.
func WithSources(sources []Source) Option {
	return func(r *Runner) { r.sources = sources }
}

// WithWorkers bounds how many sources transform at once.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithFetchConcurrency bounds in-flight feed requests across sources.
func WithFetchConcurrency(n int) Option {
	return func(r *Runner) { r.fetchConcurrency = n }
}

// WithStaticDir sets the directory of hand-maintained documents copied
// into the build.
func WithStaticDir(dir string) Option {
	return func(r *Runner) { r.staticDir = dir }
}

// WithIndexPath sets where the loader module is generated; empty disables it.
func WithIndexPath(path string) Option {
	return func(r *Runner) { r.indexPath = path }
}

// New creates a Runner over the default sources.
func New(client *feed.Client, writer *storage.Writer, opts ...Option) *Runner {
	r := &Runner{
		client:           client,
		writer:           writer,
		sources:          Sources(),
		workers:          defaultWorkers,
		fetchConcurrency: defaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = 1
	}
	if r.fetchConcurrency < 1 {
		r.fetchConcurrency = 1
	}
	return r
}

type sourceStatus int

const (
	statusDone sourceStatus = iota
	statusSkipped
	statusFailed
)

// task is the run state of one source. Its results are written by the
// source's goroutine and read by others only after done is closed.
type task struct {
	source Source
	done   chan struct{}

	status sourceStatus
	out    any
	doc    storage.Document
	err    error
}

// Run executes every source, then finalizes the build if all of them
// succeeded or were skipped. The returned error joins every source
// failure.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Started: time.Now()}

	ctx, span := telemetry.Tracer("pipeline").Start(ctx, "pipeline.Run")
	span.SetAttributes(attribute.String("run.id", report.RunID))
	defer span.End()

	tasks, err := r.plan()
	if err != nil {
		return report, err
	}

	if r.store != nil {
		if err := r.store.StartRun(ctx, report.RunID, report.Started); err != nil {
			return report, fmt.Errorf("start run: %w", err)
		}
	}

	log.Printf("[Pipeline] Run %s: %d sources, %d workers", report.RunID, len(r.sources), r.workers)

	st := transform.NewState()
	workers := semaphore.NewWeighted(int64(r.workers))
	fetches := semaphore.NewWeighted(int64(r.fetchConcurrency))

	var g errgroup.Group
	for _, s := range r.sources {
		t := tasks[s.Key]
		g.Go(func() error {
			defer close(t.done)
			t.out, t.doc, t.status, t.err = r.runSource(ctx, report.RunID, t, tasks, st, workers, fetches)
			if t.err != nil {
				log.Printf("[Pipeline] %s failed: %v", s.Key, t.err)
			}
			return nil
		})
	}
	g.Wait()

	for _, s := range r.sources {
		t := tasks[s.Key]
		switch t.status {
		case statusDone:
			report.Documents = append(report.Documents, t.doc)
		case statusSkipped:
			report.Skipped = append(report.Skipped, s.Key)
		case statusFailed:
			report.Failures = append(report.Failures, &SourceError{Source: s.Key, Err: t.err})
		}
	}

	var runErr error
	if len(report.Failures) > 0 {
		errs := make([]error, len(report.Failures))
		for i, f := range report.Failures {
			errs[i] = f
		}
		runErr = errors.Join(errs...)
	} else {
		runErr = r.finalize(report)
	}

	report.Duration = time.Since(report.Started)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "run failed")
	}

	if r.store != nil {
		if err := r.store.FinishRun(ctx, report.RunID, time.Now(), runErr); err != nil {
			log.Printf("[Pipeline] Warning: failed to record run end: %v", err)
		}
	}

	log.Printf("[Pipeline] Run %s finished in %s: %d documents, %d skipped, %d failed",
		report.RunID, report.Duration.Round(time.Millisecond), len(report.Documents), len(report.Skipped), len(report.Failures))
	return report, runErr
}

// plan indexes the sources and checks their dependencies.
func (r *Runner) plan() (map[string]*task, error) {
	tasks := make(map[string]*task, len(r.sources))
	for _, s := range r.sources {
		if _, dup := tasks[s.Key]; dup {
			return nil, fmt.Errorf("source %s declared twice", s.Key)
		}
		tasks[s.Key] = &task{source: s, done: make(chan struct{})}
	}
	for _, s := range r.sources {
		for _, dep := range s.Needs {
			if _, ok := tasks[dep]; !ok {
				return nil, fmt.Errorf("%s needs %s: %w", s.Key, dep, ErrUnknownDependency)
			}
		}
	}
	if cyclic := findCycle(r.sources); cyclic != "" {
		return nil, fmt.Errorf("dependency cycle through %s", cyclic)
	}
	return tasks, nil
}

func findCycle(sources []Source) string {
	needs := make(map[string][]string, len(sources))
	for _, s := range sources {
		needs[s.Key] = s.Needs
	}
	const (
		visiting = 1
		visited  = 2
	)
	state := make(map[string]int, len(sources))
	var visit func(key string) string
	visit = func(key string) string {
		switch state[key] {
		case visiting:
			return key
		case visited:
			return ""
		}
		state[key] = visiting
		for _, dep := range needs[key] {
			if c := visit(dep); c != "" {
				return c
			}
		}
		state[key] = visited
		return ""
	}
	for _, s := range sources {
		if c := visit(s.Key); c != "" {
			return c
		}
	}
	return ""
}

func (r *Runner) runSource(ctx context.Context, runID string, t *task, tasks map[string]*task, st *transform.State, workers, fetches *semaphore.Weighted) (any, storage.Document, sourceStatus, error) {
	s := t.source
	deps := make(map[string]any, len(s.Needs))
	for _, name := range s.Needs {
		dep := tasks[name]
		select {
		case <-dep.done:
		case <-ctx.Done():
			return nil, storage.Document{}, statusFailed, ctx.Err()
		}
		switch dep.status {
		case statusFailed:
			return nil, storage.Document{}, statusFailed, fmt.Errorf("needs %s: %w", name, ErrDependencyFailed)
		case statusSkipped:
			log.Printf("[Pipeline] Skipping %s: %s was skipped", s.Key, name)
			return nil, storage.Document{}, statusSkipped, nil
		}
		deps[name] = dep.out
	}

	if s.RequiresToken() && !r.client.HasToken() {
		log.Printf("[Pipeline] Skipping %s: no token configured", s.Key)
		return nil, storage.Document{}, statusSkipped, nil
	}

	if err := workers.Acquire(ctx, 1); err != nil {
		return nil, storage.Document{}, statusFailed, err
	}
	defer workers.Release(1)

	ctx, span := telemetry.Tracer("pipeline").Start(ctx, "source "+s.Key)
	defer span.End()

	out, doc, err := r.build(ctx, runID, s, deps, st, fetches)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "source failed")
		return nil, storage.Document{}, statusFailed, err
	}
	span.SetAttributes(attribute.Int64("document.size", doc.Size))
	return out, doc, statusDone, nil
}

func (r *Runner) build(ctx context.Context, runID string, s Source, deps map[string]any, st *transform.State, fetches *semaphore.Weighted) (any, storage.Document, error) {
	specs := s.Feeds
	if s.Expand != nil {
		more, err := s.Expand(deps)
		if err != nil {
			return nil, storage.Document{}, fmt.Errorf("expand feeds: %w", err)
		}
		specs = append(slices.Clone(specs), more...)
	}

	feeds, err := r.fetchAll(ctx, specs, fetches)
	if err != nil {
		return nil, storage.Document{}, err
	}

	out, err := s.Transform(Inputs{Feeds: feeds, Deps: deps, State: st})
	if err != nil {
		return nil, storage.Document{}, fmt.Errorf("transform: %w", err)
	}

	if s.Seals {
		st.Upgrades.Seal()
		if r.store != nil {
			if err := r.store.SaveUpgradeValues(ctx, runID, st.Upgrades); err != nil {
				return nil, storage.Document{}, fmt.Errorf("save upgrade values: %w", err)
			}
		}
		log.Printf("[Pipeline] Upgrade index sealed with %d abilities", st.Upgrades.Len())
	}

	doc, err := r.writer.Write(s.Key, out)
	if err != nil {
		return nil, storage.Document{}, err
	}
	fmt.Printf("  Wrote %s (%d bytes)\n", doc.Name, doc.Size)

	r.persist(ctx, runID, doc)
	return out, doc, nil
}

// fetchAll loads every feed of a source concurrently, keeping order.
func (r *Runner) fetchAll(ctx context.Context, specs []feed.Spec, fetches *semaphore.Weighted) ([]any, error) {
	feeds := make([]any, len(specs))
	g, ctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			if err := fetches.Acquire(ctx, 1); err != nil {
				return err
			}
			defer fetches.Release(1)

			v, err := r.client.Load(ctx, spec)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", spec.URL, err)
			}
			feeds[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return feeds, nil
}

// persist records a written document in the store and pushes it to every
// publisher. Failures here are logged; the document on disk stands.
func (r *Runner) persist(ctx context.Context, runID string, doc storage.Document) {
	if r.store != nil {
		if err := r.store.SaveDocument(ctx, runID, doc); err != nil {
			log.Printf("[Pipeline] Warning: failed to record %s: %v", doc.Name, err)
		}
	}
	if len(r.publishers) == 0 {
		return
	}

	body, err := os.ReadFile(doc.Path)
	if err != nil {
		log.Printf("[Pipeline] Warning: failed to read %s for publishing: %v", doc.Name, err)
		return
	}

	var wg sync.WaitGroup
	for _, p := range r.publishers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Publish(ctx, runID, doc, body); err != nil {
				log.Printf("[Pipeline] Warning: %s publish of %s failed: %v", p.Name(), doc.Name, err)
			}
		}()
	}
	wg.Wait()
}

// sortDocuments orders documents by name.
func sortDocuments(docs []storage.Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
}
