// Package catalogue evaluates the observing list for a date, persists the
// result once per date and filters it by direction and altitude.
package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yetanothergithubaccount/ObsPi/internal/compass"
	"github.com/yetanothergithubaccount/ObsPi/internal/frame"
	"github.com/yetanothergithubaccount/ObsPi/internal/metrics"
	"github.com/yetanothergithubaccount/ObsPi/internal/resolver"
	"github.com/yetanothergithubaccount/ObsPi/internal/store"
	"github.com/yetanothergithubaccount/ObsPi/internal/transform"
	"github.com/yetanothergithubaccount/ObsPi/internal/visibility"
)

// fixedClock lists the quick-glance sample times as (day offset, hour,
// minute), evening to morning.
var fixedClock = [6]struct {
	day, hour, min int
}{
	{0, 18, 59},
	{0, 20, 59},
	{0, 21, 59},
	{1, 0, 0},
	{1, 1, 59},
	{1, 3, 59},
}

// Config controls an Evaluator.
type Config struct {
	Location      transform.Location
	ObjectTimeout time.Duration
	Workers       int
	// OnProgress, when set, is called after every object of a run.
	OnProgress func(Progress)
}

// Progress reports one finished object of a run.
type Progress struct {
	RunID string  `json:"run_id"`
	Date  string  `json:"date"`
	Name  string  `json:"name"`
	Done  int     `json:"done"`
	Total int     `json:"total"`
	Score float64 `json:"score"`
	Error string  `json:"error,omitempty"`
}

// Skip names an object left out of a run and why.
type Skip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report summarizes a run.
type Report struct {
	RunID     string        `json:"run_id"`
	Date      string        `json:"date"`
	Total     int           `json:"total"`
	Evaluated int           `json:"evaluated"`
	Skipped   []Skip        `json:"skipped,omitempty"`
	Loaded    bool          `json:"loaded"`
	Duration  time.Duration `json:"duration"`
}

// Evaluator runs the per-object pipeline over a catalogue.
type Evaluator struct {
	provider frame.Provider
	store    *store.Store
	pool     *WorkerPool
	config   Config
	logger   *slog.Logger
	runs     singleflight.Group
}

// NewEvaluator creates an Evaluator. st may be nil to skip persistence.
func NewEvaluator(p frame.Provider, st *store.Store, cfg Config, logger *slog.Logger) *Evaluator {
	if cfg.ObjectTimeout <= 0 {
		cfg.ObjectTimeout = 30 * time.Second
	}
	return &Evaluator{
		provider: p,
		store:    st,
		pool:     NewWorkerPool(cfg.Workers, logger),
		config:   cfg,
		logger:   logger,
	}
}

// EvaluateObject scores one object for the night starting on date.
func (e *Evaluator) EvaluateObject(ctx context.Context, name string, date time.Time) (Record, visibility.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.ObjectTimeout)
	defer cancel()

	date = visibility.Day(date)
	ex, res, err := visibility.Assess(ctx, e.provider, name, date, e.config.Location)
	if err != nil {
		return Record{}, visibility.Result{}, err
	}

	labels, err := e.fixedLabels(ctx, name, date)
	if err != nil {
		return Record{}, visibility.Result{}, err
	}

	return newRecord(date, ex, labels, res.Score), res, nil
}

// fixedLabels classifies the azimuth at each quick-glance clock time.
func (e *Evaluator) fixedLabels(ctx context.Context, name string, date time.Time) ([6]compass.Label, error) {
	var labels [6]compass.Label
	for i, fc := range fixedClock {
		t := date.AddDate(0, 0, fc.day).Add(time.Duration(fc.hour)*time.Hour + time.Duration(fc.min)*time.Minute)
		h, err := e.provider.AltAz(ctx, name, t, e.config.Location)
		if err != nil {
			return labels, fmt.Errorf("sampling %s at %s: %w", name, t.Format(visibility.TimeLayout), err)
		}
		labels[i] = compass.Classify(h.AzimuthDeg)
	}
	return labels, nil
}

// Compute evaluates names for date without touching the store. Per-object
// failures are skipped and listed in the report.
func (e *Evaluator) Compute(ctx context.Context, date time.Time, names []string) (*Catalogue, Report, error) {
	date = visibility.Day(date)
	start := time.Now()
	report := Report{
		RunID: uuid.NewString(),
		Date:  date.Format(store.DateLayout),
		Total: len(names),
	}

	e.logger.Info("catalogue run started",
		"run_id", report.RunID,
		"date", report.Date,
		"objects", len(names),
		"workers", e.pool.Workers(),
	)

	var finished atomic.Int64
	eval := func(ctx context.Context, name string) (Record, error) {
		rec, _, err := e.EvaluateObject(ctx, name, date)
		n := int(finished.Add(1))
		if e.config.OnProgress != nil {
			p := Progress{RunID: report.RunID, Date: report.Date, Name: name, Done: n, Total: len(names), Score: rec.Score}
			if err != nil {
				p.Error = err.Error()
			}
			e.config.OnProgress(p)
		}
		return rec, err
	}

	results := e.pool.EvaluateBatch(ctx, names, eval)

	cat := New()
	for _, r := range results {
		if r.err != nil {
			metrics.ObjectEvaluations.WithLabelValues(outcome(r.err)).Inc()
			e.logger.Warn("object skipped", "run_id", report.RunID, "name", r.name, "error", r.err)
			report.Skipped = append(report.Skipped, Skip{Name: r.name, Reason: r.err.Error()})
			continue
		}
		metrics.ObjectEvaluations.WithLabelValues("ok").Inc()
		cat.Put(r.name, r.record)
	}
	report.Evaluated = cat.Len()
	report.Duration = time.Since(start)
	metrics.RunDuration.Observe(report.Duration.Seconds())

	if err := ctx.Err(); err != nil {
		return nil, report, fmt.Errorf("catalogue run %s cancelled: %w", report.RunID, err)
	}

	e.logger.Info("catalogue run complete",
		"run_id", report.RunID,
		"date", report.Date,
		"evaluated", report.Evaluated,
		"skipped", len(report.Skipped),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return cat, report, nil
}

type runResult struct {
	cat    *Catalogue
	report Report
}

// Evaluate returns the catalogue for date. A stored file is loaded and
// returned as is; otherwise names are evaluated and the result is stored.
// Concurrent calls for the same date share one run.
func (e *Evaluator) Evaluate(ctx context.Context, date time.Time, names []string) (*Catalogue, Report, error) {
	date = visibility.Day(date)
	key := date.Format(store.DateLayout)

	v, err, shared := e.runs.Do(key, func() (any, error) {
		cat, report, err := e.run(ctx, date, names)
		return runResult{cat: cat, report: report}, err
	})
	rr, _ := v.(runResult)
	if shared {
		e.logger.Debug("joined running catalogue evaluation", "date", key)
	}
	return rr.cat, rr.report, err
}

func (e *Evaluator) run(ctx context.Context, date time.Time, names []string) (*Catalogue, Report, error) {
	if e.store != nil {
		cat, err := e.Load(date)
		if err == nil {
			e.logger.Info("catalogue loaded from store", "date", date.Format(store.DateLayout), "objects", cat.Len())
			return cat, Report{Date: date.Format(store.DateLayout), Total: cat.Len(), Evaluated: cat.Len(), Loaded: true}, nil
		}
		if !errors.Is(err, store.ErrNotExist) {
			return nil, Report{Date: date.Format(store.DateLayout)}, err
		}
	}

	cat, report, err := e.Compute(ctx, date, names)
	if err != nil || e.store == nil {
		return cat, report, err
	}

	data, err := json.Marshal(cat)
	if err != nil {
		return nil, report, fmt.Errorf("%w: encoding catalogue: %w", store.ErrPersistence, err)
	}
	err = e.store.Create(date, data)
	if errors.Is(err, store.ErrExists) {
		// Another process stored this date first; its file wins.
		e.logger.Info("catalogue stored concurrently, using existing file", "run_id", report.RunID, "date", report.Date)
		winner, lerr := e.Load(date)
		if lerr != nil {
			return nil, report, lerr
		}
		report.Loaded = true
		return winner, report, nil
	}
	if err != nil {
		return nil, report, err
	}
	return cat, report, nil
}

// Load reads the stored catalogue for date.
func (e *Evaluator) Load(date time.Time) (*Catalogue, error) {
	if e.store == nil {
		return nil, store.ErrNotExist
	}
	data, err := e.store.Load(visibility.Day(date))
	if err != nil {
		return nil, err
	}
	cat := New()
	if err := json.Unmarshal(data, cat); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", store.ErrPersistence, store.FileName(date), err)
	}
	return cat, nil
}

// outcome maps an evaluation error to a metric label.
func outcome(err error) string {
	switch {
	case errors.Is(err, resolver.ErrNotFound):
		return "not_found"
	case errors.Is(err, visibility.ErrEmptyWindow):
		return "empty_window"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
