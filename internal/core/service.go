package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/promptsync/internal/config"
	"github.com/JonMunkholm/promptsync/internal/logging"
	"github.com/JonMunkholm/promptsync/internal/model"
	"github.com/JonMunkholm/promptsync/internal/sink"
	"github.com/JonMunkholm/promptsync/internal/workbook"
)

// DefaultRunTimeout is the wall-clock budget of a run when Options leave it
// unset.
const DefaultRunTimeout = time.Minute

// Options configure both export paths.
type Options struct {
	WorkbookID    string
	Tables        TableNames
	LiveStatus    string
	EnabledMode   EnabledMode
	TargetLocales []string
	Placeholder   string
	SchemaStrict  bool
	Concurrency   int
	RunTimeout    time.Duration

	MarkerColumn string
	ObjectKey    string
	ManifestKey  string
	BatchSize    int
}

// DefaultOptions returns the options of an unconfigured deployment.
func DefaultOptions() Options {
	return Options{
		Tables: TableNames{
			MessageGroups:       "MessageGroups",
			Messages:            "Messages",
			MessageTranslations: "MessageTranslations",
			FAQ:                 "FAQ",
		},
		LiveStatus:    "Live",
		EnabledMode:   EnabledLenient,
		TargetLocales: []string{"en-US"},
		Placeholder:   DefaultPlaceholder,
		SchemaStrict:  true,
		Concurrency:   4,
		RunTimeout:    DefaultRunTimeout,
		MarkerColumn:  "Published",
		ObjectKey:     "csv/faq-list.csv",
		ManifestKey:   "manifest.json",
		BatchSize:     workbook.MaxBatchRows,
	}
}

// OptionsFromConfig maps the loaded configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WorkbookID: cfg.Workbook.ID,
		Tables: TableNames{
			MessageGroups:       cfg.Tables.MessageGroups,
			Messages:            cfg.Tables.Messages,
			MessageTranslations: cfg.Tables.MessageTranslations,
			FAQ:                 cfg.Tables.FAQ,
		},
		LiveStatus:    cfg.Export.GroupStatusFilter,
		EnabledMode:   EnabledMode(cfg.Export.EnabledMode),
		TargetLocales: cfg.Export.TargetLocales,
		Placeholder:   cfg.Export.EmptySpeech,
		SchemaStrict:  cfg.Export.SchemaStrict,
		Concurrency:   cfg.Export.AssembleConcurrency,
		RunTimeout:    cfg.Export.RunTimeout,
		MarkerColumn:  cfg.Archive.MarkerColumn,
		ObjectKey:     cfg.Archive.ObjectKey,
		ManifestKey:   cfg.Archive.ManifestKey,
		BatchSize:     cfg.Archive.BatchSize,
	}
}

// Service runs the KV and bulk export paths against one workbook.
type Service struct {
	client  workbook.Client
	kv      sink.KV
	archive sink.Archive
	history HistoryStore
	metrics *Metrics
	limiter *RunLimiter
	opts    Options

	now   func() time.Time
	newID func() string
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithMetrics records run metrics in m.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now. The clock also dates bulk markers.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the run id and batch request token generator.
func WithIDGenerator(gen func() string) ServiceOption {
	return func(s *Service) { s.newID = gen }
}

// WithRunLimiter shares l between services.
func WithRunLimiter(l *RunLimiter) ServiceOption {
	return func(s *Service) { s.limiter = l }
}

// NewService creates a Service. kv or archive may be nil to disable a path;
// history may be nil to skip recording.
func NewService(client workbook.Client, kv sink.KV, archive sink.Archive, history HistoryStore, opts Options, options ...ServiceOption) *Service {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}

	s := &Service{
		client:  client,
		kv:      kv,
		archive: archive,
		history: history,
		opts:    opts,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range options {
		o(s)
	}
	if s.limiter == nil {
		s.limiter = NewRunLimiter(PathKV, PathBulk)
	}
	return s
}

// Options returns the options the service runs with.
func (s *Service) Options() Options {
	return s.opts
}

// Limiter returns the run limiter, for shutdown draining and status.
func (s *Service) Limiter() *RunLimiter {
	return s.limiter
}

// History returns the history store, or nil.
func (s *Service) History() HistoryStore {
	return s.history
}

// RunKV runs the KV path and returns its count message. A failed run
// returns "".
func (s *Service) RunKV(ctx context.Context) (string, error) {
	res, err := s.Run(ctx, PathKV)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

// RunBulk runs the bulk path and returns its count message. A failed run
// returns "".
func (s *Service) RunBulk(ctx context.Context) (string, error) {
	res, err := s.Run(ctx, PathBulk)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

// Run executes one export of path within the run timeout. A path already
// running in this process is skipped with ErrRunInProgress. The result is
// recorded in the history and metrics whatever the outcome.
func (s *Service) Run(ctx context.Context, path Path) (RunResult, error) {
	res := RunResult{
		Path:      path,
		Trigger:   TriggerFromContext(ctx),
		StartedAt: s.now(),
	}

	if _, err := ParsePath(string(path)); err != nil {
		return res, fmt.Errorf("%w: %q", err, path)
	}

	if !s.limiter.TryAcquire(path) {
		res.Status = RunSkipped
		res.FinishedAt = res.StartedAt
		s.metrics.observeRun(res)
		logging.FromContext(ctx).Info("export run skipped", "path", path, "reason", "in progress")
		return res, ErrRunInProgress
	}
	defer s.limiter.Release(path)

	res.RunID = s.newID()
	ctx = logging.WithRunID(ctx, res.RunID)
	log := logging.FromContext(ctx).With("path", path, "trigger", res.Trigger)
	if addr := RemoteAddrFromContext(ctx); addr != "" {
		log = log.With("remote_addr", addr)
	}
	log.Info("export run started")

	runCtx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	var err error
	switch path {
	case PathKV:
		res.Rows, res.Warnings, err = s.runKV(runCtx)
	case PathBulk:
		res.Rows, res.Warnings, err = s.runBulk(runCtx)
	}
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}

	res.FinishedAt = s.now()
	if err != nil {
		res.Status = RunFailed
		res.Error = err.Error()
		log.Error("export run failed",
			"error", err,
			"code", MapError(err).Code,
			"rows", res.Rows,
			"duration_ms", res.Duration().Milliseconds(),
		)
	} else {
		res.Status = RunSucceeded
		res.Message = countMessage(res.Rows)
		log.Info("export run completed",
			"rows", res.Rows,
			"warnings", len(res.Warnings),
			"duration_ms", res.Duration().Milliseconds(),
		)
	}

	s.metrics.observeRun(res)
	if s.history != nil {
		if herr := s.history.Record(context.WithoutCancel(ctx), res); herr != nil {
			log.Warn("run history not recorded", "error", herr)
		}
	}
	return res, err
}

func countMessage(rows int) string {
	if rows == 0 {
		return "No prompts records to export"
	}
	return fmt.Sprintf("Exported %d row(s) of prompts", rows)
}

// runKV writes one record per live group. Every group is attempted; sink
// failures are joined and returned after the last write.
func (s *Service) runKV(ctx context.Context) (int, []string, error) {
	if s.kv == nil {
		return 0, nil, &ConfigurationError{Table: string(PathKV), Detail: "no key-value sink configured"}
	}
	log := logging.FromContext(ctx)

	dir, err := workbook.Resolve(ctx, s.client, s.opts.WorkbookID)
	if err != nil {
		return 0, nil, err
	}
	asm, warnings, err := NewAssembler(ctx, dir, AssemblerConfig{
		Tables:       s.opts.Tables,
		LiveStatus:   s.opts.LiveStatus,
		SchemaStrict: s.opts.SchemaStrict,
		Concurrency:  s.opts.Concurrency,
	})
	if err != nil {
		return 0, nil, err
	}
	for _, w := range warnings {
		log.Warn("schema drift", "detail", w)
	}

	classifier := Classifier{
		TargetLocales: s.opts.TargetLocales,
		Placeholder:   s.opts.Placeholder,
		EnabledMode:   s.opts.EnabledMode,
	}

	written := 0
	var sinkErrs []error
	_, err = asm.Assemble(ctx, func(group model.MessageGroup, msgs []model.Message) error {
		rec := classifier.Classify(ctx, group, msgs)
		if perr := s.kv.Put(ctx, rec); perr != nil {
			if ctx.Err() != nil {
				return perr
			}
			s.metrics.sinkFailed(PathKV)
			log.Error("group not written", "group", group.Name, "error", perr)
			sinkErrs = append(sinkErrs, &SinkWriteError{Group: group.Name, Err: perr})
			return nil
		}
		written++
		log.Debug("group written",
			"group", group.Name,
			"static", len(rec.Static),
			"situational", len(rec.Situational),
		)
		return nil
	})
	if err != nil {
		return written, warnings, errors.Join(append([]error{err}, sinkErrs...)...)
	}
	return written, warnings, errors.Join(sinkErrs...)
}

func (s *Service) runBulk(ctx context.Context) (int, []string, error) {
	if s.archive == nil {
		return 0, nil, &ConfigurationError{Table: string(PathBulk), Detail: "no archive configured"}
	}

	dir, err := workbook.Resolve(ctx, s.client, s.opts.WorkbookID)
	if err != nil {
		return 0, nil, err
	}

	exp := NewBulkExporter(dir, s.archive, BulkConfig{
		Table:        s.opts.Tables.FAQ,
		MarkerColumn: s.opts.MarkerColumn,
		ObjectKey:    s.opts.ObjectKey,
		ManifestKey:  s.opts.ManifestKey,
		BatchSize:    s.opts.BatchSize,
		SchemaStrict: s.opts.SchemaStrict,
	})
	exp.now = s.now
	exp.newToken = s.newID

	res, err := exp.Run(ctx)
	s.metrics.unmarked(res.Unmarked)
	return res.Rows, res.Warnings, err
}
