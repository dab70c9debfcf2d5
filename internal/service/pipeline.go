package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/fingerprint"
	"sgxfeed/internal/model"
	"sgxfeed/internal/repository"
	"sgxfeed/internal/source"
	"sgxfeed/internal/storage"
)

var (
	// ErrRunInProgress is returned when Run is called while another run holds the pipeline.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrStorage wraps object store write failures recorded in a FileResult.
	ErrStorage = errors.New("object store write failed")
)

// IngestionService runs the fetch, fingerprint, version and store pipeline for one business date.
type IngestionService interface {
	// Run processes every configured file for businessDate. Per-file failures are reported in the
	// RunReport; the only error is ErrRunInProgress.
	Run(ctx context.Context, businessDate time.Time) (*model.RunReport, error)

	// CurrentBusinessDate is the date used when a trigger does not name one.
	CurrentBusinessDate() time.Time

	// Specs returns the frozen file list.
	Specs() []model.FileSpec
}

// PipelineOptions are the policy switches of the pipeline.
type PipelineOptions struct {
	FetchConcurrency int
	// StoreUnchangedCopy also writes raw/{date}/... for reference files whose content did not change.
	StoreUnchangedCopy bool
	ExtractArchives    bool
	BusinessDateLag    int
}

type pipeline struct {
	specs   []model.FileSpec
	src     source.Source
	repo    repository.VersionRepository
	store   storage.Storage
	cal     calendar.Calendar
	opts    PipelineOptions
	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time

	// mu makes the pipeline the single writer of the catalog.
	mu sync.Mutex
}

// NewPipeline constructs the IngestionService. metrics may be nil.
func NewPipeline(
	specs []model.FileSpec,
	src source.Source,
	repo repository.VersionRepository,
	store storage.Storage,
	cal calendar.Calendar,
	opts PipelineOptions,
	metrics *Metrics,
	logger *slog.Logger,
) IngestionService {
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 1
	}
	frozen := make([]model.FileSpec, len(specs))
	copy(frozen, specs)
	return &pipeline{
		specs:   frozen,
		src:     src,
		repo:    repo,
		store:   store,
		cal:     cal,
		opts:    opts,
		metrics: metrics,
		logger:  logger.With("component", "pipeline"),
		tracer:  otel.Tracer("sgxfeed/internal/service"),
		now:     time.Now,
	}
}

func (p *pipeline) Specs() []model.FileSpec {
	out := make([]model.FileSpec, len(p.specs))
	copy(out, p.specs)
	return out
}

func (p *pipeline) CurrentBusinessDate() time.Time {
	return p.cal.Current(p.now(), p.opts.BusinessDateLag)
}

type fetched struct {
	res      *model.FetchResult
	err      error
	duration time.Duration
}

func (p *pipeline) Run(ctx context.Context, businessDate time.Time) (*model.RunReport, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	date := calendar.Date(businessDate)
	report := &model.RunReport{
		RunID:        uuid.NewString(),
		BusinessDate: calendar.Format(date),
		StartedAt:    p.now(),
		Files:        make([]model.FileResult, 0, len(p.specs)),
	}
	log := p.logger.With("run_id", report.RunID, "business_date", report.BusinessDate)

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", report.RunID),
		attribute.String("run.business_date", report.BusinessDate),
	))
	defer span.End()

	log.Info("run_started", "files", len(p.specs), "business_day", p.cal.IsBusinessDay(date))

	results := p.fetchAll(ctx, date)
	for i, spec := range p.specs {
		fr := p.process(ctx, log, spec, date, results[i])
		report.Files = append(report.Files, fr)
	}

	report.Finalize(p.now())
	p.metrics.observeRun(report)

	counts := report.Counts()
	attrs := make([]any, 0, 2*len(counts)+4)
	attrs = append(attrs, "success", report.Success, "duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds())
	for outcome, n := range counts {
		attrs = append(attrs, string(outcome), n)
	}
	if report.Success {
		log.Info("run_finished", attrs...)
	} else {
		span.SetStatus(codes.Error, "no file stored")
		log.Warn("run_finished", attrs...)
	}
	return report, nil
}

// fetchAll downloads every file concurrently. Results are indexed like p.specs; a failed fetch
// never cancels its siblings.
func (p *pipeline) fetchAll(ctx context.Context, date time.Time) []fetched {
	results := make([]fetched, len(p.specs))

	var g errgroup.Group
	g.SetLimit(p.opts.FetchConcurrency)
	for i, spec := range p.specs {
		g.Go(func() error {
			start := time.Now()
			res, err := p.src.Fetch(ctx, spec, date)
			results[i] = fetched{res: res, err: err, duration: time.Since(start)}
			p.metrics.observeFetch(spec.Name, results[i].duration.Seconds())
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *pipeline) process(ctx context.Context, log *slog.Logger, spec model.FileSpec, date time.Time, f fetched) model.FileResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.file", trace.WithAttributes(
		attribute.String("file.name", spec.Name),
		attribute.String("file.category", string(spec.Category)),
	))
	defer span.End()

	log = log.With("file", spec.Name, "category", string(spec.Category))
	fr := model.FileResult{FileName: spec.Name, Category: spec.Category}

	switch {
	case f.err != nil:
		fr.Outcome = model.OutcomeFailed
		fr.ErrorKind = model.ErrorKindTransport
		if ctx.Err() != nil {
			fr.ErrorKind = model.ErrorKindCanceled
		}
		fr.Error = f.err.Error()
		span.RecordError(f.err)
		span.SetStatus(codes.Error, fr.ErrorKind)
		log.Error("file_fetch_failed", "error_kind", fr.ErrorKind, "error_message", fr.Error, "duration_ms", f.duration.Milliseconds())
		return fr
	case f.res == nil || f.res.Unavailable:
		fr.Outcome = model.OutcomeSkippedUnavailable
		if f.res != nil {
			fr.RemoteName = f.res.RemoteName
		}
		log.Info("file_unavailable", "remote_name", fr.RemoteName)
		return fr
	}

	fr.RemoteName = f.res.RemoteName
	fr.Size = int64(len(f.res.Data))
	fr.Digest = fingerprint.Digest(f.res.Data)
	fr.Empty = len(f.res.Data) == 0
	if fr.Empty {
		fr.Warnings = append(fr.Warnings, "upstream returned an empty file")
	}

	if spec.IsReference() {
		p.storeReference(ctx, spec, date, f.res, &fr)
	} else {
		p.storeRaw(ctx, spec, date, f.res, &fr)
	}

	if fr.Outcome == model.OutcomeFailed {
		span.SetStatus(codes.Error, fr.ErrorKind)
		log.Error("file_failed", "error_kind", fr.ErrorKind, "error_message", fr.Error, "remote_name", fr.RemoteName)
		return fr
	}
	if fr.Outcome == model.OutcomeOutOfOrder {
		log.Warn("file_out_of_order", "version", fr.Version, "error_message", fr.Error)
		return fr
	}
	log.Info("file_processed",
		"outcome", string(fr.Outcome),
		"remote_name", fr.RemoteName,
		"version", fr.Version,
		"digest", fr.Digest,
		"size", fr.Size,
		"paths", fr.Paths,
		"warnings", len(fr.Warnings),
	)
	return fr
}

// storeReference versions a reference file. The blob is written before the catalog commit so a
// catalog row never points at a missing object.
func (p *pipeline) storeReference(ctx context.Context, spec model.FileSpec, date time.Time, res *model.FetchResult, fr *model.FileResult) {
	current, err := p.repo.CurrentVersion(ctx, spec.Name)
	if err != nil {
		fail(fr, model.ErrorKindCatalog, fmt.Errorf("read current version: %w", err))
		return
	}

	if current != nil && date.Before(current.EffectiveFrom) {
		fr.Outcome = model.OutcomeOutOfOrder
		fr.ErrorKind = model.ErrorKindOutOfOrder
		fr.Version = current.VersionNumber
		fr.Error = fmt.Sprintf("%v: business date %s precedes current version %d effective from %s",
			repository.ErrOutOfOrderCommit, calendar.Format(date), current.VersionNumber, calendar.Format(current.EffectiveFrom))
		return
	}

	if current != nil && current.ContentDigest == fr.Digest {
		p.markUnchanged(ctx, spec, date, res, fr, current)
		return
	}

	next := 1
	if current != nil {
		next = current.VersionNumber + 1
	}
	key := storage.ReferenceKey(spec.Name, next, res.RemoteName)
	if err := p.put(ctx, key, spec, date, res, fr.Digest); err != nil {
		fail(fr, model.ErrorKindStorage, err)
		return
	}

	commit, err := p.repo.Commit(ctx, repository.CommitRequest{
		FileName:     spec.Name,
		Digest:       fr.Digest,
		BusinessDate: date,
		StoragePath:  key,
	})
	switch {
	case errors.Is(err, repository.ErrOutOfOrderCommit):
		fr.Outcome = model.OutcomeOutOfOrder
		fr.ErrorKind = model.ErrorKindOutOfOrder
		fr.Error = err.Error()
		fr.Warnings = append(fr.Warnings, "object written to "+key+" is not referenced by the catalog")
		return
	case err != nil:
		fail(fr, model.ErrorKindCatalog, fmt.Errorf("commit after storing %s, re-run required: %w", key, err))
		return
	case !commit.Created:
		p.markUnchanged(ctx, spec, date, res, fr, &commit.Version)
		return
	}

	fr.Outcome = model.OutcomeStoredNewVersion
	fr.Version = commit.Version.VersionNumber
	fr.Paths = append(fr.Paths, key)
	if commit.Version.StoragePath != key {
		fr.Warnings = append(fr.Warnings, "catalog recorded "+commit.Version.StoragePath+" instead of "+key)
	}
}

func (p *pipeline) markUnchanged(ctx context.Context, spec model.FileSpec, date time.Time, res *model.FetchResult, fr *model.FileResult, current *model.VersionRecord) {
	fr.Outcome = model.OutcomeStoredUnchanged
	fr.Version = current.VersionNumber
	if !p.opts.StoreUnchangedCopy {
		return
	}
	key := storage.RawKey(date, res.RemoteName)
	if err := p.put(ctx, key, spec, date, res, fr.Digest); err != nil {
		fr.Warnings = append(fr.Warnings, "audit copy: "+err.Error())
		return
	}
	fr.Paths = append(fr.Paths, key)
}

func (p *pipeline) storeRaw(ctx context.Context, spec model.FileSpec, date time.Time, res *model.FetchResult, fr *model.FileResult) {
	key := storage.RawKey(date, res.RemoteName)
	if err := p.put(ctx, key, spec, date, res, fr.Digest); err != nil {
		fail(fr, model.ErrorKindStorage, err)
		return
	}
	fr.Outcome = model.OutcomeStoredRaw
	fr.Paths = append(fr.Paths, key)

	if !spec.IsArchive() || !p.opts.ExtractArchives {
		return
	}
	ex, err := extractArchive(ctx, p.store, res.Data, date)
	if err != nil {
		fr.Warnings = append(fr.Warnings, err.Error())
		return
	}
	fr.Paths = append(fr.Paths, ex.paths...)
	fr.Warnings = append(fr.Warnings, ex.warnings...)
	p.metrics.addStored("derived", int(ex.bytes))
}

func (p *pipeline) put(ctx context.Context, key string, spec model.FileSpec, date time.Time, res *model.FetchResult, digest string) error {
	_, err := p.store.Put(ctx, key, bytes.NewReader(res.Data), storage.PutObjectOptions{
		Size:        int64(len(res.Data)),
		ContentType: contentType(res.RemoteName),
		Metadata: map[string]string{
			"file-name":     spec.Name,
			"business-date": calendar.Format(date),
			"sha256":        digest,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStorage, key, err)
	}
	p.metrics.addStored(string(spec.Category), len(res.Data))
	return nil
}

func fail(fr *model.FileResult, kind string, err error) {
	fr.Outcome = model.OutcomeFailed
	fr.ErrorKind = kind
	fr.Error = err.Error()
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
