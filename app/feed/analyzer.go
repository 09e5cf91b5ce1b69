package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/feed-inspector/app/blob"
	"github.com/lysyi3m/feed-inspector/app/compress"
	"github.com/lysyi3m/feed-inspector/app/metrics"
)

const (
	DefaultQueueSize  = 256
	reportContentType = "text/plain; charset=utf-8"
)

type Phase string

const (
	PhaseFetch      Phase = "fetch"
	PhaseDecompress Phase = "decompress"
	PhaseAggregate  Phase = "aggregate"
	PhaseUpload     Phase = "upload"
)

// RunError is a fatal run failure tagged with the phase it happened in.
type RunError struct {
	Phase Phase
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

type Options struct {
	QueueSize      int
	MaxRecordBytes int
	SpoolDir       string // download to a local file before reading when set
}

// Analyzer runs one streaming pass: fetch, split, filter, aggregate, render
// and upload.
type Analyzer struct {
	store    blob.Store
	profiles *ProfileCache
	opts     Options
	now      func() time.Time
}

func NewAnalyzer(store blob.Store, profiles *ProfileCache, opts Options) *Analyzer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.MaxRecordBytes <= 0 {
		opts.MaxRecordBytes = DefaultMaxRecordBytes
	}
	return &Analyzer{
		store:    store,
		profiles: profiles,
		opts:     opts,
		now:      time.Now,
	}
}

type scanSummary struct {
	scanned   int
	eligible  int
	truncated int
	rejected  map[string]int
}

// Run executes the pass and narrates it on logger. On success the log holds
// exactly one completion line naming the report location.
func (a *Analyzer) Run(ctx context.Context, job Job, logger *slog.Logger) (result *Result, err error) {
	started := a.now()
	result = &Result{}

	defer func() {
		result.Duration = time.Since(started)
		if err != nil {
			logger.Error("Analysis failed", "error", err, "duration", result.Duration.String())
			metrics.ObserveRun("failed", result.Duration)
			return
		}
		logger.Info(fmt.Sprintf("%s %s", SuccessMarker, a.now().Format(time.RFC3339)), "duration", result.Duration.String())
		metrics.ObserveRun("success", result.Duration)
	}()

	profile, err := a.profiles.Lookup(job.PartnerID)
	if err != nil {
		return result, &RunError{Phase: PhaseFetch, Err: fmt.Errorf("failed to load profile: %w", err)}
	}

	source, err := blob.ParseLocation(job.Source)
	if err != nil {
		return result, &RunError{Phase: PhaseFetch, Err: err}
	}
	destination, err := blob.ReportLocation(job.Destination, job.PartnerID, job.DistinguishID)
	if err != nil {
		return result, &RunError{Phase: PhaseUpload, Err: err}
	}
	result.Destination = destination.String()

	logger.Info("Analysis started",
		"partner_id", job.PartnerID,
		"distinguish_id", job.DistinguishID,
		"source", source.String(),
		"destination", destination.String(),
		"profile", profile.Name)

	logger.Info("Download started", "source", source.String(), "spool", a.opts.SpoolDir != "")
	raw, err := a.open(ctx, source)
	if err != nil {
		return result, &RunError{Phase: PhaseFetch, Err: err}
	}
	counted := &countingReader{r: raw}
	defer func() {
		if closeErr := raw.Close(); closeErr != nil {
			logger.Warn("Failed to release source stream", "error", closeErr)
		}
		logger.Info("Cleanup completed", "bytes_read", counted.n)
	}()

	stream, format, err := compress.NewReader(counted)
	if err != nil {
		return result, &RunError{Phase: failurePhase(err, PhaseDecompress), Err: err}
	}
	defer stream.Close()
	logger.Info("Download completed", "format", string(format))

	logger.Info("Filtering and aggregating", "record_tag", profile.RecordTag)
	stats, summary, err := a.aggregate(ctx, stream, profile)
	result.Scanned = summary.scanned
	result.Eligible = summary.eligible
	result.Truncated = summary.truncated
	result.Bytes = counted.n
	metrics.AddRecords(summary.scanned, summary.eligible, summary.truncated)
	if err != nil {
		return result, &RunError{Phase: failurePhase(err, PhaseDecompress), Err: err}
	}
	for reason, count := range summary.rejected {
		logger.Debug("Records rejected", "reason", reason, "count", count)
	}
	logger.Info("Aggregation completed",
		"scanned", summary.scanned,
		"eligible", summary.eligible,
		"truncated", summary.truncated,
		"bytes_read", counted.n)

	report := NewReporter(profile).Run(stats, ReportMeta{
		PartnerID:     job.PartnerID,
		FileName:      source.Base(),
		DistinguishID: job.DistinguishID,
		GeneratedAt:   a.now(),
	})

	logger.Info("Uploading report", "destination", destination.String(), "bytes", len(report))
	if err := a.store.Put(ctx, destination, bytes.NewReader(report), int64(len(report)), reportContentType); err != nil {
		return result, &RunError{Phase: PhaseUpload, Err: err}
	}
	logger.Info(fmt.Sprintf("%s %s", CompletionMarker, destination.String()))

	return result, nil
}

func (a *Analyzer) open(ctx context.Context, source blob.Location) (io.ReadCloser, error) {
	if a.opts.SpoolDir == "" {
		return a.store.Open(ctx, source)
	}
	return blob.Spool(ctx, a.store, source, a.opts.SpoolDir)
}

// aggregate splits on one goroutine and filters and aggregates on another.
// Only the consumer touches the accumulator, so updates apply in stream order.
func (a *Analyzer) aggregate(ctx context.Context, r io.Reader, profile *Profile) (*Stats, scanSummary, error) {
	g, ctx := errgroup.WithContext(ctx)
	records := make(chan Record, a.opts.QueueSize)
	splitter := NewSplitter(r, profile.RecordTag, a.opts.MaxRecordBytes)

	g.Go(func() error {
		defer close(records)
		for {
			rec, err := splitter.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case records <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	filterer := NewFilterer(profile)
	aggregator := NewAggregator(profile)
	summary := scanSummary{rejected: make(map[string]int)}

	g.Go(func() error {
		for rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			summary.scanned++
			if rec.Truncated {
				summary.truncated++
			}
			eligible, reason := filterer.Check(rec.Data)
			if !eligible {
				summary.rejected[reason]++
				continue
			}
			summary.eligible++
			aggregator.Update(rec.Data)
		}
		return nil
	})

	err := g.Wait()
	return aggregator.Stats(), summary, err
}

// failurePhase attributes a streaming error: source read failures belong to
// fetch, limits and cancellation to aggregate, and the rest to fallback.
func failurePhase(err error, fallback Phase) Phase {
	var srcErr *sourceError
	switch {
	case errors.As(err, &srcErr):
		return PhaseFetch
	case errors.Is(err, ErrRecordTooLarge), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return PhaseAggregate
	}
	return fallback
}

// sourceError marks a failure reading the fetched stream itself, as opposed
// to decoding what was read.
type sourceError struct {
	err error
}

func (e *sourceError) Error() string {
	return e.err.Error()
}

func (e *sourceError) Unwrap() error {
	return e.err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if err != nil && err != io.EOF {
		err = &sourceError{err: err}
	}
	return n, err
}
