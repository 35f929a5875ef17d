package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"immograph/models"
	"immograph/storage"
	"immograph/utils"
)

// Pipeline drives one ingestion run: normalize → resolve → validate →
// dedupe → sink, strictly forward. Each stage returns a tagged result
// the driver routes on; rejected and duplicate records are terminal and
// never re-enter the flow. All run-scoped state (geocoder cache, seen
// fingerprints, counters) lives in the stage instances, constructed at
// run start and discarded with the pipeline.
type Pipeline struct {
	normalizer *Normalizer
	resolver   *Resolver
	validator  *Validator
	dedup      *Deduplicator
	sink       storage.BatchSink
	logger     *utils.Logger

	geocodeFailures int
}

// NewPipeline wires the five stages together.
func NewPipeline(n *Normalizer, r *Resolver, v *Validator, d *Deduplicator, sink storage.BatchSink, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		normalizer: n,
		resolver:   r,
		validator:  v,
		dedup:      d,
		sink:       sink,
		logger:     logger,
	}
}

// Run processes every raw listing in order and returns the run report.
// The sink's partial tail batch is flushed before returning, also when
// the run aborts on a commit error, so accepted records already
// buffered are not lost.
func (p *Pipeline) Run(ctx context.Context, raws []models.RawListing) (*models.RunReport, error) {
	report := &models.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	p.logger.Info("[pipeline] run %s starting with %d records", report.RunID, len(raws))

	var runErr error
	for _, raw := range raws {
		report.Consumed++

		if err := p.process(ctx, raw, report); err != nil {
			runErr = err
			p.logger.Error("[pipeline] aborting run: %v", err)
			break
		}
	}

	if err := p.sink.Flush(ctx); err != nil {
		p.logger.Error("[pipeline] tail flush failed: %v", err)
		if runErr == nil {
			runErr = err
		}
	}

	p.finalize(report)
	return report, runErr
}

func (p *Pipeline) process(ctx context.Context, raw models.RawListing, report *models.RunReport) error {
	l := p.normalizer.Normalize(raw)

	if res := p.resolver.Resolve(ctx, l); res.Status == models.StatusRejected {
		p.geocodeFailures++
		p.logger.Warn("[pipeline] %s rejected: %s", l.URL, res.Reason)
		return nil
	}

	if res := p.validator.Validate(l); res.Status == models.StatusRejected {
		p.logger.Warn("[pipeline] %s rejected: %s", l.URL, res.Reason)
		return nil
	}

	if res := p.dedup.Check(l); res.Status == models.StatusDuplicate {
		report.Duplicates++
		return nil
	}

	if err := p.sink.Submit(ctx, l); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	report.Accepted++
	return nil
}

func (p *Pipeline) finalize(report *models.RunReport) {
	report.FinishedAt = time.Now()
	report.Rejections = p.validator.Counts()
	if p.geocodeFailures > 0 {
		report.Rejections[models.ReasonGeocodingFailed] = p.geocodeFailures
	}
	report.GeocodeLookups, report.GeocodeCacheHits = p.resolver.Stats()
	report.BatchesFlushed = p.sink.Flushed()
}

// PrintSummary writes the end-of-run audit to stdout: how many records
// came in, how many were stored, and where the rest went.
func (p *Pipeline) PrintSummary(r *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  INGESTION RUN %s\033[0m\n", r.RunID)
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("  Consumed  : \033[1m%d\033[0m\n", r.Consumed)
	fmt.Printf("  Accepted  : \033[1;32m%d\033[0m\n", r.Accepted)
	fmt.Printf("  Duplicates: \033[1;33m%d\033[0m\n", r.Duplicates)
	fmt.Printf("  Batches   : %d\n", r.BatchesFlushed)
	fmt.Printf("  Geocoding : %d lookups, %d cache hits\n", r.GeocodeLookups, r.GeocodeCacheHits)
	fmt.Printf("  Duration  : %v\n\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	fmt.Printf("  Rejections\n  %s\n", thin)
	if len(r.Rejections) == 0 {
		fmt.Printf("  none\n")
	} else {
		reasons := make([]string, 0, len(r.Rejections))
		for reason := range r.Rejections {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Printf("  %-22s \033[1;31m%d\033[0m\n", reason, r.Rejections[models.RejectReason(reason)])
		}
	}
	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}
