// Package pipeline sequences the field detection stages over collaborator
// outputs: filter labels, deduplicate candidates, match, refine. It owns
// no algorithmic logic of its own.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/scanform/fieldkit/internal/detect"
	"github.com/scanform/fieldkit/internal/geometry"
	"github.com/scanform/fieldkit/internal/labels"
	"github.com/scanform/fieldkit/internal/match"
	"github.com/scanform/fieldkit/internal/refine"
)

// Config aggregates the tuning knobs of every stage.
type Config struct {
	Filter labels.FilterConfig `json:"filter"`
	Match  match.Config        `json:"match"`
	Refine refine.Config       `json:"refine"`
	Limits detect.Limits       `json:"limits"`

	// MinLabelLength drops labels shorter than this before matching.
	// A presentation knob, separate from the structural filter rules.
	MinLabelLength int `json:"min_label_length"`

	// Overlap thresholds for candidate deduplication.
	TextOverlapThreshold     float64 `json:"text_overlap_threshold"`
	CheckboxOverlapThreshold float64 `json:"checkbox_overlap_threshold"`
	UnionOverlapThreshold    float64 `json:"union_overlap_threshold"`

	// Workers bounds document-level page parallelism. Zero means
	// GOMAXPROCS.
	Workers int `json:"workers"`
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Filter:                   labels.DefaultFilterConfig(),
		Match:                    match.DefaultConfig(),
		Refine:                   refine.DefaultConfig(),
		Limits:                   detect.DefaultLimits(),
		MinLabelLength:           5,
		TextOverlapThreshold:     detect.DefaultOverlapThreshold,
		CheckboxOverlapThreshold: detect.CheckboxOverlapThreshold,
		UnionOverlapThreshold:    detect.MultiStrategyOverlapThreshold,
	}
}

// Page bundles one page's collaborator outputs.
type Page struct {
	Number     int                `json:"number"`
	Labels     []labels.Label     `json:"labels"`
	Candidates []detect.Candidate `json:"candidates"`
	Raster     geometry.Raster    `json:"raster"`

	// Content supplies the page's content features for boundary
	// refinement. Nil disables snapping; approximate boxes pass through.
	Content refine.ContentSource `json:"-"`
}

// PageResult is the outcome of processing one page.
type PageResult struct {
	Number int            `json:"number"`
	Fields []refine.Field `json:"fields"`
	Stats  match.Stats    `json:"stats"`
}

// Pipeline wires the stages together. A Pipeline is stateless and safe
// for concurrent use; each invocation works on its own data.
type Pipeline struct {
	config  Config
	filter  *labels.Filter
	matcher *match.Matcher
	refiner *refine.Refiner
}

// New creates a pipeline from the given configuration.
func New(config Config) *Pipeline {
	if config.TextOverlapThreshold <= 0 {
		config.TextOverlapThreshold = detect.DefaultOverlapThreshold
	}
	if config.CheckboxOverlapThreshold <= 0 {
		config.CheckboxOverlapThreshold = detect.CheckboxOverlapThreshold
	}
	if config.UnionOverlapThreshold <= 0 {
		config.UnionOverlapThreshold = detect.MultiStrategyOverlapThreshold
	}
	return &Pipeline{
		config:  config,
		filter:  labels.NewFilter(config.Filter),
		matcher: match.NewMatcher(config.Match),
		refiner: refine.NewRefiner(config.Refine),
	}
}

// Associate runs the front half of the pipeline: label filtering and
// merging, candidate validation and deduplication, then spatial matching.
func (p *Pipeline) Associate(lbls []labels.Label, cands []detect.Candidate, raster geometry.Raster) ([]match.Pair, match.Stats) {
	merged := labels.MergeNearby(lbls, labels.DefaultMergeHorizontalGap, labels.DefaultMergeVerticalSlack)
	filtered := p.filter.Apply(merged)
	if p.config.MinLabelLength > 0 {
		filtered = labels.MinLength(filtered, p.config.MinLabelLength)
	}

	valid, dropped := detect.ValidateCandidates(cands, raster, p.config.Limits)
	deduped := detect.DeduplicateByKind(valid,
		p.config.TextOverlapThreshold,
		p.config.CheckboxOverlapThreshold,
		p.config.UnionOverlapThreshold)

	pairs, stats := p.matcher.Match(filtered, deduped)
	stats.DroppedRecords += dropped
	return pairs, stats
}

// Refine runs the back half: boundary snapping, validation, final
// deduplication, reading-order sort.
func (p *Pipeline) Refine(pairs []match.Pair, src refine.ContentSource, raster geometry.Raster) []refine.Field {
	return p.refiner.Refine(pairs, src, raster)
}

// ProcessPage runs the full pipeline over one page. Pure and
// synchronous; pages carry no shared state.
func (p *Pipeline) ProcessPage(page Page) PageResult {
	pairs, stats := p.Associate(page.Labels, page.Candidates, page.Raster)
	fields := p.Refine(pairs, page.Content, page.Raster)
	return PageResult{Number: page.Number, Fields: fields, Stats: stats}
}

// ProcessDocument processes pages concurrently, one pipeline invocation
// per page. Results keep the input page order. The context cancels
// pending pages; pages already being processed run to completion.
func (p *Pipeline) ProcessDocument(ctx context.Context, pages []Page) ([]PageResult, error) {
	results := make([]PageResult, len(pages))

	workers := p.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, page := range pages {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return fmt.Errorf("page %d: %w", page.Number, ctx.Err())
			default:
			}
			results[i] = p.ProcessPage(page)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
