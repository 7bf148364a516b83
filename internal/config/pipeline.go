package config

import (
	"github.com/scanform/fieldkit/internal/labels"
	"github.com/scanform/fieldkit/internal/match"
	"github.com/scanform/fieldkit/internal/pipeline"
)

// PipelineConfig maps the flat flag surface onto the per-stage pipeline
// configuration, preserving stage defaults for everything the flags do
// not cover.
func (c *Config) PipelineConfig() pipeline.Config {
	pc := pipeline.DefaultConfig()

	pc.Filter = labels.DefaultFilterConfig()
	pc.Filter.MinConfidence = c.MinLabelConfidence

	pc.Match = match.DefaultConfig()
	pc.Match.MaxPairGate = c.MaxPairGate
	pc.Match.MaxCommitDistance = c.MaxCommitDistance

	pc.MinLabelLength = c.MinLabelLength
	pc.TextOverlapThreshold = c.TextOverlapThreshold
	pc.CheckboxOverlapThreshold = c.CheckboxOverlapThreshold
	pc.UnionOverlapThreshold = c.UnionOverlapThreshold
	pc.Workers = c.Workers

	return pc
}
