package engine

import (
	"errors"

	"github.com/cloudbun/floatbox/pkg/parser"
	"github.com/cloudbun/floatbox/pkg/schema"
)

// ErrIndexNotLoaded is returned when a satellite join runs before an index
// was built or loaded on this instance.
var ErrIndexNotLoaded = errors.New("sot index not loaded: call ParseSoT or LoadIndex first")

// Engine is one worker instance. It owns at most one SoT index and runs
// its operations to completion in call order; instances share nothing, so
// the caller may fan out one Engine per satellite file and distribute the
// index through its serialized form.
type Engine struct {
	index    *SoTIndex
	progress ProgressFunc
}

// ProgressFunc receives coarse progress so an external watchdog can tell a
// long run from a hang. Stages: "parse", "normalize", "join".
type ProgressFunc func(stage string, done, total int)

// Option configures an Engine.
type Option func(*Engine)

// WithProgress installs a progress sink. No sink means no reporting.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// New returns an Engine with no index loaded.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SoTResult is the outcome of ParseSoT: the index statistics plus the
// serialized index for distribution to satellite workers.
type SoTResult struct {
	Stats           IndexStats       `json:"stats"`
	SerializedIndex string           `json:"serializedIndex"`
	Warnings        []parser.Warning `json:"warnings,omitempty"`
}

// ParseSoT ingests the roster CSV, builds the index, and installs it on
// this instance. On error the previously loaded index is untouched.
func (e *Engine) ParseSoT(csvBytes []byte, columnMapSpec string) (*SoTResult, error) {
	res, err := parser.Parse(csvBytes)
	if err != nil {
		return nil, err
	}
	e.report("parse", len(res.Rows), len(res.Rows))

	records := schema.NormalizeSoT(res.Headers, res.Rows, columnMapSpec)
	e.report("normalize", len(records), len(records))

	index := BuildSoTIndex(records)
	payload, err := SerializeSoTIndex(index)
	if err != nil {
		return nil, err
	}

	e.index = index
	return &SoTResult{
		Stats:           index.Stats,
		SerializedIndex: payload,
		Warnings:        res.Warnings,
	}, nil
}

// LoadIndex installs a previously serialized index on this instance.
func (e *Engine) LoadIndex(serialized []byte) error {
	index, err := DeserializeSoTIndex(serialized)
	if err != nil {
		return err
	}
	e.index = index
	return nil
}

// Index exposes the loaded index to callers that merge join results into a
// master report. Nil when nothing is loaded.
func (e *Engine) Index() *SoTIndex {
	return e.index
}

// ParseSatellite ingests a satellite CSV and joins it against the loaded
// index. Parser warnings ride along on the result.
func (e *Engine) ParseSatellite(csvBytes []byte, systemName, columnMapSpec string) (*JoinResult, error) {
	if e.index == nil {
		return nil, ErrIndexNotLoaded
	}

	res, err := parser.Parse(csvBytes)
	if err != nil {
		return nil, err
	}
	e.report("parse", len(res.Rows), len(res.Rows))

	sats := schema.NormalizeSatellite(res.Headers, res.Rows, systemName, columnMapSpec)
	e.report("normalize", len(sats), len(sats))

	result := JoinAgainstSoT(e.index, sats)
	result.Warnings = res.Warnings
	e.report("join", result.Stats.TotalProcessed, len(sats))
	return result, nil
}

func (e *Engine) report(stage string, done, total int) {
	if e.progress != nil {
		e.progress(stage, done, total)
	}
}
