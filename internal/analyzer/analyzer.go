// Package analyzer orchestrates build system detection and parsing and
// merges per-system graphs into one normalized dependency graph.
package analyzer

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"bde/internal/buildsys"
	"bde/internal/errors"
	"bde/internal/logging"
	"bde/internal/parsers"
)

// DefaultMinConfidence is the detection threshold used when options leave it
// unset. Vendored subtrees detect below root-marker confidence but above
// this, so multi-system projects are parsed whole.
const DefaultMinConfidence = 0.2

// Options controls an Analyze call.
type Options struct {
	// MinConfidence is the minimum detection confidence for a build system
	// to be parsed. Zero means DefaultMinConfidence.
	MinConfidence float64
	// Kinds restricts analysis to the given build systems. Empty means all.
	Kinds []buildsys.Kind
}

// Detection is one parser's detection verdict for a project root.
type Detection struct {
	Kind       buildsys.Kind `json:"kind"`
	Confidence float64       `json:"confidence"`
}

// Analyzer runs the per-build-system parsers over a project tree.
// It holds no mutable state; every Analyze call builds a fresh graph.
type Analyzer struct {
	logger *logging.Logger
	table  map[buildsys.Kind]parsers.Parser
}

// New creates an Analyzer over the full parser table.
func New(logger *logging.Logger) *Analyzer {
	return &Analyzer{
		logger: logger,
		table:  parsers.Table(logger),
	}
}

// DetectAll runs every parser's cheap detection over root and returns the
// candidates with nonzero confidence, ordered by confidence descending with
// ties broken by canonical kind order.
func (a *Analyzer) DetectAll(root string) []Detection {
	var detections []Detection
	for _, kind := range buildsys.AllKinds() {
		p, ok := a.table[kind]
		if !ok {
			continue
		}
		if conf := p.Detect(root); conf > 0 {
			detections = append(detections, Detection{Kind: kind, Confidence: conf})
		}
	}
	sort.SliceStable(detections, func(i, j int) bool {
		if detections[i].Confidence != detections[j].Confidence {
			return detections[i].Confidence > detections[j].Confidence
		}
		return detections[i].Kind < detections[j].Kind
	})
	return detections
}

// Analyze detects every build system above the confidence threshold, parses
// all candidates concurrently and merges the results. A project may
// legitimately carry several build systems (a CMake tree vendoring an
// Autotools library); every candidate is parsed, not just the top one, and
// the ambiguity is reported as a warning rather than an error.
func (a *Analyzer) Analyze(root string, opts Options) (*buildsys.Graph, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.New(errors.InternalError, "project root not accessible", err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("project root is not a directory: %s", root), nil)
	}

	minConf := opts.MinConfidence
	if minConf <= 0 {
		minConf = DefaultMinConfidence
	}

	allowed := make(map[buildsys.Kind]bool, len(opts.Kinds))
	for _, k := range opts.Kinds {
		allowed[k] = true
	}

	var candidates []Detection
	for _, d := range a.DetectAll(root) {
		if d.Confidence < minConf {
			continue
		}
		if len(opts.Kinds) > 0 && !allowed[d.Kind] {
			continue
		}
		candidates = append(candidates, d)
	}

	a.logger.Debug("Build system detection complete", map[string]interface{}{
		"root":       root,
		"candidates": len(candidates),
	})

	if len(candidates) == 0 {
		g := buildsys.NewGraph()
		g.Normalize()
		return g, nil
	}

	// Parsers only read files and return fresh values, so all candidates
	// run concurrently with no locking.
	results := make([]*buildsys.Graph, len(candidates))
	parseErrs := make([]error, len(candidates))
	var wg sync.WaitGroup
	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, cand Detection) {
			defer wg.Done()
			results[i], parseErrs[i] = a.table[cand.Kind].Parse(root)
		}(i, cand)
	}
	wg.Wait()

	// Merge in canonical kind order for deterministic output regardless of
	// detection ranking or goroutine completion order.
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return candidates[order[i]].Kind < candidates[order[j]].Kind })

	merged := buildsys.NewGraph()
	for _, i := range order {
		if parseErrs[i] != nil {
			merged.AddWarning(buildsys.ParseWarning{
				BuildSystem: candidates[i].Kind,
				Message:     "parse failed: " + parseErrs[i].Error(),
			})
			continue
		}
		merged.Merge(results[i])
	}

	if len(candidates) > 1 {
		kinds := make([]string, len(candidates))
		for i, cand := range candidates {
			kinds[i] = string(cand.Kind)
		}
		merged.AddWarning(buildsys.ParseWarning{
			Message: "multiple build systems detected: " + strings.Join(kinds, ", "),
		})
	}

	merged.Normalize()

	a.logger.Info("Dependency analysis complete", map[string]interface{}{
		"root":         root,
		"systems":      len(merged.Systems),
		"targets":      len(merged.Targets),
		"dependencies": len(merged.Dependencies),
		"warnings":     len(merged.Warnings),
	})
	return merged, nil
}
