// Package planner precomputes backup routes that survive the failure of the
// riskiest satellite on a primary path.
package planner

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/constellation-resilience/internal/risk"
	"github.com/signalsfoundry/constellation-resilience/internal/routing"
	"github.com/signalsfoundry/constellation-resilience/internal/topology"
	"github.com/signalsfoundry/constellation-resilience/model"
)

// Result describes a backup plan. Identified is false when the primary path
// has no intermediate node (nothing to protect). Backup is nil when no route
// survives the removal of Riskiest; callers then fall back to reactive
// recovery.
type Result struct {
	Riskiest      model.NodeID
	Identified    bool
	RiskScore     float64
	Backup        model.Path
	BackupMetrics model.PathMetrics
}

// HasBackup reports whether a viable backup path was found.
func (r Result) HasBackup() bool { return r.Backup != nil }

// Remover is a graph view that can hide a node. *topology.Graph and
// *topology.Filtered both satisfy it.
type Remover interface {
	topology.View
	WithoutNode(id model.NodeID) *topology.Filtered
}

// RiskiestIntermediate returns the highest-scoring node strictly between the
// endpoints of p. Ties go to the node met first along the path; missing
// scores count as zero. ok is false when p has no intermediate node.
func RiskiestIntermediate(p model.Path, scores risk.Scores) (id model.NodeID, score float64, ok bool) {
	best := -1.0
	for _, n := range p.Intermediates() {
		if s := scores.Score(n); s > best {
			id, score, best, ok = n, s, s, true
		}
	}
	return id, score, ok
}

// Plan picks the riskiest intermediate of primary, hides it in a working
// view of g and solves a backup between the same endpoints. scores must come
// from g. The only errors returned are unexpected solver failures; a missing
// backup is reported through Result.
func Plan(g Remover, primary model.Path, scores risk.Scores) (Result, error) {
	riskiest, score, ok := RiskiestIntermediate(primary, scores)
	if !ok {
		return Result{}, nil
	}

	res := Result{Riskiest: riskiest, Identified: true, RiskScore: score}
	working := g.WithoutNode(riskiest)
	backup, metrics, err := routing.ShortestPath(working, primary.Source(), primary.Target())
	switch {
	case err == nil:
		res.Backup = backup
		res.BackupMetrics = metrics
	case errors.Is(err, routing.ErrNoPath):
		// no viable backup; valid outcome
	default:
		return res, fmt.Errorf("plan backup around %d: %w", riskiest, err)
	}
	return res, nil
}
