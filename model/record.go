package model

import "time"

// ScenarioOutcome classifies how a failure simulation ended. Everything other
// than OutcomeCompleted is an expected, non-fatal result.
type ScenarioOutcome string

const (
	OutcomeCompleted          ScenarioOutcome = "completed"
	OutcomeNoData             ScenarioOutcome = "no_data"
	OutcomeNoAccessNode       ScenarioOutcome = "no_access_node"
	OutcomeNoPrimaryPath      ScenarioOutcome = "no_primary_path"
	OutcomeNoFailureCandidate ScenarioOutcome = "no_failure_candidate"
)

// ComparisonRecord is the output of one proactive vs. reactive failure run.
// Proactive is nil when no backup survived the removal; Reactive is nil when
// re-solving after the failure found no route either.
type ComparisonRecord struct {
	ID       string
	Shell    string
	Timeslot int
	Source   NodeID
	Target   NodeID
	Outcome  ScenarioOutcome

	Primary     RoutedPath
	RemovedNode NodeID
	RemovedRisk float64

	Proactive *RoutedPath
	Reactive  *RoutedPath

	// ReactiveSolveDuration is the wall-clock cost of re-running the solver
	// on the failed graph. The proactive path costs nothing at failure time.
	ReactiveSolveDuration time.Duration
	CreatedAt             time.Time
}

// FellBackToReactive reports whether the precomputed backup was unusable.
func (r ComparisonRecord) FellBackToReactive() bool {
	return r.Outcome == OutcomeCompleted && r.Proactive == nil
}

// StabilitySample is one timeslot's delay under each weight source, both
// measured on observed latencies.
type StabilitySample struct {
	Timeslot       int
	Source         NodeID
	Target         NodeID
	ObservedDelay  float64
	PredictedDelay float64
	ObservedHops   int
	PredictedHops  int
}

// SkipCounts tallies timeslots that produced no sample, by reason.
type SkipCounts struct {
	NoData       int
	NoAccessNode int
	NoPath       int
}

// Total returns the number of skipped slots.
func (s SkipCounts) Total() int {
	return s.NoData + s.NoAccessNode + s.NoPath
}

// JitterReport aggregates path delay dispersion across a timeslot range.
type JitterReport struct {
	Shell string
	From  int
	To    int

	ObservedStdDev  float64
	PredictedStdDev float64
	ObservedMean    float64
	PredictedMean   float64
	SampleCount     int
	Skipped         SkipCounts

	Samples []StabilitySample
}

// ImprovementPercent is the relative jitter reduction of the predicted source
// over the observed one. It returns 0 when there is nothing to compare or
// the predicted source did not improve.
func (r JitterReport) ImprovementPercent() float64 {
	if r.ObservedStdDev <= 0 || r.PredictedStdDev >= r.ObservedStdDev {
		return 0
	}
	return (r.ObservedStdDev - r.PredictedStdDev) / r.ObservedStdDev * 100
}

// LinkFeature is one link observation used to build training data for a
// predicted-weight model.
type LinkFeature struct {
	Timeslot   int
	U          NodeID
	V          NodeID
	InterPlane bool
	Delay      float64
}

// PolicyComparison contrasts the latency-optimal and hop-optimal routes for
// one slot, both measured on observed latencies.
type PolicyComparison struct {
	Shell    string
	Timeslot int
	Latency  RoutedPath
	LeastHop RoutedPath
}
