package timectrl

import (
	"fmt"
	"time"
)

// Timeline maps discrete, 1-indexed timeslots onto simulation instants.
// Slot t starts at Epoch + (t-1)*Step.
type Timeline struct {
	Epoch time.Time
	Step  time.Duration
}

// NewTimeline constructs a timeline; step must be positive.
func NewTimeline(epoch time.Time, step time.Duration) (Timeline, error) {
	if step <= 0 {
		return Timeline{}, fmt.Errorf("timeline step must be positive, got %v", step)
	}
	return Timeline{Epoch: epoch.UTC(), Step: step}, nil
}

// TimeAt returns the instant at which slot starts.
func (tl Timeline) TimeAt(slot int) time.Time {
	return tl.Epoch.Add(time.Duration(slot-1) * tl.Step)
}

// SlotAt returns the slot containing t. Instants before the epoch map to
// slot 0, which no source holds.
func (tl Timeline) SlotAt(t time.Time) int {
	if tl.Step <= 0 || t.Before(tl.Epoch) {
		return 0
	}
	return int(t.Sub(tl.Epoch)/tl.Step) + 1
}

// Range is an inclusive span of timeslots.
type Range struct {
	From int
	To   int
}

// NewRange validates and returns [from, to].
func NewRange(from, to int) (Range, error) {
	if from < 1 {
		return Range{}, fmt.Errorf("timeslot range must start at 1 or later, got %d", from)
	}
	if to < from {
		return Range{}, fmt.Errorf("timeslot range end %d precedes start %d", to, from)
	}
	return Range{From: from, To: to}, nil
}

// Len returns the number of slots in the range.
func (r Range) Len() int {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// Slots lists every slot in ascending order.
func (r Range) Slots() []int {
	out := make([]int, 0, r.Len())
	for t := r.From; t <= r.To; t++ {
		out = append(out, t)
	}
	return out
}
