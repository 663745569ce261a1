package loadshape

// Target is one scheduling decision: the concurrency level the driver should
// hold and the suggested rate (users per second) at which to approach it.
type Target struct {
	Users     int
	SpawnRate float64
}

// Schedule is an immutable ordered sequence of phases evaluated against
// elapsed run time. The zero value is an empty schedule whose Tick always
// reports the shape complete.
type Schedule struct {
	phases []Phase
}

// NewSchedule builds a Schedule from hand-assembled phases. Sequences from
// the Builder are contiguous; hand-built ones may overlap, in which case the
// earliest phase in slice order wins every tick.
func NewSchedule(phases ...Phase) Schedule {
	cp := make([]Phase, len(phases))
	copy(cp, phases)
	return Schedule{phases: cp}
}

// Tick maps elapsed seconds to the active phase's target. Phases are scanned
// in order and the first one whose window covers elapsed wins; on contiguous
// sequences the shared boundary instant therefore belongs to the earlier
// phase. The second return value is false once elapsed lies beyond every
// window, signaling the shape is complete. The caller decides whether to
// hold the last level or finish the run.
//
// Tick is a pure function of (elapsed, schedule): it never blocks, and
// identical inputs yield identical outputs.
func (s Schedule) Tick(elapsed float64) (Target, bool) {
	for _, p := range s.phases {
		if users, ok := p.UserCountAt(elapsed); ok {
			return Target{Users: users, SpawnRate: p.SpawnRate}, true
		}
	}
	return Target{}, false
}

// Len returns the number of phases in the schedule.
func (s Schedule) Len() int {
	return len(s.phases)
}

// Duration returns the latest phase end in seconds. For contiguous sequences
// this is the total length of the shape.
func (s Schedule) Duration() float64 {
	var end float64
	for _, p := range s.phases {
		if e := p.End(); e > end {
			end = e
		}
	}
	return end
}

// MaxUsers returns the highest user count any phase can request.
func (s Schedule) MaxUsers() int {
	var m int
	for _, p := range s.phases {
		if p.FromUsers > m {
			m = p.FromUsers
		}
		if p.ToUsers > m {
			m = p.ToUsers
		}
	}
	return m
}

// Phases returns a copy of the phase sequence.
func (s Schedule) Phases() []Phase {
	cp := make([]Phase, len(s.phases))
	copy(cp, s.phases)
	return cp
}
