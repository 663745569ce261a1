package loadshape

import "fmt"

// spikeDuration is the window given to spike phases: long enough for a
// sub-second scheduling cadence to observe the burst, short enough to read
// as instantaneous.
const spikeDuration = 0.1

// Builder assembles an ordered sequence of phases. Each append advances an
// internal time cursor, so every phase starts exactly where the previous one
// ended.
//
// Methods stay fluent by recording errors instead of returning them: the
// first error sticks, later appends become no-ops, and Build returns it.
// Build consumes the builder; afterwards any append or second Build is a
// StateError.
type Builder struct {
	phases []Phase
	cursor float64
	built  bool
	err    error
}

// NewBuilder returns an empty Builder with its cursor at zero.
func NewBuilder() *Builder {
	return &Builder{}
}

// Spike appends a near-instant jump to n users.
//
// The spawn rate is set equal to the user count rather than a per-second
// rate. Existing profiles depend on that value, so it is preserved as-is.
func (b *Builder) Spike(n int) *Builder {
	if !b.ready("spike") {
		return b
	}
	if n < 0 {
		b.err = &ConfigurationError{
			Step:    "spike",
			Message: fmt.Sprintf("user count must not be negative, got %d", n),
		}
		return b
	}
	b.append(Phase{
		Start:     b.cursor,
		Duration:  spikeDuration,
		FromUsers: n,
		ToUsers:   n,
		SpawnRate: float64(n),
	})
	return b
}

// RampUp appends a linear climb to the given user count over duration
// seconds, starting from the previous phase's end count, or from zero when
// the sequence is empty.
func (b *Builder) RampUp(to int, duration float64) *Builder {
	if !b.ready("rampUp") {
		return b
	}
	from := 0
	if len(b.phases) > 0 {
		from = b.phases[len(b.phases)-1].ToUsers
	}
	b.appendRamp("rampUp", from, to, duration)
	return b
}

// SteadyUsers appends a phase holding n users for duration seconds. The
// spawn rate of a steady phase is a constant 1.
func (b *Builder) SteadyUsers(n int, duration float64) *Builder {
	if !b.ready("steadyUsers") {
		return b
	}
	if n < 0 {
		b.err = &ConfigurationError{
			Step:    "steadyUsers",
			Message: fmt.Sprintf("user count must not be negative, got %d", n),
		}
		return b
	}
	if duration <= 0 {
		b.err = &ConfigurationError{
			Step:    "steadyUsers",
			Message: fmt.Sprintf("duration must be positive, got %g", duration),
		}
		return b
	}
	b.append(Phase{
		Start:     b.cursor,
		Duration:  duration,
		FromUsers: n,
		ToUsers:   n,
		SpawnRate: 1,
	})
	return b
}

// StressRamp appends a linear move between two explicit user counts over
// duration seconds. Unlike RampUp it does not chain off the previous phase.
func (b *Builder) StressRamp(from, to int, duration float64) *Builder {
	if !b.ready("stressRamp") {
		return b
	}
	b.appendRamp("stressRamp", from, to, duration)
	return b
}

// Err returns the first error recorded by the chain, if any. Build reports
// the same error; Err exists for callers that want to check mid-chain.
func (b *Builder) Err() error {
	return b.err
}

// Build finalizes the sequence and consumes the builder. Ownership of the
// phases moves to the returned Schedule; the builder rejects all further
// use with a StateError.
func (b *Builder) Build() (Schedule, error) {
	if b.built {
		return Schedule{}, &StateError{Op: "build", Message: "builder already consumed by Build"}
	}
	b.built = true
	phases := b.phases
	b.phases = nil
	if b.err != nil {
		return Schedule{}, b.err
	}
	return Schedule{phases: phases}, nil
}

func (b *Builder) appendRamp(step string, from, to int, duration float64) {
	if from < 0 || to < 0 {
		b.err = &ConfigurationError{
			Step:    step,
			Message: fmt.Sprintf("user counts must not be negative, got %d -> %d", from, to),
		}
		return
	}
	if duration <= 0 {
		b.err = &ConfigurationError{
			Step:    step,
			Message: fmt.Sprintf("duration must be positive, got %g", duration),
		}
		return
	}
	b.append(Phase{
		Start:     b.cursor,
		Duration:  duration,
		FromUsers: from,
		ToUsers:   to,
		SpawnRate: float64(to-from) / duration,
	})
}

func (b *Builder) append(p Phase) {
	b.phases = append(b.phases, p)
	b.cursor += p.Duration
}

// ready reports whether a step may proceed, recording a StateError when the
// builder has already been consumed.
func (b *Builder) ready(step string) bool {
	if b.err != nil {
		return false
	}
	if b.built {
		b.err = &StateError{Op: step, Message: "builder already consumed by Build"}
		return false
	}
	return true
}
