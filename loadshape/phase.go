package loadshape

// Phase is an immutable time-windowed interpolation rule: between Start and
// Start+Duration the target user count moves linearly from FromUsers to
// ToUsers. Times are seconds from the beginning of the run.
type Phase struct {
	// Start is the offset at which the window opens.
	Start float64

	// Duration is the window length. Zero marks an instantaneous transition.
	Duration float64

	// FromUsers and ToUsers bound the concurrency level across the window.
	FromUsers int
	ToUsers   int

	// SpawnRate is the suggested number of users to start per second while
	// this phase is active.
	SpawnRate float64
}

// End returns the offset at which the window closes.
func (p Phase) End() float64 {
	return p.Start + p.Duration
}

// UserCountAt returns the target user count at elapsed seconds into the run.
// The window is inclusive at both ends; outside it the second return value
// is false. The count is truncated, not rounded, so it equals FromUsers at
// the window open and ToUsers at the window close. A zero-duration phase
// reports ToUsers for the single instant it covers.
func (p Phase) UserCountAt(elapsed float64) (int, bool) {
	if elapsed < p.Start || elapsed > p.End() {
		return 0, false
	}
	if p.Duration == 0 {
		return p.ToUsers, true
	}
	progress := (elapsed - p.Start) / p.Duration
	return int(float64(p.FromUsers) + float64(p.ToUsers-p.FromUsers)*progress), true
}
