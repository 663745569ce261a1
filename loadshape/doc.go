// Package loadshape turns elapsed run time into concurrency targets for a
// load-generating workload.
//
// A load shape is an ordered sequence of phases. Each phase covers a time
// window and moves the target user count linearly between two bounds; a
// spike is a near-instant jump, a steady phase holds one level. The Builder
// assembles contiguous sequences, and two schedulers evaluate them:
//
//   - Schedule: synchronous. Tick(elapsed) is a pure function returning the
//     active phase's target, or a miss once the shape is complete.
//   - Runner: concurrent. One worker per phase feeds a shared queue; Tick()
//     pops the freshest target without blocking.
//
// The package never spawns request workers itself. A driver applies the
// returned targets by scaling whatever does the actual work:
//
//	schedule, err := loadshape.NewBuilder().
//	    Spike(10).
//	    RampUp(20, 10).
//	    SteadyUsers(5, 5).
//	    StressRamp(5, 15, 10).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	start := time.Now()
//	for range time.Tick(time.Second) {
//	    target, ok := schedule.Tick(time.Since(start).Seconds())
//	    if !ok {
//	        break // shape complete
//	    }
//	    pool.ScaleTo(target.Users, target.SpawnRate)
//	}
//
// Thread Safety:
//
// Phase and Schedule are immutable values, safe to share. Builder is not
// safe for concurrent use. Runner is safe: many workers push while one
// consumer ticks.
package loadshape
