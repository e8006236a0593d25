package leakcheck

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"pgregory.net/rapid"
)

// TestTrackUntrackConsistentUnderRandomOrdering checks that, for an
// arbitrary interleaving of Track and Untrack calls across a pool of
// resources, Live() always equals the number of resources currently
// tracked, and that Untrack is itself idempotent: untracking the same
// handle twice never changes the live count or panics.
func TestTrackUntrackConsistentUnderRandomOrdering(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := New(false, time.Hour, time.Hour, zerolog.Nop())

		type tracked struct {
			handle Handle
			live   bool
		}
		var entries []tracked
		want := 0

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			// Either track a fresh resource or untrack (possibly
			// twice) an existing one.
			if len(entries) == 0 || rapid.Bool().Draw(rt, "track") {
				h := tr.Track("dataset", &fakeResource{})
				entries = append(entries, tracked{handle: h, live: true})
				want++
				continue
			}

			idx := rapid.IntRange(0, len(entries)-1).Draw(rt, "idx")
			tr.Untrack(entries[idx].handle)
			if entries[idx].live {
				want--
			}
			entries[idx].live = false

			if rapid.Bool().Draw(rt, "double-untrack") {
				tr.Untrack(entries[idx].handle)
			}
		}

		if got := tr.Live(); got != want {
			rt.Fatalf("expected %d live resources, got %d", want, got)
		}
	})
}

// TestSweepNeverReleasesAResourceTwice checks that, no matter how many
// sweep ticks fire while a resource stays untracked-or-not, a given
// resource is force-released at most once: sweep removes it from the
// live set on the same pass it calls Release, so a later sweep cannot
// see it again.
func TestSweepNeverReleasesAResourceTwice(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := New(false, time.Hour, time.Hour, zerolog.Nop())
		r := &fakeResource{}
		tr.Track("sink", r)

		sweeps := rapid.IntRange(1, 5).Draw(rt, "sweeps")
		releases := 0
		for i := 0; i < sweeps; i++ {
			before := r.released.Load()
			tr.sweep()
			after := r.released.Load()
			if !before && after {
				releases++
			}
		}
		if releases > 1 {
			rt.Fatalf("expected at most one release across %d sweeps, observed %d", sweeps, releases)
		}
	})
}
