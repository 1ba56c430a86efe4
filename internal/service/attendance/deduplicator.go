package attendance

import (
	"slices"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
)

// Deduplicate sorts ts and collapses every run of timestamps whose
// consecutive gaps are below window into its earliest member. The result is
// strictly increasing and never longer than the input.
func Deduplicate(ts []time.Time, window time.Duration) []time.Time {
	sorted := slices.Clone(ts)
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })

	out := make([]time.Time, 0, len(sorted))
	for i, t := range sorted {
		if i > 0 && isDuplicate(sorted[i-1], t, window) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// MarkDuplicates returns punches sorted by timestamp with Kept set on the
// punches Deduplicate would keep. The input is not modified.
func MarkDuplicates(punches []attendance.StoredPunch, window time.Duration) []attendance.StoredPunch {
	out := slices.Clone(punches)
	slices.SortStableFunc(out, func(a, b attendance.StoredPunch) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	for i := range out {
		out[i].Kept = i == 0 || !isDuplicate(out[i-1].Timestamp, out[i].Timestamp, window)
	}
	return out
}

// Equal timestamps are always duplicates, even with a zero window.
func isDuplicate(prev, cur time.Time, window time.Duration) bool {
	gap := cur.Sub(prev)
	return gap <= 0 || gap < window
}
