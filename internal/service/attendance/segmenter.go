package attendance

import "time"

// WorkSegment is one continuous stretch of work. An Open segment comes from
// an unpaired trailing punch; it ends at end of day and counts no time.
type WorkSegment struct {
	Start time.Time
	End   time.Time
	Open  bool
}

func (s WorkSegment) Duration() time.Duration {
	if s.Open {
		return 0
	}
	return s.End.Sub(s.Start)
}

type Segmentation struct {
	Segments []WorkSegment
	Break    time.Duration
}

// Closed returns the segments that carry worked time.
func (s Segmentation) Closed() []WorkSegment {
	out := make([]WorkSegment, 0, len(s.Segments))
	for _, seg := range s.Segments {
		if !seg.Open {
			out = append(out, seg)
		}
	}
	return out
}

// HasOpen reports whether the last punch of the day was left unpaired.
func (s Segmentation) HasOpen() bool {
	n := len(s.Segments)
	return n > 0 && s.Segments[n-1].Open
}

// Worked sums the closed segments.
func (s Segmentation) Worked() time.Duration {
	var d time.Duration
	for _, seg := range s.Segments {
		d += seg.Duration()
	}
	return d
}

// Segment pairs deduplicated, increasing punches as (in, out). A gap between
// two pairs longer than lunchThreshold is a break; a shorter gap is noise
// and the pairs are merged with the gap counted as worked. An odd trailing
// punch becomes an open segment ending at endOfDay.
func Segment(ts []time.Time, lunchThreshold time.Duration, endOfDay time.Time) Segmentation {
	var res Segmentation
	for i := 0; i+1 < len(ts); i += 2 {
		seg := WorkSegment{Start: ts[i], End: ts[i+1]}
		if n := len(res.Segments); n > 0 {
			last := &res.Segments[n-1]
			gap := seg.Start.Sub(last.End)
			if gap <= lunchThreshold {
				last.End = seg.End
				continue
			}
			res.Break += gap
		}
		res.Segments = append(res.Segments, seg)
	}

	if len(ts)%2 == 1 {
		start := ts[len(ts)-1]
		end := endOfDay
		if end.Before(start) {
			end = start
		}
		res.Segments = append(res.Segments, WorkSegment{Start: start, End: end, Open: true})
	}
	return res
}
