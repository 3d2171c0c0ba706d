package model

import (
	"fmt"
	"time"
)

// DateChunk is an inclusive range of calendar days inside a single year.
type DateChunk struct {
	Start time.Time
	End   time.Time
}

// Period is the label used for task names and output folders, e.g. 2015-04-01_to_2015-12-31.
func (c DateChunk) Period() string {
	return c.Start.Format(DateLayout) + "_to_" + c.End.Format(DateLayout)
}

func (c DateChunk) String() string {
	return c.Period()
}

// ParseDate parses a YYYY-MM-DD date at UTC midnight.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// ChunkByYear splits [start, end] into one chunk per calendar year it touches.
// The first chunk starts at start and the last one ends at end.
func ChunkByYear(start, end time.Time) ([]DateChunk, error) {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", end.Format(DateLayout), start.Format(DateLayout))
	}

	chunks := make([]DateChunk, 0, end.Year()-start.Year()+1)
	for year := start.Year(); year <= end.Year(); year++ {
		chunk := DateChunk{
			Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		}
		if year == start.Year() {
			chunk.Start = start
		}
		if year == end.Year() {
			chunk.End = end
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
