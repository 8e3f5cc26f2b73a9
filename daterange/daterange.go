// Package daterange resolves user-selected date presets into concrete
// intervals and filters conversation timestamps against them.
package daterange

import (
	"time"

	"github.com/pkg/errors"
)

// Preset identifies a user-selectable date range.
type Preset string

const (
	PresetAll    Preset = "all"
	PresetToday  Preset = "today"
	PresetWeek   Preset = "week"
	PresetMonth  Preset = "month"
	PresetYear   Preset = "year"
	PresetCustom Preset = "custom"
)

// dateLayout is the accepted format for explicit custom bounds.
const dateLayout = "2006-01-02"

// Interval is a half-open time interval: From inclusive, To exclusive.
// A nil bound means unbounded on that side.
type Interval struct {
	From *time.Time
	To   *time.Time
}

// Unbounded reports whether the interval has no bounds at all.
func (iv Interval) Unbounded() bool {
	return iv.From == nil && iv.To == nil
}

// Contains reports whether ts falls inside the interval.
// A nil timestamp is always considered in range: undated conversations must
// not be silently dropped by a filter the user applied to dated ones.
func (iv Interval) Contains(ts *time.Time) bool {
	if ts == nil {
		return true
	}
	if iv.From != nil && ts.Before(*iv.From) {
		return false
	}
	if iv.To != nil && !ts.Before(*iv.To) {
		return false
	}
	return true
}

// Resolve converts a preset into a concrete interval. Relative presets are
// anchored at local midnight of the current day at call time, so two calls on
// different calendar days yield different intervals.
//
// For PresetCustom, fromDate and toDate are "YYYY-MM-DD" strings; either may
// be empty to leave that side unbounded. The user-facing end date is
// inclusive, so it is advanced one day to form the exclusive upper bound.
func Resolve(preset Preset, fromDate, toDate string, now time.Time) (Interval, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch preset {
	case PresetAll, "":
		return Interval{}, nil
	case PresetToday:
		return Interval{From: &midnight}, nil
	case PresetWeek:
		from := midnight.AddDate(0, 0, -7)
		return Interval{From: &from}, nil
	case PresetMonth:
		from := midnight.AddDate(0, 0, -30)
		return Interval{From: &from}, nil
	case PresetYear:
		from := midnight.AddDate(-1, 0, 0)
		return Interval{From: &from}, nil
	case PresetCustom:
		var iv Interval
		if fromDate != "" {
			t, err := time.ParseInLocation(dateLayout, fromDate, now.Location())
			if err != nil {
				return Interval{}, errors.Wrapf(err, "invalid from date %q", fromDate)
			}
			iv.From = &t
		}
		if toDate != "" {
			t, err := time.ParseInLocation(dateLayout, toDate, now.Location())
			if err != nil {
				return Interval{}, errors.Wrapf(err, "invalid to date %q", toDate)
			}
			end := t.AddDate(0, 0, 1)
			iv.To = &end
		}
		return iv, nil
	default:
		return Interval{}, errors.Errorf("unknown date range preset %q", preset)
	}
}
