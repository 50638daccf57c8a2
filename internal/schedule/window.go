package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

// Weekly holds a practitioner's working windows indexed by weekday.
type Weekly struct {
	windows [7][]model.WorkingWindow
}

// Day abbreviations accepted in schedule strings. The French forms appear in
// data migrated from the legacy system ("Lun - Ven | 08:00 - 16:00").
var dayNames = map[string]time.Weekday{
	"mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
	"sun": time.Sunday,
	"lun": time.Monday, "mar": time.Tuesday, "mer": time.Wednesday,
	"jeu": time.Thursday, "ven": time.Friday, "sam": time.Saturday,
	"dim": time.Sunday,
}

// ParseWeekly parses a schedule string into weekly working windows.
//
// Each clause is "<day>[-<day>] <HH:MM>-<HH:MM>"; clauses are separated by
// ';' to support split shifts. Legacy separators ('|', extra spaces) are
// tolerated. Windows on the same day must not overlap and each window must
// have start < end.
func ParseWeekly(s string) (*Weekly, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	w := &Weekly{}
	for _, clause := range strings.Split(cleaned, ";") {
		if err := w.parseClause(clause); err != nil {
			return nil, err
		}
	}

	for day := range w.windows {
		if err := checkDisjoint(w.windows[day]); err != nil {
			return nil, fmt.Errorf("%s: %w", time.Weekday(day), err)
		}
	}
	return w, nil
}

func (w *Weekly) parseClause(clause string) error {
	normalized := strings.ToLower(clause)
	normalized = strings.ReplaceAll(normalized, "|", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	if normalized == "" {
		return fmt.Errorf("empty schedule clause")
	}

	// The day part is everything before the first digit.
	split := strings.IndexAny(normalized, "0123456789")
	if split <= 0 {
		return fmt.Errorf("schedule clause %q has no day or time part", strings.TrimSpace(clause))
	}
	dayPart := strings.Trim(normalized[:split], "-")
	timePart := normalized[split:]

	days, err := parseDayRange(dayPart)
	if err != nil {
		return err
	}

	start, end, err := parseTimeRange(timePart)
	if err != nil {
		return err
	}

	for _, day := range days {
		w.windows[day] = append(w.windows[day], model.WorkingWindow{
			Weekday: day,
			Start:   start,
			End:     end,
		})
	}
	return nil
}

func parseDayRange(s string) ([]time.Weekday, error) {
	parts := strings.SplitN(s, "-", 2)
	first, ok := dayNames[abbrev(parts[0])]
	if !ok {
		return nil, fmt.Errorf("unknown day %q", parts[0])
	}
	if len(parts) == 1 {
		return []time.Weekday{first}, nil
	}

	last, ok := dayNames[abbrev(parts[1])]
	if !ok {
		return nil, fmt.Errorf("unknown day %q", parts[1])
	}

	// Iterate Monday-first so "Mon-Fri" and "Sat-Sun" both work.
	var days []time.Weekday
	started := false
	for i := 0; i < 7; i++ {
		day := time.Weekday((int(time.Monday) + i) % 7)
		if day == first {
			started = true
		}
		if started {
			days = append(days, day)
		}
		if started && day == last {
			return days, nil
		}
	}
	return nil, fmt.Errorf("invalid day range %q", s)
}

func abbrev(s string) string {
	if len(s) > 3 {
		return s[:3]
	}
	return s
}

func parseTimeRange(s string) (int, int, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time range %q", s)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if start >= end {
		return 0, 0, fmt.Errorf("window start %q not before end %q", parts[0], parts[1])
	}
	return start, end, nil
}

// parseClock converts "HH:MM" to minutes from midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute %q", parts[1])
	}
	return hour*60 + minute, nil
}

func checkDisjoint(windows []model.WorkingWindow) error {
	for i := range windows {
		for j := i + 1; j < len(windows); j++ {
			if windows[i].Start < windows[j].End && windows[i].End > windows[j].Start {
				return fmt.Errorf("overlapping working windows")
			}
		}
	}
	return nil
}

// WindowsOn returns the configured windows for a weekday. An empty result is
// a normal outcome, not an error.
func (w *Weekly) WindowsOn(day time.Weekday) []model.WorkingWindow {
	return w.windows[day]
}

// Contains reports whether the interval lies fully inside one working window
// of its weekday, evaluated in loc. Intervals spanning midnight never fit.
func (w *Weekly) Contains(slot model.TimeSlot, loc *time.Location) bool {
	start := slot.Start.In(loc)
	end := slot.End.In(loc)
	if start.YearDay() != end.YearDay() || start.Year() != end.Year() {
		return false
	}

	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	for _, win := range w.windows[start.Weekday()] {
		if win.Start <= startMin && endMin <= win.End {
			return true
		}
	}
	return false
}

// CandidateSlots enumerates quantized consultation start times on the given
// date. A start is included only if a full consultation fits before the
// window's end, and slots that have already begun relative to now are
// excluded.
func (w *Weekly) CandidateSlots(date time.Time, now time.Time, granularity, duration time.Duration, loc *time.Location) []model.TimeSlot {
	local := date.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var slots []model.TimeSlot
	for _, win := range w.windows[local.Weekday()] {
		winStart := midnight.Add(time.Duration(win.Start) * time.Minute)
		winEnd := midnight.Add(time.Duration(win.End) * time.Minute)

		for start := winStart; !start.Add(duration).After(winEnd); start = start.Add(granularity) {
			if start.Before(now) {
				continue
			}
			slots = append(slots, model.TimeSlot{Start: start, End: start.Add(duration)})
		}
	}
	return slots
}

// Resolve parses a practitioner's schedule string, falling back to the
// default working window (applied to all seven days) when the string is
// missing or malformed. usedDefault tells the caller the fallback happened;
// err carries the parse failure for logging and is non-nil only alongside
// usedDefault.
func Resolve(scheduleStr, defaultWindow string) (weekly *Weekly, usedDefault bool, err error) {
	if strings.TrimSpace(scheduleStr) != "" {
		weekly, parseErr := ParseWeekly(scheduleStr)
		if parseErr == nil {
			return weekly, false, nil
		}
		err = parseErr
	}

	fallback := &Weekly{}
	start, end, rangeErr := parseTimeRange(strings.ReplaceAll(defaultWindow, " ", ""))
	if rangeErr != nil {
		// Misconfigured default; last-resort constants keep availability working.
		start, end = 8*60, 18*60
	}
	for day := 0; day < 7; day++ {
		fallback.windows[day] = []model.WorkingWindow{{
			Weekday: time.Weekday(day),
			Start:   start,
			End:     end,
		}}
	}
	return fallback, true, err
}
