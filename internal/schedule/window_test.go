package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

// mondayAt returns a far-future Monday at the given clock time. The anchor is
// a known Monday; adding whole weeks preserves the weekday.
func mondayAt(hour, min int) time.Time {
	anchor := time.Date(2024, 1, 1, hour, min, 0, 0, time.UTC)
	return anchor.AddDate(0, 0, 7*520)
}

func TestParseWeekly(t *testing.T) {
	w, err := ParseWeekly("Mon-Fri 08:00-16:00")
	require.NoError(t, err)

	for _, day := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		windows := w.WindowsOn(day)
		require.Len(t, windows, 1, "expected one window on %s", day)
		assert.Equal(t, 8*60, windows[0].Start)
		assert.Equal(t, 16*60, windows[0].End)
	}
	assert.Empty(t, w.WindowsOn(time.Saturday))
	assert.Empty(t, w.WindowsOn(time.Sunday))
}

func TestParseWeeklyLegacyFormat(t *testing.T) {
	// Schedule strings migrated from the old patient portal.
	w, err := ParseWeekly("Lun - Ven | 08:00 - 16:00")
	require.NoError(t, err)

	assert.Len(t, w.WindowsOn(time.Monday), 1)
	assert.Len(t, w.WindowsOn(time.Friday), 1)
	assert.Empty(t, w.WindowsOn(time.Saturday))
}

func TestParseWeeklySplitShift(t *testing.T) {
	w, err := ParseWeekly("Mon-Wed 08:00-12:00; Mon-Wed 14:00-18:00")
	require.NoError(t, err)

	windows := w.WindowsOn(time.Monday)
	require.Len(t, windows, 2)
	assert.Equal(t, 8*60, windows[0].Start)
	assert.Equal(t, 14*60, windows[1].Start)
	assert.Empty(t, w.WindowsOn(time.Thursday))
}

func TestParseWeeklyWeekendRange(t *testing.T) {
	w, err := ParseWeekly("Sat-Sun 10:00-14:00")
	require.NoError(t, err)

	assert.Len(t, w.WindowsOn(time.Saturday), 1)
	assert.Len(t, w.WindowsOn(time.Sunday), 1)
	assert.Empty(t, w.WindowsOn(time.Monday))
}

func TestParseWeeklyRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"whenever",
		"Mon 16:00-08:00",
		"Mon 08:00-08:00",
		"Xyz 08:00-16:00",
		"Mon 25:00-26:00",
		"Mon 08:00-12:00; Mon 11:00-14:00",
	}
	for _, tc := range cases {
		_, err := ParseWeekly(tc)
		assert.Error(t, err, "expected %q to be rejected", tc)
	}
}

func TestContains(t *testing.T) {
	w, err := ParseWeekly("Mon-Fri 08:00-16:00")
	require.NoError(t, err)

	inside := model.TimeSlot{Start: mondayAt(9, 0), End: mondayAt(9, 30)}
	assert.True(t, w.Contains(inside, time.UTC))

	// Ends exactly at the window's end: still inside a half-open interval.
	boundary := model.TimeSlot{Start: mondayAt(15, 30), End: mondayAt(16, 0)}
	assert.True(t, w.Contains(boundary, time.UTC))

	spillsOver := model.TimeSlot{Start: mondayAt(15, 45), End: mondayAt(16, 15)}
	assert.False(t, w.Contains(spillsOver, time.UTC))

	before := model.TimeSlot{Start: mondayAt(7, 30), End: mondayAt(8, 0)}
	assert.False(t, w.Contains(before, time.UTC))

	sunday := model.TimeSlot{Start: mondayAt(9, 0).AddDate(0, 0, -1), End: mondayAt(9, 30).AddDate(0, 0, -1)}
	assert.False(t, w.Contains(sunday, time.UTC))

	crossMidnight := model.TimeSlot{Start: mondayAt(23, 45), End: mondayAt(23, 45).Add(30 * time.Minute)}
	assert.False(t, w.Contains(crossMidnight, time.UTC))
}

func TestCandidateSlots(t *testing.T) {
	w, err := ParseWeekly("Mon 09:00-12:00")
	require.NoError(t, err)

	date := mondayAt(0, 0)
	past := date.AddDate(0, 0, -30)

	slots := w.CandidateSlots(date, past, 30*time.Minute, 30*time.Minute, time.UTC)
	require.Len(t, slots, 6)
	assert.Equal(t, mondayAt(9, 0), slots[0].Start)
	assert.Equal(t, mondayAt(11, 30), slots[5].Start)
	assert.Equal(t, mondayAt(12, 0), slots[5].End)
}

func TestContainsNonUTCLocation(t *testing.T) {
	w, err := ParseWeekly("Mon 09:00-12:00")
	require.NoError(t, err)

	plus13 := time.FixedZone("UTC+13", 13*60*60)
	// Sunday 20:00 UTC is Monday 09:00 in UTC+13.
	slot := model.TimeSlot{
		Start: mondayAt(9, 0).Add(-13 * time.Hour),
		End:   mondayAt(9, 30).Add(-13 * time.Hour),
	}
	assert.True(t, w.Contains(slot, plus13))
	assert.False(t, w.Contains(slot, time.UTC))
}

func TestCandidateSlotsNonUTCLocation(t *testing.T) {
	w, err := ParseWeekly("Mon 09:00-12:00")
	require.NoError(t, err)

	minus5 := time.FixedZone("UTC-5", -5*60*60)
	// Tuesday 00:00 UTC is still Monday 19:00 in UTC-5, so the query date
	// resolves to the local Monday.
	date := mondayAt(0, 0).AddDate(0, 0, 1)
	past := date.AddDate(0, 0, -30)

	slots := w.CandidateSlots(date, past, 30*time.Minute, 30*time.Minute, minus5)
	require.Len(t, slots, 6)
	assert.Equal(t, 9, slots[0].Start.In(minus5).Hour())
	assert.True(t, slots[0].Start.Equal(mondayAt(14, 0)))
}

func TestCandidateSlotsExcludesElapsed(t *testing.T) {
	w, err := ParseWeekly("Mon 09:00-12:00")
	require.NoError(t, err)

	// Mid-morning: the 09:00-10:00 slots have already begun.
	now := mondayAt(10, 15)
	slots := w.CandidateSlots(mondayAt(0, 0), now, 30*time.Minute, 30*time.Minute, time.UTC)
	require.Len(t, slots, 3)
	assert.Equal(t, mondayAt(10, 30), slots[0].Start)
}

func TestCandidateSlotsNeedRoomForFullConsultation(t *testing.T) {
	w, err := ParseWeekly("Mon 09:00-10:00")
	require.NoError(t, err)

	slots := w.CandidateSlots(mondayAt(0, 0), mondayAt(0, 0), 30*time.Minute, 45*time.Minute, time.UTC)
	require.Len(t, slots, 1)
	assert.Equal(t, mondayAt(9, 0), slots[0].Start)
}

func TestCandidateSlotsEmptyDay(t *testing.T) {
	w, err := ParseWeekly("Tue 09:00-12:00")
	require.NoError(t, err)

	slots := w.CandidateSlots(mondayAt(0, 0), mondayAt(0, 0), 30*time.Minute, 30*time.Minute, time.UTC)
	assert.Empty(t, slots)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	weekly, usedDefault, err := Resolve("not a schedule", "08:00-18:00")
	require.NotNil(t, weekly)
	assert.True(t, usedDefault)
	assert.Error(t, err)

	for day := time.Sunday; day <= time.Saturday; day++ {
		windows := weekly.WindowsOn(day)
		require.Len(t, windows, 1)
		assert.Equal(t, 8*60, windows[0].Start)
		assert.Equal(t, 18*60, windows[0].End)
	}
}

func TestResolveEmptyScheduleUsesDefaultWithoutError(t *testing.T) {
	weekly, usedDefault, err := Resolve("", "08:00-18:00")
	require.NotNil(t, weekly)
	assert.True(t, usedDefault)
	assert.NoError(t, err)
}

func TestResolveValidSchedule(t *testing.T) {
	weekly, usedDefault, err := Resolve("Mon-Fri 08:00-16:00", "08:00-18:00")
	require.NotNil(t, weekly)
	assert.False(t, usedDefault)
	assert.NoError(t, err)
	assert.Empty(t, weekly.WindowsOn(time.Sunday))
}
