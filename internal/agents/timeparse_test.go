package agents

import (
	"testing"
	"time"
)

func TestParseWhen(t *testing.T) {
	// Tuesday, 10 March 2026, 14:30 local.
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		phrase string
		want   time.Time
	}{
		{"2026-04-01T10:00:00Z", time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-04-01 10:00", time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-04-01", time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)},
		{"in 30 minutes", now.Add(30 * time.Minute)},
		{"in 2 hours", now.Add(2 * time.Hour)},
		{"in 1 day", now.AddDate(0, 0, 1)},
		{"in 2 weeks", now.AddDate(0, 0, 14)},
		{"now", now},
		{"today", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
		{"tonight", time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)},
		{"tomorrow", time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)},
		{"tomorrow evening", time.Date(2026, 3, 11, 20, 0, 0, 0, time.UTC)},
		{"next week", time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)},
		{"next month", time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)},
		// Tuesday now; friday is 3 days out, next tuesday a full week.
		{"friday", time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)},
		{"tuesday", time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)},
		{"next tuesday", time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)},
		// 3pm is still ahead today; 9am already passed, rolls to tomorrow.
		{"at 3pm", time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)},
		{"3:45 pm", time.Date(2026, 3, 10, 15, 45, 0, 0, time.UTC)},
		{"9am", time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)},
		{"12am", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)},
		// Day-plus-clock composites pin the clock onto the named day.
		{"tomorrow at 9", time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)},
		{"tomorrow at 9am", time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)},
		{"tomorrow at 9:30", time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)},
		{"friday at 3pm", time.Date(2026, 3, 13, 15, 0, 0, 0, time.UTC)},
		{"today at 5pm", time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)},
		{"next week at 2:15 pm", time.Date(2026, 3, 17, 14, 15, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.phrase, func(t *testing.T) {
			got, err := ParseWhen(tc.phrase, now)
			if err != nil {
				t.Fatalf("ParseWhen(%q): %v", tc.phrase, err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("ParseWhen(%q) = %v, want %v", tc.phrase, got, tc.want)
			}
		})
	}
}

func TestParseWhenRejectsGibberish(t *testing.T) {
	now := time.Now()
	for _, phrase := range []string{"", "whenever", "soonish", "at 25pm", "in five minutes", "tomorrow at 25", "someday at 9"} {
		if _, err := ParseWhen(phrase, now); err == nil {
			t.Fatalf("expected error for %q", phrase)
		}
	}
}
