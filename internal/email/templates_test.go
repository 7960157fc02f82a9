package email

import (
	"strings"
	"testing"
	"time"
)

func TestBuildMentionNotice(t *testing.T) {
	notice := BuildMentionNotice(MentionDetails{
		TeamName:   "Salina Storm",
		AuthorName: "Jordan Smith",
		Excerpt:    "@coach.jones can you cover practice Thursday?",
	})

	if !strings.Contains(notice.Subject, "Salina Storm") {
		t.Errorf("subject %q should name the team", notice.Subject)
	}
	if !strings.Contains(notice.Body, "Jordan Smith mentioned you") {
		t.Errorf("body should name the author, got %q", notice.Body)
	}
	if !strings.Contains(notice.Body, "cover practice Thursday") {
		t.Errorf("body should quote the message, got %q", notice.Body)
	}
}

func TestBuildMentionNoticeDefaults(t *testing.T) {
	notice := BuildMentionNotice(MentionDetails{})
	if !strings.Contains(notice.Body, "A coach mentioned you") {
		t.Errorf("empty author should fall back, got %q", notice.Body)
	}
	if !strings.Contains(notice.Body, "your team") {
		t.Errorf("empty team should fall back, got %q", notice.Body)
	}
}

func TestBuildMentionNoticeTruncatesExcerpt(t *testing.T) {
	notice := BuildMentionNotice(MentionDetails{
		Excerpt: strings.Repeat("a", 300),
	})
	if !strings.Contains(notice.Body, strings.Repeat("a", 200)+"...") {
		t.Error("long excerpt should be truncated with ellipsis")
	}
	if strings.Contains(notice.Body, strings.Repeat("a", 201)) {
		t.Error("excerpt should not exceed 200 characters")
	}
}

func TestBuildRegistrationNotice(t *testing.T) {
	notice := BuildRegistrationNotice(RegistrationDetails{
		PlayerName: "Alex Doe",
		Season:     "2026-spring",
		Division:   "U12",
		FeeCents:   8550,
	})

	if !strings.Contains(notice.Body, "Alex Doe is confirmed") {
		t.Errorf("body = %q", notice.Body)
	}
	if !strings.Contains(notice.Body, "$85.50") {
		t.Errorf("fee should be formatted as dollars, got %q", notice.Body)
	}

	waitlisted := BuildRegistrationNotice(RegistrationDetails{
		PlayerName: "Alex Doe",
		Season:     "2026-spring",
		Division:   "U12",
		FeeCents:   8550,
		Waitlisted: true,
	})
	if !strings.Contains(waitlisted.Body, "waitlisted") {
		t.Errorf("waitlisted body = %q", waitlisted.Body)
	}
}

func TestBuildGameReminder(t *testing.T) {
	notice := BuildGameReminder(GameReminderDetails{
		TeamName:     "Salina Storm",
		OpponentName: "Abilene Hawks",
		Court:        "Court 2",
		StartsAt:     time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
	})

	if !strings.Contains(notice.Subject, "Salina Storm vs Abilene Hawks") {
		t.Errorf("subject = %q", notice.Subject)
	}
	if !strings.Contains(notice.Body, "Saturday, Mar 14, 2026 at 6:30 PM") {
		t.Errorf("body should contain formatted start time, got %q", notice.Body)
	}
}

func TestBuildPasswordReset(t *testing.T) {
	notice := BuildPasswordReset("https://example.com/reset?token=abc", 30*time.Minute)
	if !strings.Contains(notice.Body, "https://example.com/reset?token=abc") {
		t.Errorf("body should contain reset URL, got %q", notice.Body)
	}
	if !strings.Contains(notice.Body, "expires in 30 minutes") {
		t.Errorf("body should state TTL, got %q", notice.Body)
	}
}
