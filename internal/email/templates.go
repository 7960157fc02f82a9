package email

import (
	"fmt"
	"strings"
	"time"
)

type Notice struct {
	Subject string
	Body    string
}

type MentionDetails struct {
	TeamName   string
	AuthorName string
	Excerpt    string
}

type RegistrationDetails struct {
	PlayerName string
	Season     string
	Division   string
	FeeCents   int64
	Waitlisted bool
}

type GameReminderDetails struct {
	TeamName     string
	OpponentName string
	Court        string
	StartsAt     time.Time
}

// FormatDateTime renders a game start time the way it appears in emails.
func FormatDateTime(t time.Time) string {
	return fmt.Sprintf("%s at %s", t.Format("Monday, Jan 2, 2006"), t.Format("3:04 PM"))
}

func formatFee(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

// BuildMentionNotice builds the email sent to a coach or admin mentioned in
// a team message.
func BuildMentionNotice(details MentionDetails) Notice {
	author := strings.TrimSpace(details.AuthorName)
	if author == "" {
		author = "A coach"
	}
	team := strings.TrimSpace(details.TeamName)
	if team == "" {
		team = "your team"
	}

	excerpt := strings.TrimSpace(details.Excerpt)
	if len(excerpt) > 200 {
		excerpt = excerpt[:200] + "..."
	}

	lines := []string{
		fmt.Sprintf("%s mentioned you in a message to %s.", author, team),
		"",
	}
	if excerpt != "" {
		lines = append(lines, fmt.Sprintf("\"%s\"", excerpt), "")
	}
	lines = append(lines, "Sign in to read and reply.")

	return Notice{
		Subject: fmt.Sprintf("You were mentioned - %s", team),
		Body:    strings.Join(lines, "\n"),
	}
}

// BuildRegistrationNotice confirms a season registration to the guardian.
func BuildRegistrationNotice(details RegistrationDetails) Notice {
	status := "confirmed"
	if details.Waitlisted {
		status = "waitlisted"
	}

	lines := []string{
		fmt.Sprintf("%s is %s for the %s season (%s division).", details.PlayerName, status, details.Season, details.Division),
		"",
		fmt.Sprintf("Registration fee: %s", formatFee(details.FeeCents)),
	}
	if details.Waitlisted {
		lines = append(lines, "", "We will email you if a roster spot opens up.")
	}

	return Notice{
		Subject: fmt.Sprintf("Registration %s - %s", status, details.Season),
		Body:    strings.Join(lines, "\n"),
	}
}

// BuildGameReminder builds the day-before reminder sent to team coaches.
func BuildGameReminder(details GameReminderDetails) Notice {
	court := strings.TrimSpace(details.Court)
	if court == "" {
		court = "TBD"
	}

	lines := []string{
		fmt.Sprintf("%s plays %s tomorrow.", details.TeamName, details.OpponentName),
		"",
		fmt.Sprintf("When: %s", FormatDateTime(details.StartsAt)),
		fmt.Sprintf("Where: %s", court),
	}

	return Notice{
		Subject: fmt.Sprintf("Game reminder - %s vs %s", details.TeamName, details.OpponentName),
		Body:    strings.Join(lines, "\n"),
	}
}

// BuildPasswordReset builds the reset email. The token is single-use and
// short-lived.
func BuildPasswordReset(resetURL string, ttl time.Duration) Notice {
	lines := []string{
		"A password reset was requested for your account.",
		"",
		fmt.Sprintf("Reset your password: %s", resetURL),
		"",
		fmt.Sprintf("This link expires in %d minutes. If you did not request it, ignore this email.", int(ttl.Minutes())),
	}

	return Notice{
		Subject: "Password reset",
		Body:    strings.Join(lines, "\n"),
	}
}
