package db

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int64
	PublicID     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        sql.NullString
	Role         string
	CreatedAt    time.Time
}

type Team struct {
	ID        int64
	Name      string
	Division  string
	Season    string
	CoachID   sql.NullInt64
	MaxRoster int64
	CreatedAt time.Time
}

type Player struct {
	ID         int64
	TeamID     sql.NullInt64
	FirstName  string
	LastName   string
	BirthDate  time.Time
	Grade      int64
	GuardianID int64
	CreatedAt  time.Time
}

type Registration struct {
	ID        int64
	PlayerID  int64
	Season    string
	Division  string
	Status    string
	FeeCents  int64
	Paid      bool
	CreatedAt time.Time
}

type Message struct {
	ID        int64
	TeamID    int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
}

type MessageReply struct {
	ID        int64
	MessageID int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
}

type MentionNotification struct {
	ID                int64
	MessageID         int64
	ReplyID           sql.NullInt64
	MentionedUserID   int64
	MentionedByUserID int64
	Read              bool
	CreatedAt         time.Time
}

type Game struct {
	ID         int64
	Season     string
	HomeTeamID int64
	AwayTeamID int64
	Court      string
	StartsAt   time.Time
	HomeScore  sql.NullInt64
	AwayScore  sql.NullInt64
	CreatedAt  time.Time
}

// DirectoryEntry is the slim user row used for mention resolution.
type DirectoryEntry struct {
	ID    int64
	Email string
}
