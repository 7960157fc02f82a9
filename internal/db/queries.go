package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the subset of *sql.DB / *sql.Tx the query layer needs, so the
// same Queries work inside and outside transactions.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// --- users ---

const createUser = `
INSERT INTO users (public_id, email, password_hash, first_name, last_name, phone, role)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateUserParams struct {
	PublicID     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        sql.NullString
	Role         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	res, err := q.db.ExecContext(ctx, createUser,
		arg.PublicID, arg.Email, arg.PasswordHash, arg.FirstName, arg.LastName, arg.Phone, arg.Role)
	if err != nil {
		return User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, id)
}

const getUserByID = `
SELECT id, public_id, email, password_hash, first_name, last_name, phone, role, created_at
FROM users WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUserByID, id).Scan(
		&u.ID, &u.PublicID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, public_id, email, password_hash, first_name, last_name, phone, role, created_at
FROM users WHERE email = ?
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUserByEmail, email).Scan(
		&u.ID, &u.PublicID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.CreatedAt)
	return u, err
}

const updateUserPassword = `
UPDATE users SET password_hash = ? WHERE id = ?
`

func (q *Queries) UpdateUserPassword(ctx context.Context, passwordHash string, id int64) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, passwordHash, id)
	return err
}

// Mention resolution iterates the directory in email order so first-match
// tie-breaks are deterministic.
const listMentionDirectory = `
SELECT id, email FROM users WHERE role IN ('coach', 'admin') ORDER BY email ASC
`

func (q *Queries) ListMentionDirectory(ctx context.Context) ([]DirectoryEntry, error) {
	rows, err := q.db.QueryContext(ctx, listMentionDirectory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []DirectoryEntry
	for rows.Next() {
		var e DirectoryEntry
		if err := rows.Scan(&e.ID, &e.Email); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- teams ---

const createTeam = `
INSERT INTO teams (name, division, season, coach_id, max_roster)
VALUES (?, ?, ?, ?, ?)
`

type CreateTeamParams struct {
	Name      string
	Division  string
	Season    string
	CoachID   sql.NullInt64
	MaxRoster int64
}

func (q *Queries) CreateTeam(ctx context.Context, arg CreateTeamParams) (Team, error) {
	res, err := q.db.ExecContext(ctx, createTeam,
		arg.Name, arg.Division, arg.Season, arg.CoachID, arg.MaxRoster)
	if err != nil {
		return Team{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Team{}, err
	}
	return q.GetTeam(ctx, id)
}

const getTeam = `
SELECT id, name, division, season, coach_id, max_roster, created_at
FROM teams WHERE id = ?
`

func (q *Queries) GetTeam(ctx context.Context, id int64) (Team, error) {
	var t Team
	err := q.db.QueryRowContext(ctx, getTeam, id).Scan(
		&t.ID, &t.Name, &t.Division, &t.Season, &t.CoachID, &t.MaxRoster, &t.CreatedAt)
	return t, err
}

const listTeamsBySeason = `
SELECT id, name, division, season, coach_id, max_roster, created_at
FROM teams WHERE season = ? ORDER BY division, name
`

func (q *Queries) ListTeamsBySeason(ctx context.Context, season string) ([]Team, error) {
	return q.scanTeams(ctx, listTeamsBySeason, season)
}

const listTeamsByDivision = `
SELECT id, name, division, season, coach_id, max_roster, created_at
FROM teams WHERE season = ? AND division = ? ORDER BY name
`

func (q *Queries) ListTeamsByDivision(ctx context.Context, season, division string) ([]Team, error) {
	return q.scanTeams(ctx, listTeamsByDivision, season, division)
}

func (q *Queries) scanTeams(ctx context.Context, query string, args ...any) ([]Team, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Division, &t.Season, &t.CoachID, &t.MaxRoster, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

const countTeamRoster = `
SELECT COUNT(*) FROM players WHERE team_id = ?
`

func (q *Queries) CountTeamRoster(ctx context.Context, teamID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countTeamRoster, teamID).Scan(&count)
	return count, err
}

const deleteTeam = `
DELETE FROM teams WHERE id = ?
`

func (q *Queries) DeleteTeam(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteTeam, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- players ---

const createPlayer = `
INSERT INTO players (team_id, first_name, last_name, birth_date, grade, guardian_id)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreatePlayerParams struct {
	TeamID     sql.NullInt64
	FirstName  string
	LastName   string
	BirthDate  time.Time
	Grade      int64
	GuardianID int64
}

func (q *Queries) CreatePlayer(ctx context.Context, arg CreatePlayerParams) (Player, error) {
	res, err := q.db.ExecContext(ctx, createPlayer,
		arg.TeamID, arg.FirstName, arg.LastName, arg.BirthDate, arg.Grade, arg.GuardianID)
	if err != nil {
		return Player{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Player{}, err
	}
	return q.GetPlayer(ctx, id)
}

const getPlayer = `
SELECT id, team_id, first_name, last_name, birth_date, grade, guardian_id, created_at
FROM players WHERE id = ?
`

func (q *Queries) GetPlayer(ctx context.Context, id int64) (Player, error) {
	var p Player
	err := q.db.QueryRowContext(ctx, getPlayer, id).Scan(
		&p.ID, &p.TeamID, &p.FirstName, &p.LastName, &p.BirthDate, &p.Grade, &p.GuardianID, &p.CreatedAt)
	return p, err
}

const listPlayersByGuardian = `
SELECT id, team_id, first_name, last_name, birth_date, grade, guardian_id, created_at
FROM players WHERE guardian_id = ? ORDER BY last_name, first_name
`

func (q *Queries) ListPlayersByGuardian(ctx context.Context, guardianID int64) ([]Player, error) {
	return q.scanPlayers(ctx, listPlayersByGuardian, guardianID)
}

const listTeamRoster = `
SELECT id, team_id, first_name, last_name, birth_date, grade, guardian_id, created_at
FROM players WHERE team_id = ? ORDER BY last_name, first_name
`

func (q *Queries) ListTeamRoster(ctx context.Context, teamID int64) ([]Player, error) {
	return q.scanPlayers(ctx, listTeamRoster, teamID)
}

func (q *Queries) scanPlayers(ctx context.Context, query string, args ...any) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.TeamID, &p.FirstName, &p.LastName, &p.BirthDate, &p.Grade, &p.GuardianID, &p.CreatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

const assignPlayerToTeam = `
UPDATE players SET team_id = ? WHERE id = ?
`

func (q *Queries) AssignPlayerToTeam(ctx context.Context, teamID, playerID int64) error {
	_, err := q.db.ExecContext(ctx, assignPlayerToTeam, teamID, playerID)
	return err
}

const removePlayerFromTeam = `
UPDATE players SET team_id = NULL WHERE id = ? AND team_id = ?
`

func (q *Queries) RemovePlayerFromTeam(ctx context.Context, playerID, teamID int64) error {
	res, err := q.db.ExecContext(ctx, removePlayerFromTeam, playerID, teamID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- registrations ---

const createRegistration = `
INSERT INTO registrations (player_id, season, division, status, fee_cents)
VALUES (?, ?, ?, ?, ?)
`

type CreateRegistrationParams struct {
	PlayerID int64
	Season   string
	Division string
	Status   string
	FeeCents int64
}

func (q *Queries) CreateRegistration(ctx context.Context, arg CreateRegistrationParams) (Registration, error) {
	res, err := q.db.ExecContext(ctx, createRegistration,
		arg.PlayerID, arg.Season, arg.Division, arg.Status, arg.FeeCents)
	if err != nil {
		return Registration{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Registration{}, err
	}
	return q.GetRegistration(ctx, id)
}

const getRegistration = `
SELECT id, player_id, season, division, status, fee_cents, paid, created_at
FROM registrations WHERE id = ?
`

func (q *Queries) GetRegistration(ctx context.Context, id int64) (Registration, error) {
	var r Registration
	err := q.db.QueryRowContext(ctx, getRegistration, id).Scan(
		&r.ID, &r.PlayerID, &r.Season, &r.Division, &r.Status, &r.FeeCents, &r.Paid, &r.CreatedAt)
	return r, err
}

const listRegistrationsBySeason = `
SELECT id, player_id, season, division, status, fee_cents, paid, created_at
FROM registrations WHERE season = ? ORDER BY created_at
`

func (q *Queries) ListRegistrationsBySeason(ctx context.Context, season string) ([]Registration, error) {
	rows, err := q.db.QueryContext(ctx, listRegistrationsBySeason, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var registrations []Registration
	for rows.Next() {
		var r Registration
		if err := rows.Scan(&r.ID, &r.PlayerID, &r.Season, &r.Division, &r.Status, &r.FeeCents, &r.Paid, &r.CreatedAt); err != nil {
			return nil, err
		}
		registrations = append(registrations, r)
	}
	return registrations, rows.Err()
}

const updateRegistrationStatus = `
UPDATE registrations SET status = ? WHERE id = ?
`

func (q *Queries) UpdateRegistrationStatus(ctx context.Context, status string, id int64) error {
	_, err := q.db.ExecContext(ctx, updateRegistrationStatus, status, id)
	return err
}

const markRegistrationPaid = `
UPDATE registrations SET paid = 1 WHERE id = ?
`

func (q *Queries) MarkRegistrationPaid(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markRegistrationPaid, id)
	return err
}

const countActiveRegistrations = `
SELECT COUNT(*) FROM registrations
WHERE season = ? AND division = ? AND status IN ('pending', 'approved')
`

func (q *Queries) CountActiveRegistrations(ctx context.Context, season, division string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countActiveRegistrations, season, division).Scan(&count)
	return count, err
}

const countGuardianRegistrations = `
SELECT COUNT(*) FROM registrations r
JOIN players p ON p.id = r.player_id
WHERE p.guardian_id = ? AND r.season = ?
`

func (q *Queries) CountGuardianRegistrations(ctx context.Context, guardianID int64, season string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countGuardianRegistrations, guardianID, season).Scan(&count)
	return count, err
}

// --- messages ---

const createMessage = `
INSERT INTO messages (team_id, author_id, content) VALUES (?, ?, ?)
`

type CreateMessageParams struct {
	TeamID   int64
	AuthorID int64
	Content  string
}

func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error) {
	res, err := q.db.ExecContext(ctx, createMessage, arg.TeamID, arg.AuthorID, arg.Content)
	if err != nil {
		return Message{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Message{}, err
	}
	return q.GetMessage(ctx, id)
}

const getMessage = `
SELECT id, team_id, author_id, content, created_at FROM messages WHERE id = ?
`

func (q *Queries) GetMessage(ctx context.Context, id int64) (Message, error) {
	var m Message
	err := q.db.QueryRowContext(ctx, getMessage, id).Scan(
		&m.ID, &m.TeamID, &m.AuthorID, &m.Content, &m.CreatedAt)
	return m, err
}

const listTeamMessages = `
SELECT id, team_id, author_id, content, created_at
FROM messages WHERE team_id = ?
ORDER BY created_at DESC LIMIT ? OFFSET ?
`

func (q *Queries) ListTeamMessages(ctx context.Context, teamID, limit, offset int64) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, listTeamMessages, teamID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.TeamID, &m.AuthorID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

const createMessageReply = `
INSERT INTO message_replies (message_id, author_id, content) VALUES (?, ?, ?)
`

type CreateMessageReplyParams struct {
	MessageID int64
	AuthorID  int64
	Content   string
}

func (q *Queries) CreateMessageReply(ctx context.Context, arg CreateMessageReplyParams) (MessageReply, error) {
	res, err := q.db.ExecContext(ctx, createMessageReply, arg.MessageID, arg.AuthorID, arg.Content)
	if err != nil {
		return MessageReply{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return MessageReply{}, err
	}
	return q.GetMessageReply(ctx, id)
}

const getMessageReply = `
SELECT id, message_id, author_id, content, created_at FROM message_replies WHERE id = ?
`

func (q *Queries) GetMessageReply(ctx context.Context, id int64) (MessageReply, error) {
	var r MessageReply
	err := q.db.QueryRowContext(ctx, getMessageReply, id).Scan(
		&r.ID, &r.MessageID, &r.AuthorID, &r.Content, &r.CreatedAt)
	return r, err
}

const listMessageReplies = `
SELECT id, message_id, author_id, content, created_at
FROM message_replies WHERE message_id = ? ORDER BY created_at
`

func (q *Queries) ListMessageReplies(ctx context.Context, messageID int64) ([]MessageReply, error) {
	rows, err := q.db.QueryContext(ctx, listMessageReplies, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var replies []MessageReply
	for rows.Next() {
		var r MessageReply
		if err := rows.Scan(&r.ID, &r.MessageID, &r.AuthorID, &r.Content, &r.CreatedAt); err != nil {
			return nil, err
		}
		replies = append(replies, r)
	}
	return replies, rows.Err()
}

// --- mention notifications ---

const createMentionNotification = `
INSERT INTO mention_notifications (message_id, reply_id, mentioned_user_id, mentioned_by_user_id)
VALUES (?, ?, ?, ?)
`

type CreateMentionNotificationParams struct {
	MessageID         int64
	ReplyID           sql.NullInt64
	MentionedUserID   int64
	MentionedByUserID int64
}

func (q *Queries) CreateMentionNotification(ctx context.Context, arg CreateMentionNotificationParams) error {
	_, err := q.db.ExecContext(ctx, createMentionNotification,
		arg.MessageID, arg.ReplyID, arg.MentionedUserID, arg.MentionedByUserID)
	return err
}

const listMentionNotifications = `
SELECT id, message_id, reply_id, mentioned_user_id, mentioned_by_user_id, read, created_at
FROM mention_notifications
WHERE mentioned_user_id = ?
ORDER BY created_at DESC LIMIT ?
`

func (q *Queries) ListMentionNotifications(ctx context.Context, userID, limit int64) ([]MentionNotification, error) {
	rows, err := q.db.QueryContext(ctx, listMentionNotifications, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []MentionNotification
	for rows.Next() {
		var n MentionNotification
		if err := rows.Scan(&n.ID, &n.MessageID, &n.ReplyID, &n.MentionedUserID, &n.MentionedByUserID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

const countUnreadMentionNotifications = `
SELECT COUNT(*) FROM mention_notifications WHERE mentioned_user_id = ? AND read = 0
`

func (q *Queries) CountUnreadMentionNotifications(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUnreadMentionNotifications, userID).Scan(&count)
	return count, err
}

const markMentionNotificationRead = `
UPDATE mention_notifications SET read = 1 WHERE id = ? AND mentioned_user_id = ?
`

func (q *Queries) MarkMentionNotificationRead(ctx context.Context, id, userID int64) (MentionNotification, error) {
	res, err := q.db.ExecContext(ctx, markMentionNotificationRead, id, userID)
	if err != nil {
		return MentionNotification{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return MentionNotification{}, err
	}
	if affected == 0 {
		return MentionNotification{}, sql.ErrNoRows
	}

	var n MentionNotification
	err = q.db.QueryRowContext(ctx, `
SELECT id, message_id, reply_id, mentioned_user_id, mentioned_by_user_id, read, created_at
FROM mention_notifications WHERE id = ?`, id).Scan(
		&n.ID, &n.MessageID, &n.ReplyID, &n.MentionedUserID, &n.MentionedByUserID, &n.Read, &n.CreatedAt)
	return n, err
}

// --- games ---

const createGame = `
INSERT INTO games (season, home_team_id, away_team_id, court, starts_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateGameParams struct {
	Season     string
	HomeTeamID int64
	AwayTeamID int64
	Court      string
	StartsAt   time.Time
}

func (q *Queries) CreateGame(ctx context.Context, arg CreateGameParams) (Game, error) {
	res, err := q.db.ExecContext(ctx, createGame,
		arg.Season, arg.HomeTeamID, arg.AwayTeamID, arg.Court, arg.StartsAt)
	if err != nil {
		return Game{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Game{}, err
	}
	return q.GetGame(ctx, id)
}

const getGame = `
SELECT id, season, home_team_id, away_team_id, court, starts_at, home_score, away_score, created_at
FROM games WHERE id = ?
`

func (q *Queries) GetGame(ctx context.Context, id int64) (Game, error) {
	var g Game
	err := q.db.QueryRowContext(ctx, getGame, id).Scan(
		&g.ID, &g.Season, &g.HomeTeamID, &g.AwayTeamID, &g.Court, &g.StartsAt, &g.HomeScore, &g.AwayScore, &g.CreatedAt)
	return g, err
}

const listTeamGames = `
SELECT id, season, home_team_id, away_team_id, court, starts_at, home_score, away_score, created_at
FROM games
WHERE (home_team_id = ? OR away_team_id = ?) AND starts_at >= ?
ORDER BY starts_at
`

func (q *Queries) ListTeamGames(ctx context.Context, teamID int64, from time.Time) ([]Game, error) {
	return q.scanGames(ctx, listTeamGames, teamID, teamID, from)
}

const listGamesBetween = `
SELECT id, season, home_team_id, away_team_id, court, starts_at, home_score, away_score, created_at
FROM games WHERE starts_at >= ? AND starts_at < ?
ORDER BY starts_at
`

func (q *Queries) ListGamesBetween(ctx context.Context, from, to time.Time) ([]Game, error) {
	return q.scanGames(ctx, listGamesBetween, from, to)
}

func (q *Queries) scanGames(ctx context.Context, query string, args ...any) ([]Game, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.ID, &g.Season, &g.HomeTeamID, &g.AwayTeamID, &g.Court, &g.StartsAt, &g.HomeScore, &g.AwayScore, &g.CreatedAt); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

const recordGameScore = `
UPDATE games SET home_score = ?, away_score = ? WHERE id = ?
`

func (q *Queries) RecordGameScore(ctx context.Context, id, homeScore, awayScore int64) (Game, error) {
	res, err := q.db.ExecContext(ctx, recordGameScore, homeScore, awayScore, id)
	if err != nil {
		return Game{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Game{}, err
	}
	if affected == 0 {
		return Game{}, sql.ErrNoRows
	}
	return q.GetGame(ctx, id)
}
