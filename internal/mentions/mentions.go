// Package mentions parses @handle mentions out of coach message text and
// computes the notification fan-out for the mentioned users.
package mentions

import (
	"regexp"
	"strings"
)

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9._-]+)`)

// DirectoryUser is a mention-eligible user. The caller restricts the
// directory to coach and admin roles before resolution.
type DirectoryUser struct {
	ID    string
	Email string
}

// NotificationRecord is one pending mention notification, ready to insert.
type NotificationRecord struct {
	MessageID         string
	ReplyID           string // empty for top-level messages
	MentionedUserID   string
	MentionedByUserID string
}

// Extract returns the distinct mention tokens in text, lower-cased, in
// first-occurrence order. Text with no mentions yields an empty slice.
func Extract(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		token := strings.ToLower(m[1])
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}

// Resolve maps each token to the first directory user whose email local
// part equals the token, or failing that whose full email contains the
// token. Unmatched tokens are dropped. The result may contain the same
// user more than once when several tokens resolve to them.
//
// First match in directory order wins. With overlapping email prefixes
// (say "jdoe" and "jdoe2") this can mis-attribute a mention; the behavior
// is kept deliberately, since changing the matching strategy is a product
// decision.
func Resolve(tokens []string, directory []DirectoryUser) []DirectoryUser {
	var resolved []DirectoryUser
	for _, token := range tokens {
		for _, user := range directory {
			email := strings.ToLower(user.Email)
			local := email
			if at := strings.Index(email, "@"); at >= 0 {
				local = email[:at]
			}
			if local == token || strings.Contains(email, token) {
				resolved = append(resolved, user)
				break
			}
		}
	}
	return resolved
}

// BuildNotifications deduplicates resolved users by id, drops the author
// (no self-notification), and emits one record per remaining user.
func BuildNotifications(messageID, replyID string, resolved []DirectoryUser, authorID string) []NotificationRecord {
	seen := make(map[string]struct{}, len(resolved))
	var records []NotificationRecord
	for _, user := range resolved {
		if user.ID == authorID {
			continue
		}
		if _, ok := seen[user.ID]; ok {
			continue
		}
		seen[user.ID] = struct{}{}
		records = append(records, NotificationRecord{
			MessageID:         messageID,
			ReplyID:           replyID,
			MentionedUserID:   user.ID,
			MentionedByUserID: authorID,
		})
	}
	return records
}
