// Package mention extracts @mentions from message text and resolves them to users.
package mention

import (
	"regexp"
	"strings"

	"github.com/tgienger/teamboard/internal/models"
)

var tokenPattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// Candidate is a user that a token may resolve to
type Candidate struct {
	ID       int64
	Username string
	FullName string
	IsActive bool
}

// CandidatesFromUsers converts users into mention candidates
func CandidatesFromUsers(users []models.User) []Candidate {
	candidates := make([]Candidate, 0, len(users))
	for _, u := range users {
		candidates = append(candidates, Candidate{
			ID:       u.ID,
			Username: u.Username,
			FullName: u.FullName,
			IsActive: u.IsActive,
		})
	}
	return candidates
}

// Mentions is an ordered, duplicate-free list of user ids. A nil list means
// "no mentions" and is persisted as NULL.
type Mentions []int64

// Contains reports whether id is in m
func (m Mentions) Contains(id int64) bool {
	for _, v := range m {
		if v == id {
			return true
		}
	}
	return false
}

// Tokens returns every @token in content without the @, in order of appearance
func Tokens(content string) []string {
	matches := tokenPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, m[1])
	}
	return tokens
}

// Resolve maps the tokens in content to active candidates
func Resolve(content string, candidates []Candidate) Mentions {
	ids, _ := Match(content, candidates)
	return ids
}

// Match resolves the tokens in content and also returns the tokens that matched
// nobody. Each token is compared case-insensitively against every active
// username first and only then against every active full name, so a username
// always beats another user's full name.
func Match(content string, candidates []Candidate) (Mentions, []string) {
	var ids Mentions
	var unmatched []string
	for _, token := range Tokens(content) {
		id, ok := lookup(token, candidates)
		if !ok {
			unmatched = append(unmatched, token)
			continue
		}
		if !ids.Contains(id) {
			ids = append(ids, id)
		}
	}
	return ids, unmatched
}

func lookup(token string, candidates []Candidate) (int64, bool) {
	for _, c := range candidates {
		if c.IsActive && c.Username != "" && strings.EqualFold(c.Username, token) {
			return c.ID, true
		}
	}
	for _, c := range candidates {
		if c.IsActive && c.FullName != "" && strings.EqualFold(c.FullName, token) {
			return c.ID, true
		}
	}
	return 0, false
}

// NewlyMentioned returns the ids in current that are not in previous, minus the
// actor, in the order they appear in current
func NewlyMentioned(previous, current Mentions, actorID int64) []int64 {
	var ids []int64
	for _, id := range current {
		if id == actorID || previous.Contains(id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
