// Package model defines the data models for the riff backend.
package model

import "time"

// DayFormat is the calendar day key layout used to partition riffs.
const DayFormat = "2006-01-02"

// Vote directions accepted by the ledger.
const (
	VoteUpvote  = "upvote"
	VoteRetract = "retract"
)

// Medal names awarded for daily leaderboard ranks 1-3.
const (
	MedalGold   = "gold"
	MedalSilver = "silver"
	MedalBronze = "bronze"
)

// MedalForRank maps a 1-based leaderboard rank to a medal name.
// Ranks beyond third place earn nothing and return "".
func MedalForRank(rank int) string {
	switch rank {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	default:
		return ""
	}
}

// MedalTally is a user's lifetime medal count. Counters only grow,
// incremented by the daily settlement job.
type MedalTally struct {
	Gold   int `db:"gold_medals" json:"gold"`
	Silver int `db:"silver_medals" json:"silver"`
	Bronze int `db:"bronze_medals" json:"bronze"`
}

// User represents a registered account.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Medals       MedalTally `json:"totalMedals"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"-"`
}

// Prompt is the writing prompt selected for one calendar day. Immutable
// once derived: the same day key always yields the same prompt.
type Prompt struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Date    string    `json:"date"`
	ResetAt time.Time `json:"resetTime"`
}

// Riff is a single dated submission in response to the day's prompt.
type Riff struct {
	ID             string    `db:"id" json:"id"`
	AuthorID       string    `db:"author_id" json:"userId"`
	AuthorUsername string    `db:"author_username" json:"username"`
	Content        string    `db:"content" json:"content"`
	LikeCount      int       `db:"like_count" json:"likes"`
	Edited         bool      `db:"edited" json:"edited"`
	Day            string    `db:"riff_day" json:"date"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`

	// ViewerVoted reports whether the user reading this riff has an
	// active vote on it. Derived per query, never stored.
	ViewerVoted bool `db:"-" json:"hasVoted"`
}

// LeaderboardEntry is one row of a day's standings. Derived from the
// day's riffs on every read, never stored.
type LeaderboardEntry struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	TodayLikes int    `json:"todayLikes"`
	Rank       int    `json:"rank"`
	Medal      string `json:"medal,omitempty"`
}
