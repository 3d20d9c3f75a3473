package service

import "errors"

// Business-rule errors. All are recoverable: callers map them to a
// response and let the user retry. Anything not listed here is treated
// as a storage failure.
var (
	// Validation
	ErrContentLength    = errors.New("riff content must be between 1 and 500 characters")
	ErrInvalidDirection = errors.New("vote direction must be upvote or retract")
	ErrInvalidUsername  = errors.New("username must be 3-20 letters, digits or underscores")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrWeakPassword     = errors.New("password must be at least 6 characters")

	// Conflict
	ErrDailyRiffExists = errors.New("you already posted a riff today")
	ErrEditConsumed    = errors.New("riff can only be edited once")
	ErrEditLocked      = errors.New("riff cannot be edited after receiving votes")
	ErrAlreadyVoted    = errors.New("you already voted on this riff")
	ErrVoteMissing     = errors.New("no vote to retract")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrEmailTaken      = errors.New("email already registered")
	ErrDaySettled      = errors.New("day already settled")

	// Authorization
	ErrNotRiffAuthor      = errors.New("riff belongs to another user")
	ErrSelfVote           = errors.New("you cannot vote on your own riff")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Not found
	ErrRiffNotFound = errors.New("riff not found")
	ErrUserNotFound = errors.New("user not found")
)

// Kind classifies a business error for transport mapping.
type Kind int

const (
	KindStorage Kind = iota
	KindValidation
	KindConflict
	KindAuthorization
	KindNotFound
)

var kinds = map[Kind][]error{
	KindValidation: {
		ErrContentLength, ErrInvalidDirection, ErrInvalidUsername,
		ErrInvalidEmail, ErrWeakPassword,
	},
	KindConflict: {
		ErrDailyRiffExists, ErrEditConsumed, ErrEditLocked,
		ErrAlreadyVoted, ErrVoteMissing, ErrUsernameTaken,
		ErrEmailTaken, ErrDaySettled,
	},
	KindAuthorization: {ErrNotRiffAuthor, ErrSelfVote, ErrInvalidCredentials},
	KindNotFound:      {ErrRiffNotFound, ErrUserNotFound},
}

// Classify returns the kind of a business error. Unknown errors are
// storage failures.
func Classify(err error) Kind {
	for kind, sentinels := range kinds {
		for _, sentinel := range sentinels {
			if errors.Is(err, sentinel) {
				return kind
			}
		}
	}
	return KindStorage
}
