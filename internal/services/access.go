package services

import (
	"crypto/subtle"

	"prepmate/api/internal/models"
)

// Caller identifies who is making a request: an authenticated user (UserID
// set) and/or a presented guest token.
type Caller struct {
	UserID *uint
	Token  string
}

// CanAccessSession decides whether the caller may read or mutate the
// session. Owned sessions require the owner's identity; guest sessions
// require the session's public token, compared in constant time so response
// timing leaks nothing about the stored value. Pure function, re-evaluated
// inside every mutating transaction.
func CanAccessSession(session *models.InterviewSession, caller Caller) error {
	if session.UserID != nil {
		if caller.UserID == nil || *caller.UserID != *session.UserID {
			return forbidden("You do not have access to this interview session.")
		}
		return nil
	}

	if caller.Token == "" ||
		subtle.ConstantTimeCompare([]byte(caller.Token), []byte(session.PublicToken)) != 1 {
		return forbidden("Missing or invalid interview token.")
	}
	return nil
}
