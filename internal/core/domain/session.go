package domain

import "time"

// TokenPair is the credential bundle handed out on register, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SessionEventKind names a transition in a user's session lifecycle.
type SessionEventKind string

const (
	EventRegistered     SessionEventKind = "registered"
	EventLoggedIn       SessionEventKind = "logged_in"
	EventRefreshed      SessionEventKind = "refreshed"
	EventRefreshRevoked SessionEventKind = "refresh_revoked"
	EventLoggedOut      SessionEventKind = "logged_out"
)

// SessionEvent is an audit record of a session transition. It never carries
// token or password material.
type SessionEvent struct {
	UserID string           `json:"user_id" bson:"user_id"`
	Kind   SessionEventKind `json:"kind" bson:"kind"`
	At     time.Time        `json:"at" bson:"at"`
}
