package session

import (
	"encoding/json"
	"fmt"

	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/users"
)

// Session binds a user identity to a token pair.
// The zero value is the unauthenticated default.
type Session struct {
	User         users.User
	AccessToken  string
	RefreshToken string
}

// IsAuthenticated is true iff an access token is present.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}

// LoginResponse is what a successful login exchange supplies.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

// TokenPair is what a successful refresh exchange supplies.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Record is the serialised form kept in the durable slot.
type Record struct {
	User            RecordUser `json:"user"`
	AccessToken     string     `json:"accessToken"`
	RefreshToken    string     `json:"refreshToken"`
	IsAuthenticated bool       `json:"isAuthenticated"`
}

// RecordUser is the identity part of a Record.
type RecordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// NewRecord mirrors a session into its persisted form.
func NewRecord(s Session) Record {
	return Record{
		User: RecordUser{
			ID:       s.User.ID,
			Username: s.User.Username,
			Email:    s.User.Email,
			Role:     string(s.User.Role),
		},
		AccessToken:     s.AccessToken,
		RefreshToken:    s.RefreshToken,
		IsAuthenticated: s.IsAuthenticated(),
	}
}

// Session converts the record back into a Session. An unauthenticated record
// yields the zero Session. The role is carried verbatim; an unrecognised role is
// left for the route guard to reject.
func (r Record) Session() Session {
	if !r.IsAuthenticated || r.AccessToken == "" {
		return Session{}
	}
	return Session{
		User: users.User{
			ID:       r.User.ID,
			Username: r.User.Username,
			Email:    r.User.Email,
			Role:     users.RoleType(r.User.Role),
		},
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
}

// EncodeRecord serialises r for the durable slot.
func EncodeRecord(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("EncodeRecord: %w", err)
	}
	return data, nil
}

// DecodeRecord parses a persisted record. Anything that does not parse, or that
// claims to be authenticated without a user or access token, is ErrCorruptedRecord.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", autherrors.ErrCorruptedRecord, err)
	}
	if r.IsAuthenticated && (r.AccessToken == "" || r.User.ID == "") {
		return Record{}, fmt.Errorf("authenticated record without identity or token: %w", autherrors.ErrCorruptedRecord)
	}
	return r, nil
}
