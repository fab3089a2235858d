package domain

import (
	"time"
)

// Session binds a user, a device, and the currently-valid refresh token.
// RefreshToken holds the session's single live token value; it is replaced on
// every rotation and is the lookup key for "is this session still active".
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RefreshToken string    `json:"-"`
	Device       string    `json:"device,omitempty"`
	OS           string    `json:"os,omitempty"`
	Browser      string    `json:"browser,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	// User is the identity of the owning account, populated on lookup.
	User Identity `json:"user"`
}

// DeviceInfo is descriptive metadata captured from the request's origin at
// session creation time.
type DeviceInfo struct {
	Device  string `json:"device,omitempty"`
	OS      string `json:"os,omitempty"`
	Browser string `json:"browser,omitempty"`
}
