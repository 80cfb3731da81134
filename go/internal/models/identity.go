package models

import "time"

// ClientIdentity is the locally persisted "who am I" record. It is not
// authoritative; the server-issued Token is the only key used to find
// "my" entry in a snapshot.
type ClientIdentity struct {
	Token    int    `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// HasTicket reports whether a ticket token is held.
func (c ClientIdentity) HasTicket() bool {
	return c.Token > 0
}

// LoggedIn reports whether a customer profile is present.
func (c ClientIdentity) LoggedIn() bool {
	return c.Name != "" && c.Phone != ""
}

// WithoutTicket returns a copy with the ticket token cleared.
func (c ClientIdentity) WithoutTicket() ClientIdentity {
	c.Token = 0
	return c
}

// AdminSession is an opaque server-issued dashboard session.
type AdminSession struct {
	Token     string    `json:"token"`
	Username  string    `json:"username,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the session can still be presented at now.
func (s AdminSession) Valid(now time.Time) bool {
	return s.Token != "" && now.Before(s.ExpiresAt)
}
