package auth

import "time"

// Token is a bearer token and the instant it stops being accepted.
type Token struct {
	Value     string
	Type      string
	ExpiresAt time.Time
}

// Valid reports whether the token can still be used at now, treating it as
// expired skew before ExpiresAt.
func (t *Token) Valid(now time.Time, skew time.Duration) bool {
	if t == nil || t.Value == "" {
		return false
	}
	return now.Add(skew).Before(t.ExpiresAt)
}

// Authorization formats the Authorization header value.
func (t *Token) Authorization() string {
	typ := t.Type
	if typ == "" {
		typ = "Bearer"
	}
	return typ + " " + t.Value
}
