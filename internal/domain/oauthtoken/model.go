package oauthtoken

import "time"

const ProviderYahoo = "yahoo"

// Token is an access token obtained by the account service's OAuth flow. It is
// read here, never refreshed.
type Token struct {
	UserID      string
	Provider    string
	AccessToken string
	ExpiresAt   time.Time
}

func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
