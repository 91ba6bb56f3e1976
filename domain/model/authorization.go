package model

import "time"

// OAuthVersion distinguishes the signing scheme a provider uses.
type OAuthVersion int

const (
	OAuth1 OAuthVersion = 1
	OAuth2 OAuthVersion = 2
)

// Authorization is the durable record behind an opaque guid. Clients never see
// tokens; they pass the guid and the gateway resolves it here.
type Authorization struct {
	GUID                    string     `json:"guid"`
	ClientName              string     `json:"client_name"`
	ServiceName             string     `json:"service_name"`
	UserID                  string     `json:"user_id"`
	Token                   string     `json:"token"`
	Secret                  string     `json:"secret,omitempty"`        // OAuth1 token secret
	RefreshToken            string     `json:"refresh_token,omitempty"` // OAuth2 only
	RedirectURI             string     `json:"redirect_uri,omitempty"`
	AccountCreatedTimestamp *time.Time `json:"account_created_timestamp,omitempty"`
	ExpiredOn               *time.Time `json:"expired_on,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// Expired reports whether the token is past its recorded expiry. A future
// ExpiredOn is a scheduled expiry from the grant's expires_in, not a
// revocation.
func (a *Authorization) Expired() bool {
	return a.ExpiredOn != nil && a.ExpiredOn.Before(time.Now())
}

// InflightAuthz is the short-lived record bridging the two legs of an OAuth
// handshake. Token holds the request token (OAuth1) or the state (OAuth2).
type InflightAuthz struct {
	ServiceName string    `json:"service_name"`
	Token       string    `json:"token"`
	Secret      string    `json:"secret"`
	CreatedAt   time.Time `json:"created_at"`
}
