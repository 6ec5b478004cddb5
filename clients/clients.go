package clients

import (
	"crypto/subtle"
	"slices"

	"github.com/jrsteele09/go-session-lifecycle/oauthmodel"
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Can keep secrets (server-side apps)
	ClientTypePublic       ClientType = "public"       // Cannot keep secrets (SPAs, CLIs)
)

// Client is an application allowed to request tokens.
type Client struct {
	ID          string                 `json:"id"`
	Type        ClientType             `json:"type"` // public or confidential
	Description string                 `json:"description"`
	Secret      string                 `json:"secret"`
	GrantTypes  []oauthmodel.GrantType `json:"grantTypes"` // Grants this client may use
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

// Authenticate checks the presented secret. Public clients present none.
func (c *Client) Authenticate(secret string) bool {
	if c.IsPublic() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) == 1
}

// AllowsGrant checks if the client may use a grant type
func (c *Client) AllowsGrant(grant oauthmodel.GrantType) bool {
	return slices.Contains(c.GrantTypes, grant)
}
