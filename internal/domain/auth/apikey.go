package auth

import "context"

// APIKeyInfo holds the identity bound to a validated API key.
type APIKeyInfo struct {
	ID        string
	KeyHash   string
	Name      string
	ManagerID string
	// AgentID is empty for keys issued to the manager.
	AgentID string
}

// Identity returns the caller identity the key resolves to.
func (i *APIKeyInfo) Identity() Identity {
	return Identity{ManagerID: i.ManagerID, AgentID: i.AgentID}
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
