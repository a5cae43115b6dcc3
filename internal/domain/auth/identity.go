package auth

import "context"

// Identity is the authenticated caller. Every tenant-owned record is scoped
// by ManagerID; AgentID narrows it to one agent of that manager.
type Identity struct {
	ManagerID string
	AgentID   string
}

// IsAgent reports whether the caller acts as an agent rather than the manager.
func (i Identity) IsAgent() bool { return i.AgentID != "" }

// Owns reports whether a record owned by (managerID, agentID) is visible to
// the caller. Managers see every record of their tenant; agents only their own.
func (i Identity) Owns(managerID, agentID string) bool {
	if i.ManagerID != managerID {
		return false
	}
	return !i.IsAgent() || i.AgentID == agentID
}

type identityKey struct{}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
