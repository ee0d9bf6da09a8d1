package types

import "context"

// Actor is the caller of a user-facing action. IsAdmin means the caller administers AccountID.
type Actor struct {
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
}

// SystemActor is used by scheduled jobs acting on behalf of the platform
func SystemActor() Actor {
	return Actor{UserID: SystemUserID, IsAdmin: true}
}

// IsSystem reports whether the actor is the platform itself
func (a Actor) IsSystem() bool {
	return a.UserID == SystemUserID
}

// HasAuthorityOver reports whether the actor administers the given account.
func (a Actor) HasAuthorityOver(accountID string) bool {
	if a.IsSystem() {
		return true
	}
	return a.IsAdmin && a.AccountID != "" && a.AccountID == accountID
}

// WithActor stores the actor in the context together with its user and account ids
func WithActor(ctx context.Context, actor Actor) context.Context {
	ctx = context.WithValue(ctx, CtxActor, actor)
	ctx = SetUserID(ctx, actor.UserID)
	if actor.AccountID != "" {
		ctx = SetAccountID(ctx, actor.AccountID)
	}
	return ctx
}

// GetActor returns the actor stored in the context
func GetActor(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(CtxActor).(Actor)
	return actor, ok
}
