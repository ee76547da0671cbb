package identity

import (
	"context"

	"github.com/xelth-com/mprgo/internal/models"
)

// Caller is the resolved identity behind a request
type Caller struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	// ManagerID is the external manager id, empty for accounts without one
	ManagerID string `json:"managerId,omitempty"`
}

// FromUser builds a Caller from a stored identity
func FromUser(u *models.UserAuth) (Caller, error) {
	role, err := ParseRole(u.Role)
	if err != nil {
		return Caller{}, err
	}
	c := Caller{UserID: u.ID, Username: u.Username, Role: role}
	if u.ManagerID != nil {
		c.ManagerID = *u.ManagerID
	}
	return c, nil
}

// ExternalKey is the value stored in visit manager and author fields
func (c Caller) ExternalKey() string {
	if c.ManagerID != "" {
		return c.ManagerID
	}
	return c.Username
}

// OwnsVisit reports whether the caller is the visit's manager
func (c Caller) OwnsVisit(v *models.Visit) bool {
	return v.ManagerID == c.ExternalKey()
}

// CanViewVisit applies the agent ownership rule
func (c Caller) CanViewVisit(v *models.Visit) bool {
	return !c.Role.OwnVisitsOnly() || c.OwnsVisit(v)
}

// CanEditVisit: the owning agent until completion, office and accounting always
func (c Caller) CanEditVisit(v *models.Visit) bool {
	if c.Role.CanEditCompletedVisit() {
		return true
	}
	return c.Role == RoleAgent && c.OwnsVisit(v) && !v.Completed()
}

type callerKey struct{}

// WithCaller stores the caller in ctx
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller stored by WithCaller
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
