package services

import "github.com/casanoova/compass/internal/models"

// Caller is the authenticated identity an operation runs on behalf of.
type Caller struct {
	UserID string
	Email  string
	Role   models.Role
}

func (c Caller) Authenticated() bool { return c.UserID != "" }
func (c Caller) IsAdmin() bool      { return c.Role == models.RoleAdmin }

// Decision is the outcome of a guard: Authorized, or Forbidden with a reason.
type Decision struct {
	allowed bool
	reason  string
}

func Authorized() Decision             { return Decision{allowed: true} }
func Forbidden(reason string) Decision { return Decision{reason: reason} }
func (d Decision) Allowed() bool       { return d.allowed }
func (d Decision) Reason() string      { return d.reason }

// Err converts a Forbidden decision into the service error surfaced to clients.
func (d Decision) Err() error {
	if d.allowed {
		return nil
	}
	if d.reason == "" {
		return NewForbiddenError("forbidden")
	}
	return NewForbiddenError(d.reason)
}

// TeamAccess is the relationship between a caller and a team.
type TeamAccess int

const (
	AccessNone TeamAccess = iota
	AccessMember
	AccessLeader
	AccessAdmin
)

// ResolveTeamAccess classifies caller against team. Leader wins over admin so
// an admin who owns a team sees it the way a leader does.
func ResolveTeamAccess(caller Caller, team *models.Team, invites []*models.Invitation) TeamAccess {
	if team == nil || !caller.Authenticated() {
		return AccessNone
	}
	if team.OwnerID == caller.UserID {
		return AccessLeader
	}
	if caller.IsAdmin() {
		return AccessAdmin
	}
	for _, inv := range invites {
		if inv.UserID != "" && inv.UserID == caller.UserID {
			return AccessMember
		}
	}
	return AccessNone
}

func RequireAdmin(caller Caller) Decision {
	if !caller.IsAdmin() {
		return Forbidden("admin access required")
	}
	return Authorized()
}

func RequireLeader(caller Caller, team *models.Team) Decision {
	if team == nil || !caller.Authenticated() || team.OwnerID != caller.UserID {
		return Forbidden("only the team leader may do this")
	}
	return Authorized()
}

// RequireTeamView admits leaders, members and admins.
func RequireTeamView(access TeamAccess) Decision {
	if access == AccessNone {
		return Forbidden("not a member of this team")
	}
	return Authorized()
}
