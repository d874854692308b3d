package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/casanoova/compass/internal/models"
)

// TeamPolicy bounds the number of invited members (the owner excluded).
// Zero disables a bound.
type TeamPolicy struct {
	MinMembers int `yaml:"min_members"`
	MaxMembers int `yaml:"max_members"`
}

func (p TeamPolicy) check(members int) error {
	if p.MinMembers > 0 && members < p.MinMembers {
		return NewInvalidError(fmt.Sprintf("a team needs at least %d members", p.MinMembers))
	}
	if p.MaxMembers > 0 && members > p.MaxMembers {
		return NewInvalidError(fmt.Sprintf("a team may have at most %d members", p.MaxMembers))
	}
	return nil
}

type TeamStore interface {
	AuditStore
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	AddUser(ctx context.Context, u *models.User) error
	// CreateTeam persists the team together with its invitations.
	CreateTeam(ctx context.Context, team *models.Team, invites []*models.Invitation) error
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	ListTeamsForUser(ctx context.Context, userID string) ([]*models.Team, error)
	ListInvitationsByTeam(ctx context.Context, teamID string) ([]*models.Invitation, error)
	AddInvitation(ctx context.Context, inv *models.Invitation) error
}

type TeamService struct {
	store    TeamStore
	policy   TeamPolicy
	notifier Notifier
	now      func() time.Time
	idGen    func(prefix string, n int) string
	tokenGen func() (string, error)
}

func NewTeamService(store TeamStore, policy TeamPolicy, notifier Notifier) *TeamService {
	return &TeamService{
		store:    store,
		policy:   policy,
		notifier: notifierOrNop(notifier),
		now:      func() time.Time { return time.Now().UTC() },
		idGen:    func(prefix string, n int) string { return prefix + shortID(n) },
		tokenGen: newInviteToken,
	}
}

type CreateTeamInput struct {
	Name       string   `json:"name"`
	OwnerEmail string   `json:"owner_email"`
	OwnerName  string   `json:"owner_name"`
	Members    []string `json:"members"`
	Locale     string   `json:"locale"`
}

type SignupInput struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AcceptTerms bool   `json:"accept_terms"`
	Locale      string `json:"locale"`
}

type SignupResult struct {
	TeamID      string `json:"team_id"`
	UserID      string `json:"user_id"`
	InviteToken string `json:"invite_token"`
}

func validTeamName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= 2 && n <= 50
}

// findOrCreateUser returns the user registered under email, creating a plain
// USER when there is none.
func (s *TeamService) findOrCreateUser(ctx context.Context, email, name, locale string) (*models.User, error) {
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	u = &models.User{
		ID:        s.idGen("u", 10),
		Email:     email,
		Name:      name,
		Role:      models.RoleUser,
		Locale:    locale,
		CreatedAt: s.now(),
	}
	if err := s.store.AddUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *TeamService) newInvitation(teamID, email, userID string) (*models.Invitation, error) {
	token, err := s.tokenGen()
	if err != nil {
		return nil, err
	}
	return &models.Invitation{
		ID:          s.idGen("i", 10),
		InviteToken: token,
		Email:       email,
		TeamID:      teamID,
		UserID:      userID,
		Status:      models.InvitePending,
		CreatedAt:   s.now(),
	}, nil
}

// CreateTeam is the admin path: it creates the team, the owner's invitation
// and one invitation per member, then emails every invitee.
func (s *TeamService) CreateTeam(ctx context.Context, caller Caller, in CreateTeamInput) (*TeamDetails, error) {
	if d := RequireAdmin(caller); !d.Allowed() {
		return nil, d.Err()
	}
	name := strings.TrimSpace(in.Name)
	if !validTeamName(name) {
		return nil, NewInvalidError("team name must be between 2 and 50 characters")
	}
	ownerEmail := normalizeEmail(in.OwnerEmail)
	if !validEmail(ownerEmail) {
		return nil, NewInvalidError("invalid owner email")
	}
	seen := map[string]struct{}{}
	members := make([]string, 0, len(in.Members))
	for _, raw := range in.Members {
		email := normalizeEmail(raw)
		if email == "" {
			continue
		}
		if !validEmail(email) {
			return nil, NewInvalidError(fmt.Sprintf("invalid member email %q", raw))
		}
		if email == ownerEmail {
			return nil, NewInvalidError("the owner cannot also be a member")
		}
		if _, dup := seen[email]; dup {
			return nil, NewInvalidError(fmt.Sprintf("duplicate member email %q", email))
		}
		seen[email] = struct{}{}
		members = append(members, email)
	}
	if err := s.policy.check(len(members)); err != nil {
		return nil, err
	}

	owner, err := s.findOrCreateUser(ctx, ownerEmail, strings.TrimSpace(in.OwnerName), in.Locale)
	if err != nil {
		return nil, err
	}
	now := s.now()
	team := &models.Team{ID: s.idGen("t", 10), Name: name, OwnerID: owner.ID, CreatedAt: now, UpdatedAt: now}
	invites := make([]*models.Invitation, 0, len(members)+1)
	ownerInv, err := s.newInvitation(team.ID, owner.Email, owner.ID)
	if err != nil {
		return nil, err
	}
	invites = append(invites, ownerInv)
	for _, email := range members {
		u, err := s.findOrCreateUser(ctx, email, "", in.Locale)
		if err != nil {
			return nil, err
		}
		inv, err := s.newInvitation(team.ID, email, u.ID)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	if err := s.store.CreateTeam(ctx, team, invites); err != nil {
		return nil, err
	}
	s.audit(ctx, caller, "team.create", team.ID, fmt.Sprintf("%s members=%d", name, len(members)))

	for _, inv := range invites {
		if err := s.notifier.Invitation(ctx, inv.Email, team.Name, inv.InviteToken, in.Locale); err != nil {
			slog.Default().WarnContext(ctx, "invitation email failed",
				"module", "teams", "operation", "create", "team_id", team.ID, "error", err.Error())
		}
	}

	details := &TeamDetails{
		TeamOverview: TeamOverview{
			ID:          team.ID,
			Name:        team.Name,
			OwnerID:     owner.ID,
			OwnerEmail:  owner.Email,
			OwnerName:   owner.Name,
			MemberCount: len(invites),
			CreatedAt:   team.CreatedAt,
			UpdatedAt:   team.UpdatedAt,
		},
	}
	for _, inv := range invites {
		details.Invitations = append(details.Invitations, toInvitationView(inv, false))
	}
	return details, nil
}

// SelfSignup lets anyone start a team of their own and take the survey first.
func (s *TeamService) SelfSignup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	if !in.AcceptTerms {
		return nil, NewInvalidError("you must accept the terms and conditions")
	}
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		return nil, NewInvalidError("invalid email")
	}
	first := strings.TrimSpace(in.FirstName)
	if first == "" {
		return nil, NewInvalidError("first name required")
	}
	full := strings.TrimSpace(first + " " + strings.TrimSpace(in.LastName))
	owner, err := s.findOrCreateUser(ctx, email, full, in.Locale)
	if err != nil {
		return nil, err
	}
	now := s.now()
	team := &models.Team{ID: s.idGen("t", 10), Name: full + "'s Team", OwnerID: owner.ID, CreatedAt: now, UpdatedAt: now}
	inv, err := s.newInvitation(team.ID, email, owner.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateTeam(ctx, team, []*models.Invitation{inv}); err != nil {
		return nil, err
	}
	s.audit(ctx, Caller{UserID: owner.ID, Email: owner.Email}, "team.signup", team.ID, team.Name)
	if err := s.notifier.Invitation(ctx, email, team.Name, inv.InviteToken, in.Locale); err != nil {
		slog.Default().WarnContext(ctx, "signup email failed",
			"module", "teams", "operation", "signup", "team_id", team.ID, "error", err.Error())
	}
	return &SignupResult{TeamID: team.ID, UserID: owner.ID, InviteToken: inv.InviteToken}, nil
}

// InviteMember adds one more respondent to the caller's team.
func (s *TeamService) InviteMember(ctx context.Context, caller Caller, teamID, email, locale string) (*InvitationView, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, NewNotFoundError("team not found")
	}
	if d := RequireLeader(caller, team); !d.Allowed() {
		return nil, d.Err()
	}
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, NewInvalidError("invalid email")
	}
	invites, err := s.store.ListInvitationsByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	members := 0
	for _, inv := range invites {
		if normalizeEmail(inv.Email) == email {
			return nil, NewConflictError("this email is already invited to the team")
		}
		if inv.UserID != team.OwnerID {
			members++
		}
	}
	if s.policy.MaxMembers > 0 && members+1 > s.policy.MaxMembers {
		return nil, NewInvalidError(fmt.Sprintf("a team may have at most %d members", s.policy.MaxMembers))
	}
	u, err := s.findOrCreateUser(ctx, email, "", locale)
	if err != nil {
		return nil, err
	}
	inv, err := s.newInvitation(teamID, email, u.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddInvitation(ctx, inv); err != nil {
		return nil, err
	}
	s.audit(ctx, caller, "team.invite", teamID, email)
	if err := s.notifier.Invitation(ctx, email, team.Name, inv.InviteToken, locale); err != nil {
		slog.Default().WarnContext(ctx, "invitation email failed",
			"module", "teams", "operation", "invite", "team_id", teamID, "error", err.Error())
	}
	v := toInvitationView(inv, false)
	return &v, nil
}

// ListMyTeams lists the teams the caller owns or was invited to.
func (s *TeamService) ListMyTeams(ctx context.Context, caller Caller) ([]TeamOverview, error) {
	if !caller.Authenticated() {
		return nil, NewUnauthorizedError("sign in required")
	}
	teams, err := s.store.ListTeamsForUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]TeamOverview, 0, len(teams))
	for _, t := range teams {
		invites, err := s.store.ListInvitationsByTeam(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, TeamOverview{
			ID:               t.ID,
			Name:             t.Name,
			OwnerID:          t.OwnerID,
			MemberCount:      len(invites),
			CompletedSurveys: countCompleted(invites),
			ReleasedAt:       t.ResultsReleasedAt,
			CreatedAt:        t.CreatedAt,
			UpdatedAt:        t.UpdatedAt,
		})
	}
	return out, nil
}

// MyInvitation returns the caller's own invitation in teamID, token included,
// so a signed-in leader can open their survey.
func (s *TeamService) MyInvitation(ctx context.Context, caller Caller, teamID string) (*InvitationView, error) {
	if !caller.Authenticated() {
		return nil, NewUnauthorizedError("sign in required")
	}
	invites, err := s.store.ListInvitationsByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	for _, inv := range invites {
		if inv.UserID == caller.UserID {
			v := toInvitationView(inv, true)
			return &v, nil
		}
	}
	return nil, NewNotFoundError("invite not found")
}

func (s *TeamService) audit(ctx context.Context, caller Caller, action, target, note string) {
	actor := caller.Email
	if actor == "" {
		actor = caller.UserID
	}
	entry := models.AuditEntry{Time: s.now(), Actor: actor, Action: action, Target: target, Note: note}
	if err := s.store.AddAudit(ctx, entry); err != nil {
		slog.Default().WarnContext(ctx, "audit write failed", "module", "teams", "action", action, "error", err.Error())
	}
}
