package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/casanoova/compass/internal/models"
)

type AdminStore interface {
	AuditStore
	ListTeams(ctx context.Context) ([]*models.Team, error)
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListInvitationsByTeam(ctx context.Context, teamID string) ([]*models.Invitation, error)
	ListAnswersByTeam(ctx context.Context, teamID string) ([]*models.Answer, error)
	// ReleaseTeamResults stamps the release once; it reports false when the
	// team was already released.
	ReleaseTeamResults(ctx context.Context, teamID, by string, at time.Time) (bool, error)
	// DeleteTeam removes answers, invitations and the team in one transaction.
	DeleteTeam(ctx context.Context, teamID string) (bool, error)
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type AdminService struct {
	store    AdminStore
	results  *ResultsService
	notifier Notifier
	locale   string
	now      func() time.Time
}

func NewAdminService(store AdminStore, results *ResultsService, notifier Notifier) *AdminService {
	return &AdminService{
		store:    store,
		results:  results,
		notifier: notifierOrNop(notifier),
		locale:   BaseLanguage,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithLocale sets the language of the emails the admin actions send.
func (s *AdminService) WithLocale(locale string) *AdminService {
	s.locale = NormalizeLanguage(locale)
	return s
}

func (s *AdminService) team(ctx context.Context, caller Caller, teamID string) (*models.Team, error) {
	if d := RequireAdmin(caller); !d.Allowed() {
		return nil, d.Err()
	}
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, NewNotFoundError("team not found")
	}
	return team, nil
}

func (s *AdminService) overview(ctx context.Context, team *models.Team, invites []*models.Invitation) (TeamOverview, error) {
	ov := TeamOverview{
		ID:               team.ID,
		Name:             team.Name,
		OwnerID:          team.OwnerID,
		MemberCount:      len(invites),
		CompletedSurveys: countCompleted(invites),
		ReleasedAt:       team.ResultsReleasedAt,
		CreatedAt:        team.CreatedAt,
		UpdatedAt:        team.UpdatedAt,
	}
	owner, err := s.store.GetUser(ctx, team.OwnerID)
	if err != nil {
		return ov, err
	}
	if owner != nil {
		ov.OwnerEmail = owner.Email
		ov.OwnerName = owner.Name
	}
	return ov, nil
}

func (s *AdminService) ListTeams(ctx context.Context, caller Caller) ([]TeamOverview, error) {
	if d := RequireAdmin(caller); !d.Allowed() {
		return nil, d.Err()
	}
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TeamOverview, 0, len(teams))
	for _, t := range teams {
		invites, err := s.store.ListInvitationsByTeam(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		ov, err := s.overview(ctx, t, invites)
		if err != nil {
			return nil, err
		}
		out = append(out, ov)
	}
	return out, nil
}

// TeamDetails lists a team's invitations. Tokens are withheld: an admin must
// not be able to answer on a respondent's behalf.
func (s *AdminService) TeamDetails(ctx context.Context, caller Caller, teamID string) (*TeamDetails, error) {
	team, err := s.team(ctx, caller, teamID)
	if err != nil {
		return nil, err
	}
	invites, err := s.store.ListInvitationsByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	ov, err := s.overview(ctx, team, invites)
	if err != nil {
		return nil, err
	}
	d := &TeamDetails{TeamOverview: ov, Invitations: make([]InvitationView, 0, len(invites))}
	for _, inv := range invites {
		d.Invitations = append(d.Invitations, toInvitationView(inv, false))
	}
	return d, nil
}

// ReleaseTeamResults opens the team's results. Releasing twice keeps the
// first timestamp and sends no second email.
func (s *AdminService) ReleaseTeamResults(ctx context.Context, caller Caller, teamID string) (*TeamOverview, error) {
	team, err := s.team(ctx, caller, teamID)
	if err != nil {
		return nil, err
	}
	released := false
	if !team.Released() {
		at := s.now()
		released, err = s.store.ReleaseTeamResults(ctx, teamID, caller.UserID, at)
		if err != nil {
			return nil, err
		}
		if team, err = s.store.GetTeam(ctx, teamID); err != nil {
			return nil, err
		}
		if team == nil {
			return nil, NewNotFoundError("team not found")
		}
	}
	invites, err := s.store.ListInvitationsByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	ov, err := s.overview(ctx, team, invites)
	if err != nil {
		return nil, err
	}
	if !released {
		return &ov, nil
	}
	s.audit(ctx, caller, "team.release", teamID, team.Name)
	if ov.OwnerEmail != "" {
		if err := s.notifier.ResultsReleased(ctx, ov.OwnerEmail, team.Name, team.ID, s.locale); err != nil {
			slog.Default().WarnContext(ctx, "release email failed",
				"module", "admin", "operation", "release", "team_id", teamID, "error", err.Error())
		}
	}
	return &ov, nil
}

func (s *AdminService) DeleteTeam(ctx context.Context, caller Caller, teamID string) error {
	team, err := s.team(ctx, caller, teamID)
	if err != nil {
		return err
	}
	ok, err := s.store.DeleteTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("team not found")
	}
	s.audit(ctx, caller, "team.delete", teamID, team.Name)
	return nil
}

func (s *AdminService) TeamResults(ctx context.Context, caller Caller, teamID string) (*TeamResults, error) {
	return s.results.AdminTeamResults(ctx, caller, teamID)
}

// ExportTeamCSV renders a team as CSV. format is "answers" (default) or "points".
func (s *AdminService) ExportTeamCSV(ctx context.Context, caller Caller, teamID, format string) (*ExportResult, error) {
	team, err := s.team(ctx, caller, teamID)
	if err != nil {
		return nil, err
	}
	invites, err := s.store.ListInvitationsByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	emails := make(map[string]string, len(invites))
	for _, inv := range invites {
		emails[inv.ID] = inv.Email
	}
	switch format {
	case "", "answers":
		answers, err := s.store.ListAnswersByTeam(ctx, teamID)
		if err != nil {
			return nil, err
		}
		rows := make([]AnswerRow, 0, len(answers))
		for _, a := range answers {
			rows = append(rows, AnswerRow{
				InvitationID: a.InvitationID,
				Email:        emails[a.InvitationID],
				PairID:       a.PairID,
				Polarity:     string(a.Polarity),
				Weight:       string(a.Weight),
				SubmittedAt:  a.CreatedAt,
			})
		}
		b, err := ExportAnswersCSV(rows)
		if err != nil {
			return nil, err
		}
		s.audit(ctx, caller, "team.export", teamID, "answers")
		return &ExportResult{Filename: team.ID + "-answers.csv", ContentType: "text/csv; charset=utf-8", Data: b}, nil
	case "points":
		points, err := s.results.TeamPoints(ctx, teamID)
		if err != nil {
			return nil, err
		}
		rows := make([]PointRow, 0, len(invites))
		for _, inv := range invites {
			row := PointRow{InvitationID: inv.ID, Email: inv.Email, Status: string(inv.Status)}
			if p, ok := points[inv.ID]; ok {
				row.Point = &p
			}
			rows = append(rows, row)
		}
		b, err := ExportPointsCSV(rows)
		if err != nil {
			return nil, err
		}
		s.audit(ctx, caller, "team.export", teamID, "points")
		return &ExportResult{Filename: team.ID + "-points.csv", ContentType: "text/csv; charset=utf-8", Data: b}, nil
	default:
		return nil, NewInvalidError("unsupported format")
	}
}

// MaxAuditEntries caps one AuditLog page.
const MaxAuditEntries = 500

// AuditLog returns the newest audit entries first.
func (s *AdminService) AuditLog(ctx context.Context, caller Caller, limit int) ([]models.AuditEntry, error) {
	if d := RequireAdmin(caller); !d.Allowed() {
		return nil, d.Err()
	}
	if limit <= 0 || limit > MaxAuditEntries {
		limit = MaxAuditEntries
	}
	return s.store.ListAudit(ctx, limit)
}

func (s *AdminService) audit(ctx context.Context, caller Caller, action, target, note string) {
	entry := models.AuditEntry{Time: s.now(), Actor: caller.Email, Action: action, Target: target, Note: note}
	if err := s.store.AddAudit(ctx, entry); err != nil {
		slog.Default().WarnContext(ctx, "audit write failed", "module", "admin", "action", action, "error", err.Error())
	}
}
