package api

import (
	"context"
	"time"

	"github.com/casanoova/compass/internal/models"
	"github.com/casanoova/compass/internal/services"
)

// Store is the persistence contract the server runs on. Lookups return
// (nil, nil) when nothing matches.
type Store interface {
	ListPairs(ctx context.Context) ([]*models.AdjectivePair, error)
	ListPairTranslations(ctx context.Context, language string) ([]*models.PairTranslation, error)
	UpsertPair(ctx context.Context, p *models.AdjectivePair) error
	UpsertPairTranslation(ctx context.Context, tr *models.PairTranslation) error

	AddUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateTeam(ctx context.Context, team *models.Team, invites []*models.Invitation) error
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	ListTeams(ctx context.Context) ([]*models.Team, error)
	ListTeamsForUser(ctx context.Context, userID string) ([]*models.Team, error)
	ReleaseTeamResults(ctx context.Context, teamID, by string, at time.Time) (bool, error)
	DeleteTeam(ctx context.Context, teamID string) (bool, error)

	AddInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	ListInvitationsByTeam(ctx context.Context, teamID string) ([]*models.Invitation, error)
	ListPendingInvitations(ctx context.Context, createdAfter time.Time) ([]*models.Invitation, error)
	MarkReminderSent(ctx context.Context, invitationID string, at time.Time) error
	CompleteInvitation(ctx context.Context, invitationID string, answers []*models.Answer, at time.Time) (bool, error)

	ListAnswers(ctx context.Context, invitationID string) ([]*models.Answer, error)
	ListAnswersByTeam(ctx context.Context, teamID string) ([]*models.Answer, error)

	AddAudit(ctx context.Context, e models.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

var (
	_ Store                  = (*MemoryStore)(nil)
	_ services.CatalogStore  = Store(nil)
	_ services.SurveyStore   = Store(nil)
	_ services.ResultsStore  = Store(nil)
	_ services.TeamStore     = Store(nil)
	_ services.AdminStore    = Store(nil)
	_ services.AuthStore     = Store(nil)
	_ services.ReminderStore = Store(nil)
)
