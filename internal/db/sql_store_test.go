package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casanoova/compass/internal/models"
	"github.com/casanoova/compass/internal/services"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.ToSlash(filepath.Join(t.TempDir(), "compass.db")) + "?_busy_timeout=5000"
	s, err := Open(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	_, err = s.Migrate(ctx, "")
	require.NoError(t, err)
	_, _, err = SeedCatalog(ctx, s)
	require.NoError(t, err)
	return s
}

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func seedTeam(t *testing.T, s *SQLStore, teamID string, emails ...string) []*models.Invitation {
	t.Helper()
	ctx := context.Background()
	var invites []*models.Invitation
	for i, email := range emails {
		uid := teamID + "-u" + string(rune('a'+i))
		require.NoError(t, s.AddUser(ctx, &models.User{ID: uid, Email: email, Role: models.RoleUser, CreatedAt: t0}))
		invites = append(invites, &models.Invitation{
			ID:          teamID + "-inv" + string(rune('a'+i)),
			InviteToken: teamID + "-tok" + string(rune('a'+i)),
			Email:       email,
			TeamID:      teamID,
			UserID:      uid,
			Status:      models.InvitePending,
			CreatedAt:   t0.Add(time.Duration(i) * time.Minute),
		})
	}
	team := &models.Team{ID: teamID, Name: "Team " + teamID, OwnerID: invites[0].UserID, CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, s.CreateTeam(ctx, team, invites))
	return invites
}

func fullAnswers(p models.Polarity, w models.Weight) []*models.Answer {
	var out []*models.Answer
	for _, pair := range CatalogPairs() {
		out = append(out, &models.Answer{PairID: pair.ID, Polarity: p, Weight: w})
	}
	return out
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ran, err := s.Migrate(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, ran)
}

func TestSeedCatalog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	// second seed must not duplicate
	_, _, err := SeedCatalog(ctx, s)
	require.NoError(t, err)

	pairs, err := s.ListPairs(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 8)
	assert.Equal(t, "pair-1", pairs[0].ID)
	assert.Equal(t, "pair-8", pairs[7].ID)
	assert.InDelta(t, -2.25, pairs[2].PositiveX, 1e-9)
	assert.True(t, pairs[0].AuthorityFocus)
	assert.False(t, pairs[3].AuthorityFocus)

	de, err := s.ListPairTranslations(ctx, "DE")
	require.NoError(t, err)
	require.Len(t, de, 8)
	assert.Equal(t, "überzeugend", de[0].PositiveAdjective)

	views, err := services.NewCatalogService(s).Localized(ctx, "de-AT")
	require.NoError(t, err)
	assert.Equal(t, "direkt", views[1].PositiveAdjective)
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := &models.User{ID: "u1", Email: "Ada@Example.com", Name: "Ada", PassHash: []byte("$2a$10$hash"), Role: models.RoleAdmin, Locale: "de", CreatedAt: t0}
	require.NoError(t, s.AddUser(ctx, u))

	err := s.AddUser(ctx, &models.User{ID: "u2", Email: "Ada@Example.com", CreatedAt: t0})
	assert.True(t, services.HasCode(err, services.ErrorConflict))

	got, err := s.FindUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, []byte("$2a$10$hash"), got.PassHash)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.True(t, got.CreatedAt.Equal(t0))

	missing, err := s.GetUser(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTeamsAndInvitations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	invites := seedTeam(t, s, "t1", "lead@x.io", "peer@x.io")
	seedTeam(t, s, "t2", "other@x.io")

	inv, err := s.GetInvitationByToken(ctx, "t1-toka")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, models.InvitePending, inv.Status)
	assert.Nil(t, inv.CompletedAt)

	list, err := s.ListInvitationsByTeam(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, invites[0].ID, list[0].ID)

	mine, err := s.ListTeamsForUser(ctx, invites[1].UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "t1", mine[0].ID)

	all, err := s.ListTeams(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	dup := &models.Invitation{ID: "dup", InviteToken: "fresh", Email: "peer@x.io", TeamID: "t1", Status: models.InvitePending, CreatedAt: t0}
	assert.True(t, services.HasCode(s.AddInvitation(ctx, dup), services.ErrorConflict))

	orphan := &models.Invitation{ID: "orphan", InviteToken: "orphan", Email: "z@x.io", TeamID: "nope", Status: models.InvitePending, CreatedAt: t0}
	assert.True(t, services.HasCode(s.AddInvitation(ctx, orphan), services.ErrorNotFound))
}

func TestCompleteInvitationOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	invites := seedTeam(t, s, "t1", "lead@x.io")
	at := t0.Add(time.Hour)

	ok, err := s.CompleteInvitation(ctx, invites[0].ID, fullAnswers(models.PolarityPositive, models.WeightHigh), at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CompleteInvitation(ctx, invites[0].ID, fullAnswers(models.PolarityNegative, models.WeightLow), at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	answers, err := s.ListAnswers(ctx, invites[0].ID)
	require.NoError(t, err)
	require.Len(t, answers, 8)
	for _, a := range answers {
		assert.Equal(t, models.PolarityPositive, a.Polarity)
	}

	inv, err := s.GetInvitationByToken(ctx, invites[0].InviteToken)
	require.NoError(t, err)
	assert.Equal(t, models.InviteCompleted, inv.Status)
	require.NotNil(t, inv.CompletedAt)
	assert.True(t, inv.CompletedAt.Equal(at))
}

func TestConcurrentSubmitsCompleteOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTeam(t, s, "t1", "lead@x.io")
	survey := services.NewSurveyService(s, services.NewCatalogService(s))

	var responses []services.ResponseInput
	for _, p := range CatalogPairs() {
		responses = append(responses, services.ResponseInput{PairID: p.ID, Polarity: models.PolarityPositive, Weight: models.WeightHigh})
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = survey.SubmitSurvey(ctx, "t1-toka", responses)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, services.HasCode(err, services.ErrorAlreadyCompleted), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, wins)
}

func TestReleaseAndDeleteTeam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	invites := seedTeam(t, s, "t1", "lead@x.io", "peer@x.io")
	_, err := s.CompleteInvitation(ctx, invites[1].ID, fullAnswers(models.PolarityNegative, models.WeightLow), t0)
	require.NoError(t, err)

	ok, err := s.ReleaseTeamResults(ctx, "t1", "admin", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ReleaseTeamResults(ctx, "t1", "admin2", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	team, err := s.GetTeam(ctx, "t1")
	require.NoError(t, err)
	require.True(t, team.Released())
	assert.Equal(t, "admin", team.ResultsReleasedBy)

	teamAnswers, err := s.ListAnswersByTeam(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, teamAnswers, 8)

	deleted, err := s.DeleteTeam(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.DeleteTeam(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, deleted)

	gone, err := s.GetInvitationByToken(ctx, invites[0].InviteToken)
	require.NoError(t, err)
	assert.Nil(t, gone)
	left, err := s.ListAnswers(ctx, invites[1].ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestPendingInvitationsAndReminders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	invites := seedTeam(t, s, "t1", "lead@x.io", "peer@x.io")
	_, err := s.CompleteInvitation(ctx, invites[0].ID, fullAnswers(models.PolarityPositive, models.WeightLow), t0)
	require.NoError(t, err)

	pending, err := s.ListPendingInvitations(ctx, t0.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, invites[1].ID, pending[0].ID)

	none, err := s.ListPendingInvitations(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)

	sent := t0.Add(3 * time.Hour)
	require.NoError(t, s.MarkReminderSent(ctx, invites[1].ID, sent))
	inv, err := s.GetInvitationByToken(ctx, invites[1].InviteToken)
	require.NoError(t, err)
	require.NotNil(t, inv.LastReminderSentAt)
	assert.True(t, inv.LastReminderSentAt.Equal(sent))
}

func TestAuditNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i, action := range []string{"team.create", "team.release", "team.delete"} {
		require.NoError(t, s.AddAudit(ctx, models.AuditEntry{Time: t0.Add(time.Duration(i) * time.Second), Actor: "admin", Action: action, Target: "t1"}))
	}
	all, err := s.ListAudit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "team.delete", all[0].Action)

	two, err := s.ListAudit(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM t WHERE a = ? AND b > ?`
	assert.Equal(t, q, rebind(DriverSQLite, q))
	assert.Equal(t, `SELECT * FROM t WHERE a = $1 AND b > $2`, rebind(DriverPostgres, q))
}

func TestNewSQLStoreRejectsUnknownDriver(t *testing.T) {
	_, err := NewSQLStore(nil, "mysql")
	assert.Error(t, err)
	_, err = Open(context.Background(), "mysql", "x")
	assert.Error(t, err)
}
