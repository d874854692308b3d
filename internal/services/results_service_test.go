package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casanoova/compass/internal/models"
)

func peerResponses() []ResponseInput {
	return []ResponseInput{
		{PairID: "p1", Polarity: models.PolarityNegative, Weight: models.WeightLow},
		{PairID: "p2", Polarity: models.PolarityPositive, Weight: models.WeightHigh},
	}
}

func newResultsFixture(t *testing.T, policy ReleasePolicy) (*stubStore, *SurveyService, *ResultsService) {
	t.Helper()
	store, survey := newSurveyFixture(t)
	results := NewResultsService(store, NewCatalogService(store), policy)
	results.now = func() time.Time { return time.Date(2025, 1, 11, 12, 0, 0, 0, time.UTC) }
	return store, survey, results
}

func release(store *stubStore, teamID string) {
	at := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	store.teams[teamID].ResultsReleasedAt = &at
	store.teams[teamID].ResultsReleasedBy = "admin"
}

var (
	leader = Caller{UserID: "lead", Email: "lead@example.com", Role: models.RoleUser}
	peer   = Caller{UserID: "peer", Email: "peer@example.com", Role: models.RoleUser}
	admin  = Caller{UserID: "root", Email: "root@example.com", Role: models.RoleAdmin}
)

func TestLeaderSeesOwnPointBeforeRelease(t *testing.T) {
	_, survey, results := newResultsFixture(t, ReleaseLeaderImmediate)
	ctx := context.Background()
	_, err := survey.SubmitSurvey(ctx, "tok-lead", fullResponses())
	require.NoError(t, err)

	res, err := results.GetTeamResults(ctx, leader, "T1")
	require.NoError(t, err)
	require.NotNil(t, res.UserResult)
	assert.InDelta(t, -1.0, res.UserResult.X, 1e-9)
	assert.Nil(t, res.TeamAverage)
	assert.False(t, res.AllCompleted)
	assert.Nil(t, res.ReleasedAt)
	assert.Equal(t, 2, res.MemberCount)
	assert.Equal(t, 1, res.CompletedCount)
}

func TestPeerWaitsForRelease(t *testing.T) {
	store, survey, results := newResultsFixture(t, ReleaseLeaderImmediate)
	ctx := context.Background()
	_, err := survey.SubmitSurvey(ctx, "tok-peer", peerResponses())
	require.NoError(t, err)

	res, err := results.GetPeerResults(ctx, "tok-peer")
	require.NoError(t, err)
	assert.Nil(t, res.UserResult)

	release(store, "T1")
	res, err = results.GetTeamResults(ctx, peer, "T1")
	require.NoError(t, err)
	require.NotNil(t, res.UserResult)
	assert.InDelta(t, 2.0, res.UserResult.X, 1e-9)
	assert.InDelta(t, 0.5, res.UserResult.Y, 1e-9)
	// leader has not completed yet
	assert.Nil(t, res.TeamAverage)
}

func TestUniformPolicyGatesLeaderToo(t *testing.T) {
	store, survey, results := newResultsFixture(t, ReleaseUniform)
	ctx := context.Background()
	_, err := survey.SubmitSurvey(ctx, "tok-lead", fullResponses())
	require.NoError(t, err)

	res, err := results.GetTeamResults(ctx, leader, "T1")
	require.NoError(t, err)
	assert.Nil(t, res.UserResult)

	release(store, "T1")
	res, err = results.GetTeamResults(ctx, leader, "T1")
	require.NoError(t, err)
	assert.NotNil(t, res.UserResult)
}

func TestTeamAverageNeedsReleaseAndEveryone(t *testing.T) {
	store, survey, results := newResultsFixture(t, ReleaseLeaderImmediate)
	ctx := context.Background()
	_, err := survey.SubmitSurvey(ctx, "tok-lead", fullResponses())
	require.NoError(t, err)
	_, err = survey.SubmitSurvey(ctx, "tok-peer", peerResponses())
	require.NoError(t, err)

	res, err := results.GetTeamResults(ctx, leader, "T1")
	require.NoError(t, err)
	assert.True(t, res.AllCompleted)
	assert.Nil(t, res.TeamAverage)

	release(store, "T1")
	res, err = results.GetTeamResults(ctx, leader, "T1")
	require.NoError(t, err)
	require.NotNil(t, res.TeamAverage)
	assert.InDelta(t, 0.5, res.TeamAverage.X, 1e-9)
	assert.InDelta(t, 1.0, res.TeamAverage.Y, 1e-9)
	require.NotNil(t, res.ReleasedAt)
}

func TestAdminSeesAverageWithoutRelease(t *testing.T) {
	_, survey, results := newResultsFixture(t, ReleaseLeaderImmediate)
	ctx := context.Background()
	_, err := survey.SubmitSurvey(ctx, "tok-lead", fullResponses())
	require.NoError(t, err)

	res, err := results.AdminTeamResults(ctx, admin, "T1")
	require.NoError(t, err)
	assert.Nil(t, res.TeamAverage)

	_, err = survey.SubmitSurvey(ctx, "tok-peer", peerResponses())
	require.NoError(t, err)
	res, err = results.GetTeamResults(ctx, admin, "T1")
	require.NoError(t, err)
	require.NotNil(t, res.TeamAverage)
	assert.Nil(t, res.UserResult)
	assert.Nil(t, res.ReleasedAt)
}

func TestTeamResultsGuards(t *testing.T) {
	_, _, results := newResultsFixture(t, ReleaseLeaderImmediate)
	ctx := context.Background()

	_, err := results.GetTeamResults(ctx, Caller{UserID: "stranger"}, "T1")
	assert.True(t, HasCode(err, ErrorForbidden))
	_, err = results.AdminTeamResults(ctx, leader, "T1")
	assert.True(t, HasCode(err, ErrorForbidden))
	_, err = results.GetTeamResults(ctx, leader, "missing")
	assert.True(t, HasCode(err, ErrorNotFound))
	_, err = results.GetPeerResults(ctx, "missing")
	assert.True(t, HasCode(err, ErrorNotFound))
}

func TestTeamStatsLeaderOnly(t *testing.T) {
	_, survey, results := newResultsFixture(t, ReleaseLeaderImmediate)
	ctx := context.Background()
	_, err := survey.SubmitSurvey(ctx, "tok-peer", peerResponses())
	require.NoError(t, err)

	st, err := results.TeamStats(ctx, leader, "T1")
	require.NoError(t, err)
	assert.Equal(t, TeamStats{MemberCount: 2, CompletedSurveys: 1, DaysSinceCreated: 10}, *st)

	_, err = results.TeamStats(ctx, peer, "T1")
	assert.True(t, HasCode(err, ErrorForbidden))
}

func TestParseReleasePolicy(t *testing.T) {
	p, err := ParseReleasePolicy("")
	require.NoError(t, err)
	assert.Equal(t, ReleaseLeaderImmediate, p)
	p, err = ParseReleasePolicy(" Uniform ")
	require.NoError(t, err)
	assert.Equal(t, ReleaseUniform, p)
	_, err = ParseReleasePolicy("never")
	assert.Error(t, err)
}

func TestResolveTeamAccess(t *testing.T) {
	team := &models.Team{ID: "T", OwnerID: "root"}
	invites := []*models.Invitation{{UserID: "peer"}}
	assert.Equal(t, AccessLeader, ResolveTeamAccess(admin, team, invites))
	assert.Equal(t, AccessMember, ResolveTeamAccess(peer, team, invites))
	assert.Equal(t, AccessNone, ResolveTeamAccess(Caller{}, team, invites))
	assert.Equal(t, AccessAdmin, ResolveTeamAccess(Caller{UserID: "x", Role: models.RoleAdmin}, team, invites))

	d := RequireTeamView(AccessNone)
	assert.False(t, d.Allowed())
	assert.True(t, HasCode(d.Err(), ErrorForbidden))
	assert.NoError(t, Authorized().Err())
}
