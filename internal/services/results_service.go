package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/casanoova/compass/internal/models"
)

// ReleasePolicy decides when a respondent may see their own point.
type ReleasePolicy string

const (
	// ReleaseLeaderImmediate shows the leader their own point as soon as they
	// complete; everyone else waits for the admin release.
	ReleaseLeaderImmediate ReleasePolicy = "leader_immediate"
	// ReleaseUniform gates every own-point view on the admin release.
	ReleaseUniform ReleasePolicy = "uniform"
)

func ParseReleasePolicy(s string) (ReleasePolicy, error) {
	switch ReleasePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ReleaseLeaderImmediate:
		return ReleaseLeaderImmediate, nil
	case ReleaseUniform:
		return ReleaseUniform, nil
	}
	return "", fmt.Errorf("unknown release policy %q", s)
}

// ownPointVisible applies the policy to a completed invitation.
func (p ReleasePolicy) ownPointVisible(isLeader, released bool) bool {
	if released {
		return true
	}
	return p != ReleaseUniform && isLeader
}

type ResultsStore interface {
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	ListInvitationsByTeam(ctx context.Context, teamID string) ([]*models.Invitation, error)
	ListAnswersByTeam(ctx context.Context, teamID string) ([]*models.Answer, error)
}

// ResultsService is the release gate in front of a team's scores.
type ResultsService struct {
	store   ResultsStore
	catalog *CatalogService
	policy  ReleasePolicy
	now     func() time.Time
}

func NewResultsService(store ResultsStore, catalog *CatalogService, policy ReleasePolicy) *ResultsService {
	if policy == "" {
		policy = ReleaseLeaderImmediate
	}
	return &ResultsService{
		store:   store,
		catalog: catalog,
		policy:  policy,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *ResultsService) Policy() ReleasePolicy { return s.policy }

// teamSnapshot is everything the gate needs about one team, read once.
type teamSnapshot struct {
	team    *models.Team
	invites []*models.Invitation
	points  map[string]Point
}

func (s *ResultsService) load(ctx context.Context, teamID string) (*teamSnapshot, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, NewNotFoundError("team not found")
	}
	invites, err := s.store.ListInvitationsByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &teamSnapshot{team: team, invites: invites}, nil
}

// scores fills snap.points for every completed invitation whose answers
// cover the catalog.
func (s *ResultsService) scores(ctx context.Context, snap *teamSnapshot) error {
	if snap.points != nil {
		return nil
	}
	pairs, err := s.catalog.Pairs(ctx)
	if err != nil {
		return err
	}
	answers, err := s.store.ListAnswersByTeam(ctx, snap.team.ID)
	if err != nil {
		return err
	}
	byInvite := map[string][]*models.Answer{}
	for _, a := range answers {
		byInvite[a.InvitationID] = append(byInvite[a.InvitationID], a)
	}
	snap.points = make(map[string]Point, len(snap.invites))
	for _, inv := range snap.invites {
		if inv.Status != models.InviteCompleted {
			continue
		}
		p, err := scoreComplete(byInvite[inv.ID], pairs)
		if err != nil {
			return err
		}
		if p != nil {
			snap.points[inv.ID] = *p
		}
	}
	return nil
}

func (snap *teamSnapshot) allCompleted() bool {
	return len(snap.invites) > 0 && countCompleted(snap.invites) == len(snap.invites)
}

func (snap *teamSnapshot) average() *Point {
	pts := make([]Point, 0, len(snap.points))
	for _, inv := range snap.invites {
		if p, ok := snap.points[inv.ID]; ok {
			pts = append(pts, p)
		}
	}
	avg, ok := ScoreTeamAverage(pts)
	if !ok {
		return nil
	}
	return &avg
}

func (snap *teamSnapshot) base() *TeamResults {
	return &TeamResults{
		AllCompleted:   snap.allCompleted(),
		ReleasedAt:     snap.team.ResultsReleasedAt,
		MemberCount:    len(snap.invites),
		CompletedCount: countCompleted(snap.invites),
	}
}

// project builds the leader/peer view for the holder of own (may be nil).
func (s *ResultsService) project(ctx context.Context, snap *teamSnapshot, own *models.Invitation) (*TeamResults, error) {
	out := snap.base()
	released := snap.team.Released()
	isLeader := own != nil && own.UserID != "" && own.UserID == snap.team.OwnerID

	wantOwn := own != nil && own.Status == models.InviteCompleted && s.policy.ownPointVisible(isLeader, released)
	wantAvg := released && out.AllCompleted
	if !wantOwn && !wantAvg {
		return out, nil
	}
	if err := s.scores(ctx, snap); err != nil {
		return nil, err
	}
	if wantOwn {
		if p, ok := snap.points[own.ID]; ok {
			out.UserResult = &p
		}
	}
	if wantAvg {
		out.TeamAverage = snap.average()
	}
	return out, nil
}

// GetTeamResults returns the gated results of teamID for a signed-in caller.
// Admins who are not the owner get the admin projection.
func (s *ResultsService) GetTeamResults(ctx context.Context, caller Caller, teamID string) (*TeamResults, error) {
	snap, err := s.load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	access := ResolveTeamAccess(caller, snap.team, snap.invites)
	if d := RequireTeamView(access); !d.Allowed() {
		return nil, d.Err()
	}
	if access == AccessAdmin {
		return s.adminProjection(ctx, snap)
	}
	var own *models.Invitation
	for _, inv := range snap.invites {
		if inv.UserID == caller.UserID {
			own = inv
			break
		}
	}
	return s.project(ctx, snap, own)
}

// GetPeerResults is GetTeamResults for a respondent known only by their token.
func (s *ResultsService) GetPeerResults(ctx context.Context, token string) (*TeamResults, error) {
	if token == "" {
		return nil, NewNotFoundError("invite not found")
	}
	inv, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, NewNotFoundError("invite not found")
	}
	snap, err := s.load(ctx, inv.TeamID)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, snap, inv)
}

// AdminTeamResults shows the team average once everyone has completed,
// independent of release, and never an individual point.
func (s *ResultsService) AdminTeamResults(ctx context.Context, caller Caller, teamID string) (*TeamResults, error) {
	if d := RequireAdmin(caller); !d.Allowed() {
		return nil, d.Err()
	}
	snap, err := s.load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return s.adminProjection(ctx, snap)
}

func (s *ResultsService) adminProjection(ctx context.Context, snap *teamSnapshot) (*TeamResults, error) {
	out := snap.base()
	if !out.AllCompleted {
		return out, nil
	}
	if err := s.scores(ctx, snap); err != nil {
		return nil, err
	}
	out.TeamAverage = snap.average()
	return out, nil
}

// TeamStats is the leader's dashboard summary.
func (s *ResultsService) TeamStats(ctx context.Context, caller Caller, teamID string) (*TeamStats, error) {
	snap, err := s.load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if d := RequireLeader(caller, snap.team); !d.Allowed() {
		return nil, d.Err()
	}
	days := int(s.now().Sub(snap.team.CreatedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &TeamStats{
		MemberCount:      len(snap.invites),
		CompletedSurveys: countCompleted(snap.invites),
		DaysSinceCreated: days,
	}, nil
}

// TeamPoints returns the scored point of every completed invitation of a
// team, keyed by invitation ID. Used by exports.
func (s *ResultsService) TeamPoints(ctx context.Context, teamID string) (map[string]Point, error) {
	snap, err := s.load(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := s.scores(ctx, snap); err != nil {
		return nil, err
	}
	return snap.points, nil
}
