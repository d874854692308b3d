package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/casanoova/compass/internal/models"
)

// stubStore is a map-backed store satisfying every service store interface.
type stubStore struct {
	mu           sync.Mutex
	pairs        []*models.AdjectivePair
	translations []*models.PairTranslation
	users        map[string]*models.User
	teams        map[string]*models.Team
	invites      map[string]*models.Invitation
	answers      map[string][]*models.Answer
	audit        []models.AuditEntry
	reminded     map[string]time.Time

	completeHook func(id string) (bool, error)
}

func newStubStore() *stubStore {
	return &stubStore{
		users:    map[string]*models.User{},
		teams:    map[string]*models.Team{},
		invites:  map[string]*models.Invitation{},
		answers:  map[string][]*models.Answer{},
		reminded: map[string]time.Time{},
	}
}

// twoPairs is a small catalog with easy numbers.
func twoPairs() []*models.AdjectivePair {
	return []*models.AdjectivePair{
		{ID: "p2", PositiveAdjective: "direct", NegativeAdjective: "evasive", PositiveX: 2, PositiveY: 0, NegativeX: 0, NegativeY: -2, DisplayOrder: 2},
		{ID: "p1", PositiveAdjective: "precise", NegativeAdjective: "erratic", PositiveX: -2, PositiveY: 4, NegativeX: 4, NegativeY: 2, DisplayOrder: 1},
	}
}

func (s *stubStore) ListPairs(context.Context) ([]*models.AdjectivePair, error) {
	out := make([]*models.AdjectivePair, 0, len(s.pairs))
	for _, p := range s.pairs {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *stubStore) ListPairTranslations(_ context.Context, language string) ([]*models.PairTranslation, error) {
	var out []*models.PairTranslation
	for _, tr := range s.translations {
		if tr.Language == language {
			cp := *tr
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubStore) GetInvitationByToken(_ context.Context, token string) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invites {
		if inv.InviteToken == token {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubStore) GetTeam(_ context.Context, id string) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.teams[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) ListAnswers(_ context.Context, invitationID string) ([]*models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Answer(nil), s.answers[invitationID]...), nil
}

func (s *stubStore) CompleteInvitation(_ context.Context, id string, answers []*models.Answer, at time.Time) (bool, error) {
	if s.completeHook != nil {
		if ok, err := s.completeHook(id); !ok || err != nil {
			return ok, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok || inv.Status != models.InvitePending {
		return false, nil
	}
	inv.Status = models.InviteCompleted
	inv.CompletedAt = &at
	s.answers[id] = append([]*models.Answer(nil), answers...)
	return true, nil
}

func (s *stubStore) ListInvitationsByTeam(_ context.Context, teamID string) ([]*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Invitation
	for _, inv := range s.invites {
		if inv.TeamID == teamID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sortInvites(out)
	return out, nil
}

func sortInvites(out []*models.Invitation) {
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID < out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
}

func (s *stubStore) ListAnswersByTeam(_ context.Context, teamID string) ([]*models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Answer
	for id, inv := range s.invites {
		if inv.TeamID == teamID {
			out = append(out, s.answers[id]...)
		}
	}
	return out, nil
}

func (s *stubStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubStore) GetUser(_ context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) AddUser(_ context.Context, u *models.User) error {
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubStore) CreateTeam(_ context.Context, team *models.Team, invites []*models.Invitation) error {
	cp := *team
	s.teams[team.ID] = &cp
	for _, inv := range invites {
		ic := *inv
		s.invites[inv.ID] = &ic
	}
	return nil
}

func (s *stubStore) ListTeamsForUser(_ context.Context, userID string) ([]*models.Team, error) {
	seen := map[string]bool{}
	var out []*models.Team
	for _, t := range s.teams {
		if t.OwnerID == userID {
			seen[t.ID] = true
		}
	}
	for _, inv := range s.invites {
		if inv.UserID == userID {
			seen[inv.TeamID] = true
		}
	}
	for id := range seen {
		cp := *s.teams[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *stubStore) AddInvitation(_ context.Context, inv *models.Invitation) error {
	cp := *inv
	s.invites[inv.ID] = &cp
	return nil
}

func (s *stubStore) AddAudit(_ context.Context, e models.AuditEntry) error {
	s.audit = append(s.audit, e)
	return nil
}

func (s *stubStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for i := len(s.audit) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.audit[i])
	}
	return out, nil
}

func (s *stubStore) ListTeams(context.Context) ([]*models.Team, error) {
	var out []*models.Team
	for _, t := range s.teams {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *stubStore) ReleaseTeamResults(_ context.Context, teamID, by string, at time.Time) (bool, error) {
	t, ok := s.teams[teamID]
	if !ok || t.ResultsReleasedAt != nil {
		return false, nil
	}
	t.ResultsReleasedAt = &at
	t.ResultsReleasedBy = by
	return true, nil
}

func (s *stubStore) DeleteTeam(_ context.Context, teamID string) (bool, error) {
	if _, ok := s.teams[teamID]; !ok {
		return false, nil
	}
	for id, inv := range s.invites {
		if inv.TeamID == teamID {
			delete(s.answers, id)
			delete(s.invites, id)
		}
	}
	delete(s.teams, teamID)
	return true, nil
}

func (s *stubStore) ListPendingInvitations(_ context.Context, createdAfter time.Time) ([]*models.Invitation, error) {
	var out []*models.Invitation
	for _, inv := range s.invites {
		if inv.Status == models.InvitePending && inv.CreatedAt.After(createdAfter) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sortInvites(out)
	return out, nil
}

func (s *stubStore) MarkReminderSent(_ context.Context, id string, at time.Time) error {
	if inv, ok := s.invites[id]; ok {
		inv.LastReminderSentAt = &at
		s.reminded[id] = at
	}
	return nil
}

// seedTeam adds a team owned by "leader" with one invitation per user ID.
// Invitation i<n> belongs to user u<n> and carries token tok-<userID>.
func (s *stubStore) seedTeam(teamID string, created time.Time, userIDs ...string) {
	s.teams[teamID] = &models.Team{ID: teamID, Name: "Team " + teamID, OwnerID: userIDs[0], CreatedAt: created, UpdatedAt: created}
	for _, uid := range userIDs {
		if _, ok := s.users[uid]; !ok {
			s.users[uid] = &models.User{ID: uid, Email: uid + "@example.com", Role: models.RoleUser}
		}
		s.invites["inv-"+uid] = &models.Invitation{
			ID:          "inv-" + uid,
			InviteToken: "tok-" + uid,
			Email:       uid + "@example.com",
			TeamID:      teamID,
			UserID:      uid,
			Status:      models.InvitePending,
			CreatedAt:   created,
		}
	}
}

// recordingNotifier remembers every email it was asked to send.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (n *recordingNotifier) record(kind, to string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[to] {
		return errFakeSMTP
	}
	n.sent = append(n.sent, kind+":"+to)
	return nil
}

func (n *recordingNotifier) Invitation(_ context.Context, to, _, _, _ string) error {
	return n.record("invite", to)
}
func (n *recordingNotifier) Reminder(_ context.Context, to, _, _ string, _ int, _ string) error {
	return n.record("reminder", to)
}
func (n *recordingNotifier) MagicLink(_ context.Context, to, _, _, _ string) error {
	return n.record("magic", to)
}
func (n *recordingNotifier) ResultsReleased(_ context.Context, to, _, _, _ string) error {
	return n.record("released", to)
}

type stubError string

func (e stubError) Error() string { return string(e) }

const errFakeSMTP = stubError("smtp unavailable")
