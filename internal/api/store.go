package api

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/casanoova/compass/internal/models"
	"github.com/casanoova/compass/internal/services"
)

// MemoryStore is a process-local Store used by tests and `serve --memory`.
// Every read hands out copies so callers cannot mutate shared state.
type MemoryStore struct {
	mu           sync.RWMutex
	pairs        map[string]*models.AdjectivePair
	translations map[string]*models.PairTranslation
	users        map[string]*models.User
	usersByEmail map[string]string
	teams        map[string]*models.Team
	invites      map[string]*models.Invitation
	byToken      map[string]string
	answers      map[string][]*models.Answer
	audit        []models.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pairs:        map[string]*models.AdjectivePair{},
		translations: map[string]*models.PairTranslation{},
		users:        map[string]*models.User{},
		usersByEmail: map[string]string{},
		teams:        map[string]*models.Team{},
		invites:      map[string]*models.Invitation{},
		byToken:      map[string]string{},
		answers:      map[string][]*models.Answer{},
	}
}

func translationKey(pairID, lang string) string { return pairID + "/" + lang }

func (s *MemoryStore) ListPairs(context.Context) ([]*models.AdjectivePair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AdjectivePair, 0, len(s.pairs))
	for _, p := range s.pairs {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (s *MemoryStore) ListPairTranslations(_ context.Context, language string) ([]*models.PairTranslation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.PairTranslation{}
	for _, tr := range s.translations {
		if tr.Language == language {
			cp := *tr
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertPair(_ context.Context, p *models.AdjectivePair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.pairs[p.ID] = &cp
	return nil
}

func (s *MemoryStore) UpsertPairTranslation(_ context.Context, tr *models.PairTranslation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tr
	s.translations[translationKey(tr.PairID, tr.Language)] = &cp
	return nil
}

func (s *MemoryStore) AddUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.usersByEmail[email]; ok {
		return services.NewConflictError("email exists")
	}
	cp := *u
	s.users[u.ID] = &cp
	s.usersByEmail[email] = u.ID
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStore) CreateTeam(_ context.Context, team *models.Team, invites []*models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.ID]; ok {
		return services.NewConflictError("team exists")
	}
	for _, inv := range invites {
		if _, ok := s.byToken[inv.InviteToken]; ok {
			return services.NewConflictError("invite token exists")
		}
	}
	cp := *team
	s.teams[team.ID] = &cp
	for _, inv := range invites {
		s.putInvitation(inv)
	}
	return nil
}

func (s *MemoryStore) putInvitation(inv *models.Invitation) {
	cp := *inv
	s.invites[inv.ID] = &cp
	s.byToken[inv.InviteToken] = inv.ID
}

func (s *MemoryStore) GetTeam(_ context.Context, id string) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.teams[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func sortTeams(out []*models.Team) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

func (s *MemoryStore) ListTeams(context.Context) ([]*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Team, 0, len(s.teams))
	for _, t := range s.teams {
		cp := *t
		out = append(out, &cp)
	}
	sortTeams(out)
	return out, nil
}

func (s *MemoryStore) ListTeamsForUser(_ context.Context, userID string) ([]*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := map[string]struct{}{}
	for _, t := range s.teams {
		if t.OwnerID == userID {
			ids[t.ID] = struct{}{}
		}
	}
	for _, inv := range s.invites {
		if inv.UserID == userID {
			ids[inv.TeamID] = struct{}{}
		}
	}
	out := make([]*models.Team, 0, len(ids))
	for id := range ids {
		if t, ok := s.teams[id]; ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortTeams(out)
	return out, nil
}

func (s *MemoryStore) ReleaseTeamResults(_ context.Context, teamID, by string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok || t.ResultsReleasedAt != nil {
		return false, nil
	}
	t.ResultsReleasedAt = &at
	t.ResultsReleasedBy = by
	t.UpdatedAt = at
	return true, nil
}

func (s *MemoryStore) DeleteTeam(_ context.Context, teamID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return false, nil
	}
	for id, inv := range s.invites {
		if inv.TeamID != teamID {
			continue
		}
		delete(s.answers, id)
		delete(s.byToken, inv.InviteToken)
		delete(s.invites, id)
	}
	delete(s.teams, teamID)
	return true, nil
}

func (s *MemoryStore) AddInvitation(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[inv.TeamID]; !ok {
		return services.NewNotFoundError("team not found")
	}
	if _, ok := s.byToken[inv.InviteToken]; ok {
		return services.NewConflictError("invite token exists")
	}
	s.putInvitation(inv)
	return nil
}

func (s *MemoryStore) GetInvitationByToken(_ context.Context, token string) (*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	if !ok {
		return nil, nil
	}
	cp := *s.invites[id]
	return &cp, nil
}

func sortInvites(out []*models.Invitation) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

func (s *MemoryStore) ListInvitationsByTeam(_ context.Context, teamID string) ([]*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Invitation{}
	for _, inv := range s.invites {
		if inv.TeamID == teamID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sortInvites(out)
	return out, nil
}

func (s *MemoryStore) ListPendingInvitations(_ context.Context, createdAfter time.Time) ([]*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Invitation{}
	for _, inv := range s.invites {
		if inv.Status == models.InvitePending && inv.CreatedAt.After(createdAfter) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sortInvites(out)
	return out, nil
}

func (s *MemoryStore) MarkReminderSent(_ context.Context, invitationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := s.invites[invitationID]; ok {
		inv.LastReminderSentAt = &at
	}
	return nil
}

// CompleteInvitation holds the write lock across the status check and the
// answer swap, the in-memory counterpart of the SQL transaction.
func (s *MemoryStore) CompleteInvitation(_ context.Context, invitationID string, answers []*models.Answer, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[invitationID]
	if !ok || inv.Status != models.InvitePending {
		return false, nil
	}
	inv.Status = models.InviteCompleted
	inv.CompletedAt = &at
	stored := make([]*models.Answer, 0, len(answers))
	for _, a := range answers {
		cp := *a
		cp.InvitationID = invitationID
		stored = append(stored, &cp)
	}
	s.answers[invitationID] = stored
	return true, nil
}

func (s *MemoryStore) ListAnswers(_ context.Context, invitationID string) ([]*models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Answer, 0, len(s.answers[invitationID]))
	for _, a := range s.answers[invitationID] {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) ListAnswersByTeam(_ context.Context, teamID string) ([]*models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Answer{}
	for id, inv := range s.invites {
		if inv.TeamID != teamID {
			continue
		}
		for _, a := range s.answers[id] {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) AddAudit(_ context.Context, e models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

// ListAudit returns the newest entries first; limit <= 0 means all.
func (s *MemoryStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.audit)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.AuditEntry, 0, n)
	for i := len(s.audit) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.audit[i])
	}
	return out, nil
}
