package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casanoova/compass/internal/models"
)

// SurveyStore abstracts persistence operations required by SurveyService.
type SurveyStore interface {
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	ListAnswers(ctx context.Context, invitationID string) ([]*models.Answer, error)
	// CompleteInvitation atomically flips the invitation from PENDING to
	// COMPLETED and replaces its answers. It reports false, without writing
	// anything, when the invitation was no longer PENDING.
	CompleteInvitation(ctx context.Context, invitationID string, answers []*models.Answer, at time.Time) (bool, error)
}

// SubmissionObserver is told the outcome of every submission attempt.
type SubmissionObserver interface {
	ObserveSubmission(outcome string)
}

// SurveyService hosts the respondent-facing workflow: reading the catalog,
// submitting answers and reading back the scored point.
type SurveyService struct {
	store    SurveyStore
	catalog  *CatalogService
	now      func() time.Time
	observer SubmissionObserver
}

func NewSurveyService(store SurveyStore, catalog *CatalogService) *SurveyService {
	return &SurveyService{
		store:   store,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *SurveyService) WithObserver(o SubmissionObserver) *SurveyService {
	s.observer = o
	return s
}

func (s *SurveyService) invitation(ctx context.Context, token string) (*models.Invitation, error) {
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
	return inv, nil
}

// GetAdjectives returns the localized catalog for the holder of token.
func (s *SurveyService) GetAdjectives(ctx context.Context, locale, token string) ([]AdjectiveView, error) {
	if _, err := s.invitation(ctx, token); err != nil {
		return nil, err
	}
	return s.catalog.Localized(ctx, locale)
}

// SubmitSurvey completes the invitation behind token with a full response set
// and returns the resulting point. A second submission is rejected, as is one
// that does not answer every catalog pair; neither changes stored state.
func (s *SurveyService) SubmitSurvey(ctx context.Context, token string, responses []ResponseInput) (*SubmitResult, error) {
	res, err := s.submit(ctx, token, responses)
	s.observe(err)
	return res, err
}

func (s *SurveyService) submit(ctx context.Context, token string, responses []ResponseInput) (*SubmitResult, error) {
	inv, err := s.invitation(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvitePending {
		return nil, NewAlreadyCompletedError("survey already completed")
	}

	pairs, err := s.catalog.Pairs(ctx)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, NewNotFoundError("no adjectives found")
	}
	byID := indexPairs(pairs)

	// Last answer per pair wins so a retried client payload cannot double count.
	latest := make(map[string]ResponseInput, len(responses))
	for _, r := range responses {
		if _, ok := byID[r.PairID]; !ok {
			return nil, NewInvalidError(fmt.Sprintf("unknown pair %q", r.PairID))
		}
		if !r.Polarity.Valid() {
			return nil, NewInvalidError(fmt.Sprintf("invalid polarity for pair %q", r.PairID))
		}
		if !r.Weight.Valid() {
			return nil, NewInvalidError(fmt.Sprintf("invalid weight for pair %q", r.PairID))
		}
		latest[r.PairID] = r
	}
	if len(latest) < len(pairs) {
		return nil, NewIncompleteSubmissionError(fmt.Sprintf("answered %d of %d pairs", len(latest), len(pairs)))
	}

	now := s.now()
	answers := make([]*models.Answer, 0, len(pairs))
	for _, p := range pairs {
		r := latest[p.ID]
		answers = append(answers, &models.Answer{
			InvitationID: inv.ID,
			PairID:       p.ID,
			Polarity:     r.Polarity,
			Weight:       r.Weight,
			CreatedAt:    now,
		})
	}

	ok, err := s.store.CompleteInvitation(ctx, inv.ID, answers, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewAlreadyCompletedError("survey already completed")
	}

	stored, err := s.store.ListAnswers(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	point, err := ScoreIndividual(joinAnswers(stored, byID))
	if err != nil {
		return nil, err
	}
	slog.Default().InfoContext(ctx, "survey completed",
		"module", "survey",
		"operation", "submit",
		"outcome", "success",
		"invitation_id", inv.ID,
		"team_id", inv.TeamID,
	)
	return &SubmitResult{Point: point}, nil
}

func (s *SurveyService) observe(err error) {
	if s.observer == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		if se, ok := AsServiceError(err); ok {
			outcome = string(se.Code)
		}
	}
	s.observer.ObserveSubmission(outcome)
}

// GetSurveyStatus is a read-only projection; the point is present only once
// the invitation is completed and its answers cover the catalog.
func (s *SurveyService) GetSurveyStatus(ctx context.Context, token string) (*SurveyStatus, error) {
	inv, err := s.invitation(ctx, token)
	if err != nil {
		return nil, err
	}
	st := &SurveyStatus{InvitationID: inv.ID, TeamID: inv.TeamID, Status: inv.Status}
	point, err := s.invitationPoint(ctx, inv)
	if err != nil {
		return nil, err
	}
	st.Point = point
	return st, nil
}

// IsLeader reports whether the invitation belongs to its team's owner.
func (s *SurveyService) IsLeader(ctx context.Context, token string) (bool, error) {
	inv, err := s.invitation(ctx, token)
	if err != nil {
		return false, err
	}
	team, err := s.store.GetTeam(ctx, inv.TeamID)
	if err != nil {
		return false, err
	}
	if team == nil {
		return false, NewNotFoundError("team not found")
	}
	return inv.UserID != "" && inv.UserID == team.OwnerID, nil
}

func (s *SurveyService) invitationPoint(ctx context.Context, inv *models.Invitation) (*Point, error) {
	if inv.Status != models.InviteCompleted {
		return nil, nil
	}
	pairs, err := s.catalog.Pairs(ctx)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.ListAnswers(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return scoreComplete(answers, pairs)
}

// scoreComplete scores answers only when they cover every catalog pair exactly once.
func scoreComplete(answers []*models.Answer, pairs []*models.AdjectivePair) (*Point, error) {
	if len(pairs) == 0 || len(answers) != len(pairs) {
		return nil, nil
	}
	byID := indexPairs(pairs)
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		if _, ok := byID[a.PairID]; !ok {
			return nil, nil
		}
		if _, dup := seen[a.PairID]; dup {
			return nil, nil
		}
		seen[a.PairID] = struct{}{}
	}
	p, err := ScoreIndividual(joinAnswers(answers, byID))
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
