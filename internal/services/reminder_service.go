package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/casanoova/compass/internal/models"
)

const (
	// ReminderWindow is how long after creation a pending invitation is chased.
	ReminderWindow = 14 * 24 * time.Hour
	// ReminderInterval is the minimum gap between two reminders to one invitee.
	ReminderInterval = 24 * time.Hour
)

type ReminderStore interface {
	ListPendingInvitations(ctx context.Context, createdAfter time.Time) ([]*models.Invitation, error)
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	MarkReminderSent(ctx context.Context, invitationID string, at time.Time) error
}

type ReminderFailure struct {
	InvitationID string `json:"invitation_id"`
	Email        string `json:"email"`
	Error        string `json:"error"`
}

type ReminderSummary struct {
	Considered int               `json:"considered"`
	Sent       int               `json:"sent"`
	Skipped    int               `json:"skipped"`
	Failed     []ReminderFailure `json:"failed,omitempty"`
}

// ReminderObserver is told the totals of every finished run.
type ReminderObserver interface {
	ObserveReminders(sent, skipped, failed int)
}

type ReminderService struct {
	store    ReminderStore
	notifier Notifier
	observer ReminderObserver
	locale   string
	now      func() time.Time
}

func NewReminderService(store ReminderStore, notifier Notifier) *ReminderService {
	return &ReminderService{
		store:    store,
		notifier: notifierOrNop(notifier),
		locale:   BaseLanguage,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReminderService) WithLocale(locale string) *ReminderService {
	s.locale = NormalizeLanguage(locale)
	return s
}

func (s *ReminderService) WithObserver(o ReminderObserver) *ReminderService {
	s.observer = o
	return s
}

// daysRemaining counts whole days left in the window, never below zero.
func daysRemaining(created, now time.Time) int {
	age := int(now.Sub(created).Hours() / 24)
	if left := int(ReminderWindow.Hours()/24) - age; left > 0 {
		return left
	}
	return 0
}

// RunReminders emails every pending invitation inside the window that was not
// reminded in the last interval. One failing invitee does not stop the run.
func (s *ReminderService) RunReminders(ctx context.Context) (*ReminderSummary, error) {
	now := s.now()
	invites, err := s.store.ListPendingInvitations(ctx, now.Add(-ReminderWindow))
	if err != nil {
		return nil, err
	}
	sum := &ReminderSummary{Considered: len(invites)}
	teams := map[string]*models.Team{}
	for _, inv := range invites {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if inv.Status != models.InvitePending {
			sum.Skipped++
			continue
		}
		if inv.LastReminderSentAt != nil && now.Sub(*inv.LastReminderSentAt) < ReminderInterval {
			sum.Skipped++
			continue
		}
		if err := s.remind(ctx, inv, teams, now); err != nil {
			sum.Failed = append(sum.Failed, ReminderFailure{InvitationID: inv.ID, Email: inv.Email, Error: err.Error()})
			continue
		}
		sum.Sent++
	}
	slog.Default().InfoContext(ctx, "reminders processed",
		"module", "reminders",
		"operation", "run",
		"considered", sum.Considered,
		"sent", sum.Sent,
		"skipped", sum.Skipped,
		"failed", len(sum.Failed),
	)
	if s.observer != nil {
		s.observer.ObserveReminders(sum.Sent, sum.Skipped, len(sum.Failed))
	}
	return sum, nil
}

func (s *ReminderService) remind(ctx context.Context, inv *models.Invitation, teams map[string]*models.Team, now time.Time) error {
	team, ok := teams[inv.TeamID]
	if !ok {
		var err error
		if team, err = s.store.GetTeam(ctx, inv.TeamID); err != nil {
			return err
		}
		teams[inv.TeamID] = team
	}
	if team == nil {
		return fmt.Errorf("team %s not found", inv.TeamID)
	}
	locale := s.locale
	if inv.UserID != "" {
		if u, err := s.store.GetUser(ctx, inv.UserID); err == nil && u != nil && u.Locale != "" {
			locale = u.Locale
		}
	}
	if err := s.notifier.Reminder(ctx, inv.Email, team.Name, inv.InviteToken, daysRemaining(inv.CreatedAt, now), locale); err != nil {
		return err
	}
	return s.store.MarkReminderSent(ctx, inv.ID, now)
}
