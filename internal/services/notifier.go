package services

import (
	"context"

	"github.com/casanoova/compass/internal/models"
)

// Notifier delivers the emails the workflows send. Implementations own the
// wording and the links; services only pass identifiers.
type Notifier interface {
	Invitation(ctx context.Context, to, teamName, inviteToken, locale string) error
	Reminder(ctx context.Context, to, teamName, inviteToken string, daysRemaining int, locale string) error
	MagicLink(ctx context.Context, to, loginToken, redirect, locale string) error
	ResultsReleased(ctx context.Context, to, teamName, teamID, locale string) error
}

type nopNotifier struct{}

func (nopNotifier) Invitation(context.Context, string, string, string, string) error { return nil }
func (nopNotifier) Reminder(context.Context, string, string, string, int, string) error {
	return nil
}
func (nopNotifier) MagicLink(context.Context, string, string, string, string) error { return nil }
func (nopNotifier) ResultsReleased(context.Context, string, string, string, string) error {
	return nil
}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// AuditStore records mutations made by admins and team leaders.
type AuditStore interface {
	AddAudit(ctx context.Context, entry models.AuditEntry) error
}
