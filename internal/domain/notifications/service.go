package notifications

import (
	"context"
	"log/slog"
)

// Mailer delivers one message. The email platform package provides the SMTP
// implementation; a discard implementation stands in when mail is off.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	Store       *Store
	Mailer      Mailer
	DefaultFrom string
}

func New(store *Store, mailer Mailer) *Service {
	return &Service{Store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

// Create stores an in-app notification and, when the tenant has email
// delivery enabled, mirrors it to the user's mailbox. Mail problems are
// logged and swallowed; the in-app copy is the source of truth.
func (s *Service) Create(ctx context.Context, tenantID, userID, ntype, title, body string) error {
	if err := s.Store.CreateNotification(ctx, tenantID, userID, ntype, title, body); err != nil {
		return err
	}
	s.mirrorToEmail(ctx, tenantID, userID, title, body)
	return nil
}

// CreateForUsers fans one notification out to several recipients, as after a
// payroll batch. A failure for one recipient does not stop the rest.
func (s *Service) CreateForUsers(ctx context.Context, tenantID string, userIDs []string, ntype, title, body string) {
	for _, userID := range userIDs {
		if err := s.Create(ctx, tenantID, userID, ntype, title, body); err != nil {
			slog.Warn("notification create failed", "type", ntype, "userId", userID, "err", err)
		}
	}
}

func (s *Service) mirrorToEmail(ctx context.Context, tenantID, userID, subject, body string) {
	if s.Mailer == nil {
		return
	}
	enabled, from, err := s.Store.EmailSettings(ctx, tenantID)
	if err != nil || !enabled {
		return
	}
	if from == "" {
		from = s.DefaultFrom
	}
	address, err := s.Store.UserEmail(ctx, tenantID, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return
	}
	if address == "" {
		return
	}
	if err := s.Mailer.Send(ctx, from, address, subject, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
}

func (s *Service) List(ctx context.Context, tenantID, userID string, limit, offset int) ([]Notification, error) {
	return s.Store.ListNotifications(ctx, tenantID, userID, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, tenantID, userID string) (int, error) {
	return s.Store.CountNotifications(ctx, tenantID, userID)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	return s.Store.MarkRead(ctx, tenantID, userID, notificationID)
}

func (s *Service) GetSettings(ctx context.Context, tenantID string) (bool, string, error) {
	return s.Store.EmailSettings(ctx, tenantID)
}

func (s *Service) UpdateSettings(ctx context.Context, tenantID string, enabled bool, from string) error {
	return s.Store.UpdateSettings(ctx, tenantID, enabled, from)
}
