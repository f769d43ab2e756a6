// Package sender turns queued notification events into outgoing email and
// persisted in-app notifications. It is driven by the notification-sender
// worker, which feeds it raw message bodies from the broker.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/lib/smtp"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n models.Notification) (int, error)
}

type SenderService struct {
	transport smtp.TransportInterface
	repo      NotificationRepository
	log       *slog.Logger
}

func New(transport smtp.TransportInterface, repo NotificationRepository, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		repo:      repo,
		log:       log,
	}
}

// HandleEvent processes one queued notification event: the in-app row is
// written first so the user sees the notification even when mail delivery
// fails; a failed email is returned to the broker for redelivery. The row
// is keyed on the event ID, so a redelivered event never inserts a second
// one.
func (s *SenderService) HandleEvent(ctx context.Context, body []byte) error {
	var event models.NotificationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal notification event", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	if _, err := s.repo.CreateNotification(ctx, models.Notification{
		UserUID: event.UserUID,
		EventID: event.EventID,
		Type:    event.Type,
		Title:   event.Title,
		Body:    event.Body,
	}); err != nil {
		s.log.Error("failed to persist notification",
			slog.String("user_uid", event.UserUID), sl.Err(err))
		return fmt.Errorf("failed to persist notification: %w", err)
	}

	if event.Email == "" {
		return nil
	}
	if err := s.sendEmail(event); err != nil {
		s.log.Error("failed to send notification email",
			slog.String("user_uid", event.UserUID),
			slog.String("type", event.Type), sl.Err(err))
		return err
	}

	s.log.Info("delivered notification",
		slog.String("user_uid", event.UserUID),
		slog.String("type", event.Type))
	return nil
}

func (s *SenderService) sendEmail(event models.NotificationEvent) error {
	greeting := event.Username
	if greeting == "" {
		greeting = "there"
	}
	bodyText := fmt.Sprintf("Hello %s,\n\n%s\n\nThe BizFlow Team", greeting, event.Body)

	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + event.Email,
		"Subject: " + event.Title,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		return fmt.Errorf("failed to set MAIL FROM: %w", err)
	}
	if err := client.Rcpt(event.Email); err != nil {
		return fmt.Errorf("failed to set RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open DATA: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	return client.Quit()
}
