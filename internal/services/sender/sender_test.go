package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bizflowhq/bizflow-backend/internal/lib/smtp"
	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/storage/memory"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateNotification(ctx context.Context, n models.Notification) (int, error) {
	args := m.Called(ctx, n)
	return args.Int(0), args.Error(1)
}

type ClientMock struct {
	mailFrom string
	rcptTo   []string
	buf      bytes.Buffer
	failMail bool
}

func (c *ClientMock) Mail(from string) error {
	if c.failMail {
		return errors.New("mail rejected")
	}
	c.mailFrom = from
	return nil
}

func (c *ClientMock) Rcpt(to string) error {
	c.rcptTo = append(c.rcptTo, to)
	return nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (c *ClientMock) Data() (io.WriteCloser, error) { return nopWriteCloser{&c.buf}, nil }
func (c *ClientMock) Quit() error                   { return nil }
func (c *ClientMock) Close() error                  { return nil }

type TransportMock struct {
	client     *ClientMock
	connectErr error
}

func (t *TransportMock) Connect() (smtp.Client, error) {
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	return t.client, nil
}

func (t *TransportMock) GetSMTPUser() string { return "noreply@bizflow.ng" }

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func eventBody(t *testing.T, event models.NotificationEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestSender_HandleEvent(t *testing.T) {
	repo := new(RepoMock)
	client := &ClientMock{}
	service := New(&TransportMock{client: client}, repo, NewNoopLogger())

	repo.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.UserUID == "uid-1" && n.Type == models.NotifExpiring && !n.Read
	})).Return(1, nil)

	body := eventBody(t, models.NotificationEvent{
		UserUID:  "uid-1",
		Email:    "adaeze@example.com",
		Username: "adaeze",
		Type:     models.NotifExpiring,
		Title:    "Your subscription is expiring soon",
		Body:     "Your subscription expires in 3 days.",
	})

	err := service.HandleEvent(context.Background(), body)

	require.NoError(t, err)
	assert.Equal(t, "noreply@bizflow.ng", client.mailFrom)
	assert.Equal(t, []string{"adaeze@example.com"}, client.rcptTo)
	assert.Contains(t, client.buf.String(), "Subject: Your subscription is expiring soon")
	assert.Contains(t, client.buf.String(), "Hello adaeze,")
	repo.AssertExpectations(t)
}

func TestSender_HandleEvent_MalformedBody(t *testing.T) {
	repo := new(RepoMock)
	service := New(&TransportMock{client: &ClientMock{}}, repo, NewNoopLogger())

	err := service.HandleEvent(context.Background(), []byte("{not json"))

	assert.Error(t, err)
	repo.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything)
}

func TestSender_HandleEvent_NoEmailSkipsSMTP(t *testing.T) {
	repo := new(RepoMock)
	client := &ClientMock{}
	service := New(&TransportMock{client: client}, repo, NewNoopLogger())

	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(1, nil)

	body := eventBody(t, models.NotificationEvent{
		UserUID: "uid-1",
		Type:    models.NotifLowStock,
		Title:   "Low stock",
		Body:    "Product is running low.",
	})

	err := service.HandleEvent(context.Background(), body)

	require.NoError(t, err)
	assert.Empty(t, client.rcptTo)
}

func TestSender_HandleEvent_RedeliveryKeepsSingleRow(t *testing.T) {
	store := memory.New()
	service := New(&TransportMock{connectErr: errors.New("dial failed")}, store, NewNoopLogger())

	body := eventBody(t, models.NotificationEvent{
		EventID: "8f14c6ee-6fbb-4ad8-9f4e-1f1b7c2d0a11",
		UserUID: "uid-1",
		Email:   "adaeze@example.com",
		Type:    models.NotifDowngraded,
		Title:   "Your subscription has expired",
		Body:    "You are back on the free plan.",
	})

	// Each failed send is nacked back to the queue; the broker redelivers
	// the same event until mail goes through.
	assert.Error(t, service.HandleEvent(context.Background(), body))
	assert.Error(t, service.HandleEvent(context.Background(), body))

	rows, err := store.ListNotifications(context.Background(), "uid-1", false, 10, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSender_HandleEvent_SMTPFailureReturnsError(t *testing.T) {
	repo := new(RepoMock)
	service := New(&TransportMock{connectErr: errors.New("dial failed")}, repo, NewNoopLogger())

	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(1, nil)

	body := eventBody(t, models.NotificationEvent{
		UserUID: "uid-1",
		Email:   "adaeze@example.com",
		Type:    models.NotifDowngraded,
		Title:   "Your subscription has expired",
		Body:    "You are back on the free plan.",
	})

	err := service.HandleEvent(context.Background(), body)

	assert.Error(t, err)
	repo.AssertExpectations(t)
}
