package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/pkg/config"
	"github.com/horizon-etudes/backoffice-api/pkg/mail"
)

type captureSender struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (s *captureSender) Send(ctx context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *captureSender) sent() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mail.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func newNotificationServiceForTest(t *testing.T) (*NotificationService, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	svc := NewNotificationService(sender, config.MailConfig{
		FromName:     "Horizon Études",
		AdminAddress: "contact@horizon-etudes.example",
		SendTimeout:  time.Second,
		QueueWorkers: 1,
	}, zap.NewNop())
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc, sender
}

func waitForMessages(t *testing.T, sender *captureSender, n int) []mail.Message {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(sender.sent()) >= n
	}, time.Second, 5*time.Millisecond)
	return sender.sent()
}

func TestNotificationAppointmentCreated(t *testing.T) {
	svc, sender := newNotificationServiceForTest(t)

	svc.AppointmentCreated(&models.Appointment{
		FirstName: "Awa",
		LastName:  "Diop",
		Email:     "awa@example.com",
		Date:      time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		TimeSlot:  "10:00",
	})

	messages := waitForMessages(t, sender, 1)
	msg := messages[0]
	assert.Equal(t, "awa@example.com", msg.To)
	assert.Equal(t, "Awa Diop", msg.ToName)
	assert.Contains(t, msg.Body, "2026-03-03")
	assert.Contains(t, msg.Body, "10:00")
	assert.Contains(t, msg.HTML, "<p")
}

func TestNotificationStepRejectedIncludesReason(t *testing.T) {
	svc, sender := newNotificationServiceForTest(t)

	reason := "dossier incomplet"
	started := time.Now()
	procedure := &models.Procedure{
		FirstName: "Awa",
		LastName:  "Diop",
		Email:     "awa@example.com",
		Steps: []models.ProcedureStep{
			{Name: models.StepAdmissionRequest, Position: 0, Status: models.StepRejected, Reason: &reason, StartedAt: &started},
		},
	}
	svc.ProcedureStepUpdated(procedure, models.StepAdmissionRequest)

	messages := waitForMessages(t, sender, 1)
	assert.Contains(t, messages[0].Body, "Demande d'admission")
	assert.Contains(t, messages[0].Body, reason)
}

func TestNotificationContactForwardedToInbox(t *testing.T) {
	svc, sender := newNotificationServiceForTest(t)

	svc.ContactMessageReceived(&models.ContactMessage{
		FirstName: "Moussa",
		LastName:  "Ndiaye",
		Email:     "moussa@example.com",
		Subject:   "Demande d'information",
		Message:   "Bonjour, une question sur vos services.",
	})

	messages := waitForMessages(t, sender, 1)
	msg := messages[0]
	assert.Equal(t, "contact@horizon-etudes.example", msg.To)
	assert.Equal(t, "moussa@example.com", msg.ReplyTo)
	assert.True(t, strings.HasPrefix(msg.Subject, "Contact :"))
}

func TestNotificationSkipsEmptyRecipient(t *testing.T) {
	svc, sender := newNotificationServiceForTest(t)

	svc.AppointmentCreated(&models.Appointment{FirstName: "Sans", LastName: "Email"})

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, sender.sent())
}

func TestNotificationHTMLEscapesUserContent(t *testing.T) {
	svc, sender := newNotificationServiceForTest(t)

	svc.ContactMessageReceived(&models.ContactMessage{
		FirstName: "<script>",
		LastName:  "Ndiaye",
		Email:     "moussa@example.com",
		Subject:   "Objet",
		Message:   "corps du message",
	})

	messages := waitForMessages(t, sender, 1)
	assert.NotContains(t, messages[0].HTML, "<script>")
	assert.Contains(t, messages[0].HTML, "&lt;script&gt;")
}
