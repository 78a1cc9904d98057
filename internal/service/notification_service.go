package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/pkg/config"
	"github.com/horizon-etudes/backoffice-api/pkg/jobs"
	"github.com/horizon-etudes/backoffice-api/pkg/mail"
)

// NotificationService renders and dispatches the transactional emails
// triggered by lifecycle transitions. Every method is fire-and-forget:
// messages are pushed onto an in-process queue and delivery failures are
// retried there, then logged. Nothing here ever fails the state change
// that triggered it.
type NotificationService struct {
	sender mail.Sender
	queue  *jobs.Queue
	cfg    config.MailConfig
	logger *zap.Logger
}

// NewNotificationService wires the dispatcher to a mail sender through a
// worker queue. Call Start before enqueueing and Stop on shutdown.
func NewNotificationService(sender mail.Sender, cfg config.MailConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		sender: sender,
		cfg:    cfg,
		logger: logger,
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.QueueWorkers,
		BufferSize: cfg.QueueBuffer,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mail.Message)
	if !ok {
		s.logger.Error("notification job carried an unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	return s.sender.Send(sendCtx, msg)
}

func (s *NotificationService) enqueue(kind string, msg mail.Message) {
	if msg.To == "" {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    kind,
		Payload: msg,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", kind), zap.String("to", msg.To), zap.Error(err))
	}
}

// AppointmentCreated confirms a fresh booking to the client.
func (s *NotificationService) AppointmentCreated(appointment *models.Appointment) {
	body := fmt.Sprintf(
		"Bonjour %s,\n\nVotre rendez-vous du %s à %s est confirmé.\n\nNous vous attendons à l'heure prévue. "+
			"Vous pouvez annuler jusqu'à 2 heures avant le rendez-vous depuis votre espace client.\n\n%s",
		appointment.FirstName, appointment.Date.Format(models.DateFormat), appointment.TimeSlot, s.signature())
	s.enqueue("appointment_created", mail.Message{
		To:      appointment.Email,
		ToName:  clientName(appointment.FirstName, appointment.LastName),
		Subject: "Votre rendez-vous est confirmé",
		Body:    body,
		HTML:    s.htmlBody("Rendez-vous confirmé", body),
	})
}

// AppointmentStatusUpdated tells the client about a lifecycle change.
func (s *NotificationService) AppointmentStatusUpdated(appointment *models.Appointment, previous models.AppointmentStatus) {
	var line string
	switch appointment.Status {
	case models.AppointmentConfirmed:
		line = "Votre rendez-vous a été confirmé par notre équipe."
	case models.AppointmentCompleted:
		line = "Votre rendez-vous s'est tenu. Merci de votre visite."
		if appointment.AvisAdmin != nil && *appointment.AvisAdmin == models.AvisFavorable {
			line += " Suite à l'avis favorable de votre conseiller, votre procédure d'admission va être ouverte."
		}
	case models.AppointmentCancelled:
		line = "Votre rendez-vous a été annulé."
	default:
		line = fmt.Sprintf("Le statut de votre rendez-vous est passé de %s à %s.", previous, appointment.Status)
	}
	body := fmt.Sprintf("Bonjour %s,\n\n%s\n\nRendez-vous du %s à %s.\n\n%s",
		appointment.FirstName, line, appointment.Date.Format(models.DateFormat), appointment.TimeSlot, s.signature())
	s.enqueue("appointment_status_updated", mail.Message{
		To:      appointment.Email,
		ToName:  clientName(appointment.FirstName, appointment.LastName),
		Subject: "Mise à jour de votre rendez-vous",
		Body:    body,
		HTML:    s.htmlBody("Mise à jour de votre rendez-vous", body),
	})
}

// AppointmentCancelled tells the client the booking was cancelled.
func (s *NotificationService) AppointmentCancelled(appointment *models.Appointment) {
	reason := ""
	if appointment.CancelReason != nil && *appointment.CancelReason != "" {
		reason = fmt.Sprintf("\n\nMotif : %s", *appointment.CancelReason)
	}
	body := fmt.Sprintf(
		"Bonjour %s,\n\nVotre rendez-vous du %s à %s a été annulé.%s\n\nVous pouvez reprendre rendez-vous à tout moment depuis votre espace client.\n\n%s",
		appointment.FirstName, appointment.Date.Format(models.DateFormat), appointment.TimeSlot, reason, s.signature())
	s.enqueue("appointment_cancelled", mail.Message{
		To:      appointment.Email,
		ToName:  clientName(appointment.FirstName, appointment.LastName),
		Subject: "Votre rendez-vous a été annulé",
		Body:    body,
		HTML:    s.htmlBody("Rendez-vous annulé", body),
	})
}

// AppointmentExpired tells the client the slot lapsed unattended.
func (s *NotificationService) AppointmentExpired(appointment *models.Appointment) {
	body := fmt.Sprintf(
		"Bonjour %s,\n\nVotre rendez-vous du %s à %s a expiré car il n'a pas été honoré.\n\nVous pouvez reprendre rendez-vous depuis votre espace client.\n\n%s",
		appointment.FirstName, appointment.Date.Format(models.DateFormat), appointment.TimeSlot, s.signature())
	s.enqueue("appointment_expired", mail.Message{
		To:      appointment.Email,
		ToName:  clientName(appointment.FirstName, appointment.LastName),
		Subject: "Votre rendez-vous a expiré",
		Body:    body,
		HTML:    s.htmlBody("Rendez-vous expiré", body),
	})
}

// AppointmentReminder reminds the client of today's confirmed slot.
func (s *NotificationService) AppointmentReminder(appointment *models.Appointment) {
	body := fmt.Sprintf(
		"Bonjour %s,\n\nPetit rappel : votre rendez-vous a lieu aujourd'hui à %s.\n\nÀ tout à l'heure !\n\n%s",
		appointment.FirstName, appointment.TimeSlot, s.signature())
	s.enqueue("appointment_reminder", mail.Message{
		To:      appointment.Email,
		ToName:  clientName(appointment.FirstName, appointment.LastName),
		Subject: "Rappel : votre rendez-vous aujourd'hui",
		Body:    body,
		HTML:    s.htmlBody("Rappel de rendez-vous", body),
	})
}

// ProcedureCreated announces the opening of the admission workflow.
func (s *NotificationService) ProcedureCreated(procedure *models.Procedure) {
	body := fmt.Sprintf(
		"Bonjour %s,\n\nVotre procédure d'admission est ouverte. Elle se déroule en trois étapes :\n\n"+
			"  1. Demande d'admission (en cours)\n  2. Demande de visa\n  3. Préparatifs de voyage\n\n"+
			"Vous serez informé de l'avancement de chaque étape.\n\n%s",
		procedure.FirstName, s.signature())
	s.enqueue("procedure_created", mail.Message{
		To:      procedure.Email,
		ToName:  clientName(procedure.FirstName, procedure.LastName),
		Subject: "Votre procédure d'admission est ouverte",
		Body:    body,
		HTML:    s.htmlBody("Procédure ouverte", body),
	})
}

// ProcedureStepUpdated reports a step transition to the client.
func (s *NotificationService) ProcedureStepUpdated(procedure *models.Procedure, stepName models.StepName) {
	step := procedure.Step(stepName)
	if step == nil {
		return
	}
	line := fmt.Sprintf("L'étape « %s » de votre procédure est maintenant : %s.", stepLabel(stepName), stepStatusLabel(step.Status))
	if step.Status == models.StepRejected && step.Reason != nil {
		line += fmt.Sprintf("\n\nMotif : %s", *step.Reason)
	}
	body := fmt.Sprintf("Bonjour %s,\n\n%s\n\n%s", procedure.FirstName, line, s.signature())
	s.enqueue("procedure_step_updated", mail.Message{
		To:      procedure.Email,
		ToName:  clientName(procedure.FirstName, procedure.LastName),
		Subject: "Mise à jour de votre procédure d'admission",
		Body:    body,
		HTML:    s.htmlBody("Mise à jour de votre procédure", body),
	})
}

// ProcedureCancelled confirms the client-requested cancellation.
func (s *NotificationService) ProcedureCancelled(procedure *models.Procedure) {
	reason := ""
	if procedure.Reason != nil && *procedure.Reason != "" {
		reason = fmt.Sprintf("\n\nMotif : %s", *procedure.Reason)
	}
	body := fmt.Sprintf(
		"Bonjour %s,\n\nVotre procédure d'admission a été annulée.%s\n\nN'hésitez pas à nous recontacter pour un nouveau projet d'études.\n\n%s",
		procedure.FirstName, reason, s.signature())
	s.enqueue("procedure_cancelled", mail.Message{
		To:      procedure.Email,
		ToName:  clientName(procedure.FirstName, procedure.LastName),
		Subject: "Votre procédure a été annulée",
		Body:    body,
		HTML:    s.htmlBody("Procédure annulée", body),
	})
}

// ProcedureRejected reports the rejection and its reason.
func (s *NotificationService) ProcedureRejected(procedure *models.Procedure) {
	reason := ""
	if procedure.Reason != nil && *procedure.Reason != "" {
		reason = fmt.Sprintf("\n\nMotif : %s", *procedure.Reason)
	}
	body := fmt.Sprintf(
		"Bonjour %s,\n\nNous sommes au regret de vous informer que votre procédure d'admission a été rejetée.%s\n\n"+
			"Votre conseiller reste à votre disposition pour étudier les alternatives possibles.\n\n%s",
		procedure.FirstName, reason, s.signature())
	s.enqueue("procedure_rejected", mail.Message{
		To:      procedure.Email,
		ToName:  clientName(procedure.FirstName, procedure.LastName),
		Subject: "Décision concernant votre procédure d'admission",
		Body:    body,
		HTML:    s.htmlBody("Décision sur votre procédure", body),
	})
}

// ContactMessageReceived forwards an inbound contact message to the
// agency inbox, with reply-to set to the sender.
func (s *NotificationService) ContactMessageReceived(message *models.ContactMessage) {
	body := fmt.Sprintf(
		"Nouveau message via le formulaire de contact.\n\nDe : %s %s <%s>\nTéléphone : %s\nObjet : %s\n\n%s",
		message.FirstName, message.LastName, message.Email, message.Phone, message.Subject, message.Message)
	s.enqueue("contact_message_received", mail.Message{
		To:      s.cfg.AdminAddress,
		ToName:  s.cfg.FromName,
		ReplyTo: message.Email,
		Subject: fmt.Sprintf("Contact : %s", message.Subject),
		Body:    body,
		HTML:    s.htmlBody("Nouveau message de contact", body),
	})
}

func (s *NotificationService) signature() string {
	sig := "Cordialement,\nL'équipe " + s.cfg.FromName
	if s.cfg.FrontendURL != "" {
		sig += "\n" + s.cfg.FrontendURL
	}
	return sig
}

// htmlBody wraps the plain-text body in a minimal HTML shell. Paragraph
// breaks follow the blank lines of the text version so both renderings
// stay in sync.
func (s *NotificationService) htmlBody(title, body string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;color:#1f2937">`)
	b.WriteString(`<h2 style="color:#1d4ed8">` + html.EscapeString(title) + `</h2>`)
	for _, paragraph := range strings.Split(body, "\n\n") {
		escaped := html.EscapeString(paragraph)
		escaped = strings.ReplaceAll(escaped, "\n", "<br>")
		b.WriteString(`<p style="line-height:1.5">` + escaped + `</p>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func clientName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

func stepLabel(name models.StepName) string {
	switch name {
	case models.StepAdmissionRequest:
		return "Demande d'admission"
	case models.StepVisaRequest:
		return "Demande de visa"
	case models.StepTravelPreparation:
		return "Préparatifs de voyage"
	}
	return string(name)
}

func stepStatusLabel(status models.StepStatus) string {
	switch status {
	case models.StepPending:
		return "en attente"
	case models.StepInProgress:
		return "en cours"
	case models.StepCompleted:
		return "terminée"
	case models.StepRejected:
		return "rejetée"
	case models.StepCancelled:
		return "annulée"
	}
	return string(status)
}

var _ appointmentNotifier = (*NotificationService)(nil)
var _ procedureNotifier = (*NotificationService)(nil)
