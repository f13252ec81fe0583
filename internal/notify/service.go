package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/vetchat-assistant/internal/appointments"
	"github.com/wolfman30/vetchat-assistant/pkg/logging"
)

// Service tells clinic staff about new appointment requests.
type Service struct {
	email      EmailSender
	recipient  string
	clinicName string
	logger     *logging.Logger
}

// NewService creates a notification service. An empty recipient disables it.
func NewService(email EmailSender, recipient, clinicName string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		recipient:  strings.TrimSpace(recipient),
		clinicName: clinicName,
		logger:     logger,
	}
}

// NotifyAppointment emails the clinic inbox with the request details.
func (s *Service) NotifyAppointment(ctx context.Context, appt *appointments.Appointment) error {
	if s == nil || s.email == nil || s.recipient == "" {
		return nil
	}
	if appt == nil {
		return fmt.Errorf("notify: appointment is nil")
	}

	msg := EmailMessage{
		To:      s.recipient,
		ToName:  s.clinicName,
		Subject: fmt.Sprintf("New appointment request: %s (%s)", appt.PetName, appt.OwnerName),
		Body:    appointmentBody(appt),
		HTML:    appointmentHTML(appt),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: appointment email: %w", err)
	}
	s.logger.Info("clinic notified of appointment request", "appointment_id", appt.ID, "session_id", appt.SessionID)
	return nil
}

func appointmentBody(appt *appointments.Appointment) string {
	var b strings.Builder
	b.WriteString("A new appointment request came in through the website chat.\n\n")
	fmt.Fprintf(&b, "Owner: %s\n", appt.OwnerName)
	fmt.Fprintf(&b, "Pet: %s\n", appt.PetName)
	fmt.Fprintf(&b, "Phone: %s\n", appt.Phone)
	fmt.Fprintf(&b, "Preferred time: %s\n", appt.PreferredDateTime)
	fmt.Fprintf(&b, "Status: %s\n", appt.Status)
	fmt.Fprintf(&b, "Reference: %s\n", appt.ID)
	b.WriteString("\nPlease call the owner to confirm the visit.")
	return b.String()
}

func appointmentHTML(appt *appointments.Appointment) string {
	esc := html.EscapeString
	return fmt.Sprintf(`<p>A new appointment request came in through the website chat.</p>
<table>
<tr><td><strong>Owner</strong></td><td>%s</td></tr>
<tr><td><strong>Pet</strong></td><td>%s</td></tr>
<tr><td><strong>Phone</strong></td><td>%s</td></tr>
<tr><td><strong>Preferred time</strong></td><td>%s</td></tr>
<tr><td><strong>Reference</strong></td><td>%s</td></tr>
</table>
<p>Please call the owner to confirm the visit.</p>`,
		esc(appt.OwnerName), esc(appt.PetName), esc(appt.Phone), esc(appt.PreferredDateTime), esc(appt.ID))
}
