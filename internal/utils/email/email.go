package email

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/tzpesa/pesa-service/internal/config"
	"github.com/tzpesa/pesa-service/internal/models"
	"github.com/tzpesa/pesa-service/internal/service"
)

// Sender emails the operator when a transaction reaches a terminal status
type Sender struct {
	cfg *config.Config
	log *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, log *logrus.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

// HandleStatusChange implements service.Subscriber. Non-terminal changes
// and missing SMTP configuration are skipped silently.
func (s *Sender) HandleStatusChange(ev service.Event) error {
	if !models.IsTerminal(ev.Kind, ev.NewStatus) {
		return nil
	}
	if s.cfg.SMTPHost == "" || s.cfg.NotifyEmail == "" {
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.NotifyEmail}

	label := "Payment"
	if ev.Kind == models.KindPayout {
		label = "Payout"
	}
	if ev.Record.Successful() {
		e.Subject = fmt.Sprintf("%s %s completed", label, ev.LocalReference)
	} else {
		e.Subject = fmt.Sprintf("%s %s %s", label, ev.LocalReference, ev.NewStatus)
	}

	body := fmt.Sprintf(
		"%s %s changed status from %s to %s.\n"+
			"Amount: %s %s\n"+
			"Counterparty: %s\n",
		label, ev.LocalReference, ev.OldStatus, ev.NewStatus,
		ev.Record.Currency, ev.Record.Amount,
		ev.Record.CounterpartyPhone,
	)
	if ev.Record.Fee.Valid {
		body += fmt.Sprintf("Fee: %s %s\n", ev.Record.Currency, ev.Record.Fee.Decimal)
	}
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.log.Errorf("Failed to send status email for %s: %v", ev.LocalReference, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.Infof("Email sent to %s: %s", s.cfg.NotifyEmail, e.Subject)
	return nil
}
