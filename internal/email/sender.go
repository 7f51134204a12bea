// Package email entrega códigos OTP de verificación. La entrega en sí es un
// colaborador externo: acá sólo vive el adaptador SMTP y un sender de
// desarrollo que loguea el código en vez de enviarlo.
package email

import (
	"context"
	"fmt"

	gomail "github.com/go-mail/mail"
	"go.uber.org/zap"

	"github.com/bhoomi-id/bhoomi/internal/observability/logger"
)

// Sender entrega un código OTP a un destino.
type Sender interface {
	SendOTP(ctx context.Context, to, code string) error
}

// SMTPConfig es el bloque smtp de la configuración.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender envía por SMTP usando go-mail.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendOTP(_ context.Context, to, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Tu código de verificación")
	m.SetBody("text/plain", fmt.Sprintf("Código de verificación: %s\n\nExpira en unos minutos. Si no lo pediste, ignorá este mensaje.", code))

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	return d.DialAndSend(m)
}

// EchoSender loguea el código (dev). Nunca lo usen en prod.
type EchoSender struct{}

func (EchoSender) SendOTP(ctx context.Context, to, code string) error {
	logger.From(ctx).Info("otp_echo", zap.String("to", to), zap.String("code", code))
	return nil
}
