package app

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/wneessen/go-mail"
)

var (
	smtpClient *mail.Client
	onceSMTP   sync.Once
)

// SMTP returns the shared outbound mail client. The tipline only emails
// staff, never citizens, so a single sender identity is enough.
func SMTP() *mail.Client {
	onceSMTP.Do(func() {
		client, err := mail.NewClient(os.Getenv("EMAIL_HOST"), smtpOptions()...)
		if err != nil {
			slog.Error(fmt.Sprintf("Could not create email client: %v", err))
			os.Exit(1)
		}

		smtpClient = client
	})

	return smtpClient
}

func smtpOptions() []mail.Option {
	port, err := strconv.Atoi(os.Getenv("EMAIL_PORT"))
	if err != nil {
		port = mail.DefaultPortTLS
		slog.Warn(fmt.Sprintf("The SMTP port '%s' is invalid. The port %d will be used instead.", os.Getenv("EMAIL_PORT"), port))
	}

	tlsPolicy := mail.TLSMandatory
	smtpAuth := mail.SMTPAuthCramMD5

	// Relays without TLS are assumed to only speak LOGIN auth.
	if useTLS, err := strconv.ParseBool(os.Getenv("EMAIL_TLS")); err == nil && !useTLS {
		tlsPolicy = mail.TLSOpportunistic
		smtpAuth = mail.SMTPAuthLogin
	}

	return []mail.Option{
		mail.WithSMTPAuth(smtpAuth),
		mail.WithTLSPortPolicy(tlsPolicy),
		mail.WithPort(port),
		mail.WithUsername(os.Getenv("EMAIL_USERNAME")),
		mail.WithPassword(os.Getenv("EMAIL_PASSWORD")),
		mail.WithTimeout(15 * time.Second),
	}
}
