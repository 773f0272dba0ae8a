package helpers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	html_tpl "html/template"
	text_tpl "text/template"

	"github.com/safestreets/tipline/app"
	"github.com/safestreets/tipline/utils"
	"github.com/wneessen/go-mail"
)

const maxAttachmentSize int64 = 3 * mibMultiplier

type EmailOpts struct {
	Subject        string                  `json:"subject"`
	TemplateName   string                  `json:"template_name"`
	ToList         []string                `json:"to_list"`
	CCList         []string                `json:"cc_list"`
	BCCList        []string                `json:"bcc_list"`
	AttachmentList []*multipart.FileHeader `json:"attachment_list"`
	IsInternal     bool                    `json:"is_internal"`
}

func (e EmailOpts) IsValid() bool {
	return len(e.Subject) > 0 && len(e.TemplateName) > 0 && len(e.ToList) > 0
}

func SendEmail(opts EmailOpts, data map[string]interface{}) error {
	if len(os.Getenv("EMAIL_FROM")) < 1 {
		return errors.New("The from email address is invalid.")
	}

	if !opts.IsValid() {
		return errors.New("Missing information to send email.")
	}

	tplBase := filepath.Clean(filepath.Join("templates", "email", opts.TemplateName))

	htmlTplFile := filepath.Clean(tplBase + ".html")
	htmlTpl, err := html_tpl.New(filepath.Base(htmlTplFile)).ParseFiles(htmlTplFile)
	if err != nil {
		return fmt.Errorf("Error loading the HTML template: %w", err)
	}

	textTplFile := filepath.Clean(tplBase + ".txt")
	textTpl, err := text_tpl.New(filepath.Base(textTplFile)).ParseFiles(textTplFile)
	if err != nil {
		return fmt.Errorf("Error loading the TEXT template: %w", err)
	}

	// Init message
	msg := mail.NewMsg()
	msg.SetMessageID()
	msg.SetDate()
	msg.SetBulk()
	msg.Subject(opts.Subject + " • " + os.Getenv("APP_NAME"))

	if err := msg.FromFormat(os.Getenv("APP_NAME"), os.Getenv("EMAIL_FROM")); err != nil {
		return fmt.Errorf("Could not set the from email address: %w", err)
	}

	if !opts.IsInternal && len(utils.SupportEmail()) > 0 {
		if err := msg.ReplyTo(utils.SupportEmail()); err != nil {
			return fmt.Errorf("Could not set the reply-to email address: %w", err)
		}
	}

	// Default values
	data["Lang"] = utils.EmailLang()
	data["AppName"] = os.Getenv("APP_NAME")
	data["AppDescription"] = os.Getenv("APP_DESCRIPTION")
	data["AppLogo"] = os.Getenv("APP_LOGO")
	data["AppDomain"] = os.Getenv("APP_DOMAIN")
	data["Subject"] = opts.Subject
	data["Now"] = time.Now().In(utils.DefaultLocation())

	if err := msg.SetBodyHTMLTemplate(htmlTpl, data); err != nil {
		return fmt.Errorf("Error setting HTML template: %w", err)
	}

	if err := msg.AddAlternativeTextTemplate(textTpl, data); err != nil {
		return fmt.Errorf("Error setting TEXT template: %w", err)
	}

	msg.ToIgnoreInvalid(opts.ToList...)

	if len(opts.CCList) > 0 {
		msg.CcIgnoreInvalid(opts.CCList...)
	}

	if opts.IsInternal {
		opts.BCCList = GetStaffEmails()
	}

	if len(opts.BCCList) > 0 {
		msg.BccIgnoreInvalid(opts.BCCList...)
	}

	if len(opts.AttachmentList) > 0 {
		validMIMETypes := []string{"application/pdf", "image/*"}

		for _, f := range opts.AttachmentList {
			if !utils.HasValidMimeType(f, validMIMETypes) || f.Size > maxAttachmentSize {
				slog.Warn(fmt.Sprintf("Ignoring invalid attachment: ['%s', '%s', %d B].", f.Filename, f.Header.Get("Content-Type"), f.Size))
				continue
			}

			msg.AttachFile(f.Filename, mail.WithFileName(f.Filename))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return app.SMTP().DialAndSendWithContext(ctx, msg)
}

// GetStaffEmails reads the internal notification list from configuration.
// The tipline has no user accounts of its own, so recipients are not looked
// up from a directory.
func GetStaffEmails() []string {
	list := utils.CleanStringList(utils.SplitAny(os.Getenv("STAFF_EMAIL_LIST"), utils.SplitChars))
	emails := []string{}

	for _, e := range list {
		if !utils.IsValidEmail(e) {
			slog.Warn(fmt.Sprintf("Ignoring invalid staff email: '%s'", e))
			continue
		}

		emails = append(emails, e)
	}

	if len(emails) < 1 && len(utils.InternalStaffEmail()) > 0 {
		emails = append(emails, utils.InternalStaffEmail())
	}

	return emails
}
