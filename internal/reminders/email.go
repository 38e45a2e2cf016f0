package reminders

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// MailClient is the part of the SendGrid client the notifier uses.
type MailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailNotifier delivers reminders by email through SendGrid.
type EmailNotifier struct {
	client    MailClient
	fromEmail string
	fromName  string
}

// NewEmailNotifier creates a SendGrid-backed notifier.
func NewEmailNotifier(apiKey, fromEmail, fromName string) *EmailNotifier {
	return NewEmailNotifierWithClient(sendgrid.NewSendClient(apiKey), fromEmail, fromName)
}

func NewEmailNotifierWithClient(client MailClient, fromEmail, fromName string) *EmailNotifier {
	return &EmailNotifier{client: client, fromEmail: fromEmail, fromName: fromName}
}

func (n *EmailNotifier) Channel() Channel { return ChannelEmail }

func (n *EmailNotifier) SendReminder(ctx context.Context, r Reminder) error {
	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail("", r.Email)
	subject := fmt.Sprintf("Reminder: %s", r.Message)
	plainContent := fmt.Sprintf("%s (expiry date %s). Check your medicine cabinet.", r.Message, r.Medicine.Expiry())
	htmlContent := fmt.Sprintf("<p><strong>%s</strong> (expiry date %s).</p><p>Check your medicine cabinet.</p>",
		html.EscapeString(r.Message), r.Medicine.Expiry())

	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
	response, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return &DeliveryError{Channel: ChannelEmail, StatusCode: response.StatusCode, Message: response.Body}
	}
	return nil
}
