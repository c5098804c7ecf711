package email

import (
	"fmt"

	"github.com/resend/resend-go/v3"
)

// ResendNotifier sends through the Resend API.
type ResendNotifier struct {
	client      *resend.Client
	fromAddress string
}

// NewResendNotifier creates a notifier. fromAddress must be verified in Resend.
func NewResendNotifier(apiKey, fromAddress string) *ResendNotifier {
	return &ResendNotifier{
		client:      resend.NewClient(apiKey),
		fromAddress: fromAddress,
	}
}

// Send renders the template and sends it.
func (r *ResendNotifier) Send(to, templateName string, data any) error {
	subject, html, err := Render(templateName, data)
	if err != nil {
		return err
	}
	_, err = r.client.Emails.Send(&resend.SendEmailRequest{
		From:    r.fromAddress,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("resend: send email: %w", err)
	}
	return nil
}
