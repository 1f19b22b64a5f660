package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ResendNotificationGateway delivers one-time codes to supervisor mailboxes
// through the Resend API.
type ResendNotificationGateway struct {
	client  *resend.Client
	from    string
	subject string
}

func NewResendNotificationGateway(apiKey string, from string) *ResendNotificationGateway {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return nil
	}
	return &ResendNotificationGateway{
		client:  resend.NewClient(apiKey),
		from:    from,
		subject: "One-time sign-in code",
	}
}

func (g *ResendNotificationGateway) SendCode(ctx context.Context, toEmail string, code string) error {
	if g == nil || g.client == nil {
		return errors.New("notification gateway not configured")
	}
	text := fmt.Sprintf(
		"A member of your team is signing in with their badge.\n\nTheir one-time code is: %s\n\nThe code expires in 10 minutes. Share it with them in person.",
		code,
	)
	html := fmt.Sprintf(
		"<p>A member of your team is signing in with their badge.</p><p>Their one-time code is: <strong>%s</strong></p><p>The code expires in 10 minutes. Share it with them in person.</p>",
		code,
	)
	params := &resend.SendEmailRequest{
		From:    g.from,
		To:      []string{toEmail},
		Subject: g.subject,
		Html:    html,
		Text:    text,
	}
	_, err := g.client.Emails.Send(params)
	return err
}
