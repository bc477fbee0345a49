package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/resend/resend-go/v2"
	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"
)

type EmailMessage struct {
	To          string
	Subject     string
	Text        string
	Unsubscribe string // URL for the List-Unsubscribe header
	Tags        map[string]string
}

type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) (string, error)
}

// ResendMailer sends plain-text emails through https://resend.com.
type ResendMailer struct {
	From   string
	client *resend.Client
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{
		From:   from,
		client: resend.NewCustomClient(&http.Client{Timeout: 15 * time.Second}, apiKey),
	}
}

// SetBaseURL points the client at another API host (tests, proxies).
func (m *ResendMailer) SetBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	m.client.BaseURL = u
	return nil
}

func (m *ResendMailer) Send(ctx context.Context, msg EmailMessage) (string, error) {
	req := &resend.SendEmailRequest{
		From:    m.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Text,
	}
	if msg.Unsubscribe != "" {
		req.Headers = map[string]string{"List-Unsubscribe": "<" + msg.Unsubscribe + ">"}
	}
	if len(msg.Tags) > 0 {
		names := make([]string, 0, len(msg.Tags))
		for k := range msg.Tags {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			req.Tags = append(req.Tags, resend.Tag{Name: k, Value: msg.Tags[k]})
		}
	}

	sent, err := m.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return sent.Id, nil
}

// LogMailer only logs messages. Used when no Resend key is configured.
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) Send(_ context.Context, msg EmailMessage) (string, error) {
	id := "log-" + RandomString(16)
	if m.Log != nil {
		m.Log.Info("email (not sent)",
			zap.String("id", id),
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject))
	}
	return id, nil
}

var ErrBadSignature = errors.New("invalid webhook signature")

// VerifyWebhookSignature checks the svix-id, svix-timestamp and svix-signature
// headers Resend sends with every webhook. secret is the "whsec_..." signing secret.
func VerifyWebhookSignature(secret string, headers http.Header, body []byte) error {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return fmt.Errorf("webhook secret: %w", err)
	}
	if err := wh.Verify(body, headers); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return nil
}

// SignWebhook returns the svix-signature header for body, as Resend would send it.
func SignWebhook(secret, id string, timestamp time.Time, body []byte) (string, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return "", err
	}
	return wh.Sign(id, timestamp, body)
}
