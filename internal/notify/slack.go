package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/config"
	"github.com/sentaiment/report-cli/internal/model"
	"github.com/sentaiment/report-cli/internal/resilience"
)

// Message is a Slack-compatible webhook payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is one colored block of fields in a Slack message.
type Attachment struct {
	Color  string  `json:"color,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

// Field is a single title/value pair inside an attachment.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short,omitempty"`
}

// Notifier posts report completion messages to a Slack-compatible webhook.
type Notifier struct {
	cfg    config.SlackConfig
	client *http.Client
	retry  resilience.RetryConfig
}

// New creates a Notifier with the given Slack config.
func New(cfg config.SlackConfig) *Notifier {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("slack", "post_webhook")
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  retry,
	}
}

// ReportMessage builds the completion notification for a reconciled and
// rendered report.
func (n *Notifier) ReportMessage(doc *model.ReportDocument, filename string) Message {
	leader := "—"
	if len(doc.HeadToHead) > 0 {
		leader = doc.HeadToHead[0].Company
	}
	return Message{
		Channel:   n.cfg.Channel,
		Username:  n.cfg.Username,
		IconEmoji: n.cfg.IconEmoji,
		Text:      fmt.Sprintf("Competitive report ready for *%s*", doc.Company),
		Attachments: []Attachment{{
			Color: "#2b6cb0",
			Fields: []Field{
				{Title: "Scenarios", Value: fmt.Sprintf("%d", doc.Metadata.TotalScenarios), Short: true},
				{Title: "Competitors", Value: fmt.Sprintf("%d", len(doc.Metadata.CompetitorsAnalyzed)), Short: true},
				{Title: "Citations", Value: fmt.Sprintf("%d", len(doc.Citations)), Short: true},
				{Title: "Leader", Value: leader, Short: true},
				{Title: "File", Value: filename},
			},
		}},
	}
}

// Send posts a message to the configured webhook. When no real webhook URL
// is configured (unset or the placeholder), the message is logged and
// dropped rather than failing the run.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	if !n.cfg.Configured() {
		zap.L().Info("notify: no webhook configured, skipping",
			zap.String("text", msg.Text),
		)
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "notify: marshal message")
	}

	err = resilience.Do(ctx, n.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(payload))
		if err != nil {
			return eris.Wrap(err, "notify: create webhook request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return eris.Wrap(err, "notify: webhook request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(
				eris.Errorf("notify: webhook returned status %d", resp.StatusCode),
				resp.StatusCode,
			)
		}
		if resp.StatusCode >= 400 {
			return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("notify: message sent",
		zap.String("channel", msg.Channel),
	)
	return nil
}
