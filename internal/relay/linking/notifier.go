package linking

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/afraznein/KTPDiscordRelay/internal/infra/upstream"
)

const DefaultNotifierHeader = "X-Relay-Key"

// NotifierConfig is the notifier section of the relay configuration.
type NotifierConfig struct {
	URL    string `yaml:"url" env:"RELAY_NOTIFIER_URL"`
	Secret string `yaml:"secret"`
	Header string `yaml:"header"`
}

// WebhookNotifier posts completed links to a downstream service.
type WebhookNotifier struct {
	url    string
	secret string
	header string
	exec   *upstream.Executor
	policy upstream.Policy
}

// NewWebhookNotifier posts link records to cfg.URL through exec using policy.
func NewWebhookNotifier(cfg NotifierConfig, exec *upstream.Executor, policy upstream.Policy) *WebhookNotifier {
	header := cfg.Header
	if header == "" {
		header = DefaultNotifierHeader
	}
	return &WebhookNotifier{
		url:    cfg.URL,
		secret: cfg.Secret,
		header: header,
		exec:   exec,
		policy: policy,
	}
}

// NotifyLinked delivers link. The downstream status is logged but not
// interpreted; only transport failures and exhausted retries are errors.
func (n *WebhookNotifier) NotifyLinked(ctx context.Context, link Link) error {
	req, err := upstream.NewJSONRequest("POST notifier", http.MethodPost, n.url, link)
	if err != nil {
		return err
	}
	if n.secret != "" {
		req = req.WithHeader(n.header, n.secret)
	}

	resp, err := n.exec.Execute(ctx, req, n.policy)
	if err != nil {
		return fmt.Errorf("notify link: %w", err)
	}
	defer upstream.Discard(resp)

	if !upstream.IsSuccess(resp.StatusCode) {
		slog.Warn("Link notifier returned non-success status",
			"status", resp.StatusCode,
			"user_id", link.UserID,
		)
		return nil
	}
	slog.Debug("Link notifier accepted", "status", resp.StatusCode, "user_id", link.UserID)
	return nil
}
