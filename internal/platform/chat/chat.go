package chat

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"emsys/internal/domain/notifications"
	"emsys/internal/platform/config"
)

type noopPoster struct{}

func (noopPoster) Post(ctx context.Context, text string) error {
	return nil
}

// webhookPoster posts to a chat server's incoming webhook
// (entry.cgi?api=SYNO.Chat.External&method=incoming&version=2&token=...).
type webhookPoster struct {
	endpoint string
	client   *http.Client
}

func New(cfg config.Config) notifications.Poster {
	if !cfg.ChatEnabled || strings.TrimSpace(cfg.ChatWebhookURL) == "" {
		return noopPoster{}
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ChatSkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &webhookPoster{
		endpoint: incomingURL(cfg.ChatWebhookURL, cfg.ChatWebhookToken),
		client:   &http.Client{Timeout: 10 * time.Second, Transport: transport},
	}
}

func incomingURL(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if q.Get("api") == "" {
		q.Set("api", "SYNO.Chat.External")
		q.Set("method", "incoming")
		q.Set("version", "2")
	}
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type incomingPayload struct {
	Text string `json:"text"`
}

type incomingResponse struct {
	Success bool `json:"success"`
	Error   *struct {
		Code   int    `json:"code"`
		Errors any    `json:"errors,omitempty"`
		Reason string `json:"reason,omitempty"`
	} `json:"error,omitempty"`
}

func (p *webhookPoster) Post(ctx context.Context, text string) error {
	payload, err := json.Marshal(incomingPayload{Text: text})
	if err != nil {
		return err
	}
	form := url.Values{"payload": {string(payload)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("chat webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out incomingResponse
	if err := json.Unmarshal(body, &out); err == nil && !out.Success && out.Error != nil {
		return fmt.Errorf("chat webhook rejected message: code %d", out.Error.Code)
	}
	return nil
}
