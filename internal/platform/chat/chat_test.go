package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsys/internal/platform/config"
)

func TestNewDisabledIsNoop(t *testing.T) {
	poster := New(config.Config{ChatEnabled: false, ChatWebhookURL: "http://unused.invalid"})
	assert.NoError(t, poster.Post(context.Background(), "hello"))
}

func TestPostSendsIncomingPayload(t *testing.T) {
	var (
		gotQuery   map[string]string
		gotPayload incomingPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"api":     r.URL.Query().Get("api"),
			"method":  r.URL.Query().Get("method"),
			"version": r.URL.Query().Get("version"),
			"token":   r.URL.Query().Get("token"),
		}
		assert.NoError(t, r.ParseForm())
		assert.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("payload")), &gotPayload))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	poster := New(config.Config{ChatEnabled: true, ChatWebhookURL: srv.URL + "/webapi/entry.cgi", ChatWebhookToken: "tok"})
	require.NoError(t, poster.Post(context.Background(), "leave approved"))

	assert.Equal(t, map[string]string{"api": "SYNO.Chat.External", "method": "incoming", "version": "2", "token": "tok"}, gotQuery)
	assert.Equal(t, "leave approved", gotPayload.Text)
}

func TestPostFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusBadGateway, body: "bad gateway"},
		{name: "rejected", status: http.StatusOK, body: `{"success":false,"error":{"code":404}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			poster := New(config.Config{ChatEnabled: true, ChatWebhookURL: srv.URL})
			assert.Error(t, poster.Post(context.Background(), "x"))
		})
	}
}

func TestEphemeralLink(t *testing.T) {
	out, err := json.Marshal(EphemeralLink("hi", "Log in", "http://app/auth/sso?token=t"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi","buttons":[{"action":{"type":"url","value":"http://app/auth/sso?token=t"},"title":"Log in"}],"response_type":"ephemeral"}`, string(out))
}
