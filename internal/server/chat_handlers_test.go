package server

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"teamtrack/internal/config"
	"teamtrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat_PostAndToday(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", "secret123", models.RoleMember, nil)
	alice := env.token(t, "alice")

	yesterday := &models.ChatMessage{UserID: "alice", Message: "old", Timestamp: fixedNow.Add(-24 * time.Hour)}
	require.NoError(t, env.db.Create(yesterday).Error)

	status, out := env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "  hello team  "}, alice)
	require.Equal(t, http.StatusCreated, status, string(out))
	assert.Equal(t, "hello team", decode[models.ChatMessage](t, out).Message)

	status, _ = env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "   "}, alice)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": strings.Repeat("a", 1001)}, alice)
	assert.Equal(t, http.StatusBadRequest, status)

	status, out = env.do(t, http.MethodGet, "/api/chat", nil, alice)
	require.Equal(t, http.StatusOK, status)
	msgs := decode[[]models.ChatMessage](t, out)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello team", msgs[0].Message)

	status, _ = env.do(t, http.MethodGet, "/api/chat", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestChat_LogsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "root", "secret123", models.RoleAdmin, nil)
	env.seedUser(t, "alice", "secret123", models.RoleMember, nil)
	for i, ts := range []time.Time{fixedNow.Add(-48 * time.Hour), fixedNow} {
		m := &models.ChatMessage{UserID: "alice", Message: []string{"first", "second"}[i], Timestamp: ts}
		require.NoError(t, env.db.Create(m).Error)
	}

	status, _ := env.do(t, http.MethodGet, "/api/chat/logs", nil, env.token(t, "alice"))
	assert.Equal(t, http.StatusForbidden, status)

	status, out := env.do(t, http.MethodGet, "/api/chat/logs", nil, env.token(t, "root"))
	require.Equal(t, http.StatusOK, status)
	logs := decode[[]models.ChatMessage](t, out)
	require.Len(t, logs, 2)
	assert.Equal(t, "second", logs[0].Message)
}

func TestChat_DisabledByFlag(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.FeatureFlags = "chat=off" })
	env.seedUser(t, "alice", "secret123", models.RoleMember, nil)

	status, out := env.do(t, http.MethodPost, "/api/chat", map[string]any{"message": "hi"}, env.token(t, "alice"))
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, models.CodeForbidden, errorCode(t, out))
}

func TestGetFeatureFlags(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.FeatureFlags = "chat=off,avatar_upload=on" })
	env.seedUser(t, "root", "secret123", models.RoleAdmin, nil)
	env.seedUser(t, "alice", "secret123", models.RoleMember, nil)

	status, _ := env.do(t, http.MethodGet, "/api/admin/feature-flags", nil, env.token(t, "alice"))
	assert.Equal(t, http.StatusForbidden, status)

	status, out := env.do(t, http.MethodGet, "/api/admin/feature-flags", nil, env.token(t, "root"))
	require.Equal(t, http.StatusOK, status)
	flags := decode[struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}](t, out)
	assert.Equal(t, "off", flags.Raw["chat"])
	assert.False(t, flags.Evaluated["chat"])
	assert.True(t, flags.Evaluated["avatar_upload"])
}
