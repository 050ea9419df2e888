// Package featureflags evaluates FEATURE_FLAGS rollouts per user.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Flags that gate write endpoints.
const (
	Chat         = "chat"
	AvatarUpload = "avatar_upload"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "chat=on,avatar_upload=25%"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
// Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return &Manager{flags: out}
}

// Enabled reports whether name is on for userID. Unset flags are off.
// Values: on/true/1, off/false/0, or N% for a deterministic per-user rollout.
func (m *Manager) Enabled(name, userID string) bool {
	return m.EnabledOr(name, userID, false)
}

// EnabledOr is Enabled with def returned for flags that are not configured.
func (m *Manager) EnabledOr(name, userID string, def bool) bool {
	if m == nil {
		return def
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return def
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil || pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == "":
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns the evaluated gates for one user, including the defaulted write gates.
func (m *Manager) Snapshot(userID string) map[string]bool {
	out := map[string]bool{
		Chat:         m.EnabledOr(Chat, userID, true),
		AvatarUpload: m.EnabledOr(AvatarUpload, userID, true),
	}
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + userID))
	return int(h.Sum32() % 100)
}
