package featureflags

import (
	"fmt"
	"testing"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		if !m.Enabled(name, "alice") {
			t.Fatalf("%s should be enabled", name)
		}
	}
	for _, name := range []string{"b", "d", "f", "unset"} {
		if m.Enabled(name, "alice") {
			t.Fatalf("%s should be disabled", name)
		}
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=abc%")

	if !m.Enabled("always", "alice") {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", "alice") || m.Enabled("broken", "alice") {
		t.Fatal("0% and malformed rollouts should be disabled")
	}

	first := m.Enabled("canary", "bob")
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", "bob"); got != first {
			t.Fatal("rollout evaluation must be deterministic per user")
		}
	}
	if m.Enabled("canary", "") {
		t.Fatal("percentage rollout requires a user id")
	}

	on := 0
	for i := 0; i < 1000; i++ {
		if m.Enabled("canary", fmt.Sprintf("user-%d", i)) {
			on++
		}
	}
	if on < 150 || on > 350 {
		t.Fatalf("25%% rollout enabled %d of 1000 users", on)
	}
}

func TestEnabledOr_Defaults(t *testing.T) {
	m := NewManager("chat=off")

	if m.EnabledOr(Chat, "alice", true) {
		t.Fatal("configured flag must override the default")
	}
	if !m.EnabledOr(AvatarUpload, "alice", true) {
		t.Fatal("unset flag must fall back to the default")
	}

	var nilManager *Manager
	if !nilManager.EnabledOr(Chat, "alice", true) {
		t.Fatal("nil manager returns the default")
	}
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, Y = 20% ,z=off,=on,w= ")

	raw := m.Raw()
	if len(raw) != 3 {
		t.Fatalf("expected 3 parsed flags, got %d: %#v", len(raw), raw)
	}
	if raw["x"] != "on" || raw["y"] != "20%" || raw["z"] != "off" {
		t.Fatalf("unexpected raw flags: %#v", raw)
	}

	snap := m.Snapshot("alice")
	if len(snap) != 5 {
		t.Fatalf("expected snapshot size 5, got %d", len(snap))
	}
	if !snap[Chat] || !snap[AvatarUpload] {
		t.Fatalf("write gates default on: %#v", snap)
	}
}
