package user

import (
	"testing"

	"github.com/hazukari/sc3kit/internal/config"
)

func TestProfileRoundTrip(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())

	if _, ok, err := GetProfile(); err != nil || ok {
		t.Fatalf("fresh dir should have no profile: ok=%v err=%v", ok, err)
	}

	want := Profile{Name: "okabe", Email: "okabe@example.com"}
	if err := SetProfile(want); err != nil {
		t.Fatalf("SetProfile failed: %v", err)
	}

	got, ok, err := GetProfile()
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if !ok || got != want {
		t.Fatalf("GetProfile = %+v, %v; want %+v", got, ok, want)
	}

	if err := ClearProfile(); err != nil {
		t.Fatalf("ClearProfile failed: %v", err)
	}
	if _, ok, _ := GetProfile(); ok {
		t.Fatal("profile should be gone after clear")
	}
	// Clearing twice is fine.
	if err := ClearProfile(); err != nil {
		t.Fatalf("second ClearProfile failed: %v", err)
	}
}

func TestActorNamePrefersProfile(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	if err := SetProfile(Profile{Name: "kurisu"}); err != nil {
		t.Fatalf("SetProfile failed: %v", err)
	}
	if got := ActorName(); got != "kurisu" {
		t.Errorf("ActorName = %q, want kurisu", got)
	}
}

func TestActorNameFallsBack(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	if got := ActorName(); got == "" {
		t.Error("ActorName should never be empty")
	}
}
