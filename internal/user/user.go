// Package user persists the actor profile stamped onto manually
// triggered runs.
package user

import (
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"

	"github.com/hazukari/sc3kit/internal/config"
)

// Profile holds persisted actor metadata.
type Profile struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func profilePath() (string, error) {
	d, err := config.EnsureDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "whoami.json"), nil
}

// SetProfile saves the actor profile to disk.
func SetProfile(p Profile) error {
	pfile, err := profilePath()
	if err != nil {
		return err
	}
	f, err := os.Create(pfile)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// GetProfile reads the actor profile. The bool reports whether a profile
// has been saved.
func GetProfile() (Profile, bool, error) {
	pfile, err := profilePath()
	if err != nil {
		return Profile{}, false, err
	}
	b, err := os.ReadFile(pfile)
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, false, nil
		}
		return Profile{}, false, err
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return Profile{}, false, err
	}
	return p, true, nil
}

// ClearProfile removes the persisted profile.
func ClearProfile() error {
	pfile, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(pfile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ActorName resolves the name stamped on runs: the saved profile first,
// then the OS account, then "unknown".
func ActorName() string {
	if p, ok, err := GetProfile(); err == nil && ok && p.Name != "" {
		return p.Name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}
