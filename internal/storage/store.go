// Package storage owns the durable per-session state layout: one
// credential directory per session (md_<id>) and one history cache file
// (<id>_store.json), both under a single sessions root.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const credentialDirPrefix = "md_"
const historyFileSuffix = "_store.json"
const markerFileName = "creds.json"

type Store struct {
	root string
}

// Marker records the last known credential state for a session. It is
// rewritten on every credentials-changed event; its presence marks the
// directory as recoverable at boot.
type Marker struct {
	JID        string    `json:"jid,omitempty"`
	Registered bool      `json:"registered"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("sessions root directory must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string {
	return s.root
}

// Resolve returns the credential directory for id, creating it if absent.
func (s *Store) Resolve(id string) (string, error) {
	dir := s.CredentialDir(id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create credential dir for %s: %w", id, err)
	}
	return dir, nil
}

func (s *Store) CredentialDir(id string) string {
	return filepath.Join(s.root, credentialDirPrefix+id)
}

func (s *Store) HistoryPath(id string) string {
	return filepath.Join(s.root, id+historyFileSuffix)
}

func (s *Store) SaveMarker(id string, marker Marker) error {
	dir, err := s.Resolve(id)
	if err != nil {
		return err
	}
	marker.UpdatedAt = time.Now().UTC()
	raw, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, markerFileName), raw, 0o600)
}

func (s *Store) LoadMarker(id string) (Marker, error) {
	var marker Marker
	raw, err := os.ReadFile(filepath.Join(s.CredentialDir(id), markerFileName))
	if err != nil {
		return marker, err
	}
	err = json.Unmarshal(raw, &marker)
	return marker, err
}

// Remove deletes the credential directory and the history cache file for
// id. Missing paths are not an error.
func (s *Store) Remove(id string) error {
	if err := os.RemoveAll(s.CredentialDir(id)); err != nil {
		return err
	}
	if err := os.Remove(s.HistoryPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ListIDs scans the sessions root for credential directories and returns
// the embedded session ids.
func (s *Store) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("scan sessions root: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, credentialDirPrefix) {
			continue
		}
		id := strings.TrimPrefix(name, credentialDirPrefix)
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
