// Package creds persists CLIST API credentials in a local JSON file.
package creds

import (
	"encoding/json"
	"os"
	"path/filepath"

	"clistcal"
)

// DefaultPath is where credentials live when no path is configured.
const DefaultPath = "clist_credentials.json"

// Credentials hold the CLIST API login pair, stored in plaintext.
type Credentials struct {
	Username string `json:"username"`
	APIKey   string `json:"api_key"`
}

// Store reads and writes a credential file.
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{Path: path}
}

// Load returns the saved credentials, or (nil, nil) when the file is
// missing, unparsable, or incomplete. A corrupt file never fails the
// interactive flow, it just means there are no saved credentials.
func (s *Store) Load() (*Credentials, error) {
	buf, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, clistcal.Errorf(clistcal.EINTERNAL, "Cannot read credential file %s: %v.", s.Path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(buf, &creds); err != nil {
		return nil, nil
	}
	if creds.Username == "" || creds.APIKey == "" {
		return nil, nil
	}

	return &creds, nil
}

// Save writes the credentials, replacing any existing file atomically by
// writing a temp file in the same directory and renaming it over the target.
func (s *Store) Save(creds *Credentials) error {
	buf, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return clistcal.Errorf(clistcal.EINTERNAL, "Cannot create credential file in %s: %v.", dir, err)
	}

	if _, err := tmp.Write(buf); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return clistcal.Errorf(clistcal.EINTERNAL, "Cannot write credential file: %v.", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return clistcal.Errorf(clistcal.EINTERNAL, "Cannot write credential file: %v.", err)
	}

	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		_ = os.Remove(tmp.Name())
		return clistcal.Errorf(clistcal.EINTERNAL, "Cannot replace credential file %s: %v.", s.Path, err)
	}

	return nil
}

// Delete removes the credential file. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return clistcal.Errorf(clistcal.EINTERNAL, "Cannot delete credential file %s: %v.", s.Path, err)
	}
	return nil
}
