package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fichaje/internal/browser"
)

// authState is the on-disk form of a saved session.
type authState struct {
	Cookies []browser.Cookie `json:"cookies"`
}

// loadCookies reads the auth file. A missing file yields no cookies and no error.
func loadCookies(path string) ([]browser.Cookie, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read auth file: %w", err)
	}
	var st authState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, true, fmt.Errorf("parse auth file %s: %w", path, err)
	}
	return st.Cookies, true, nil
}

// saveCookies writes the auth file readable by the owner only.
func saveCookies(path string, cookies []browser.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create auth dir: %w", err)
	}
	data, err := json.MarshalIndent(authState{Cookies: cookies}, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write auth file: %w", err)
	}
	return os.Rename(tmp, path)
}
