package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// BackupUser carries credentials alongside the public user shape so restored accounts can sign in.
// Password holds a plain-text secret from legacy exports and is hashed on restore.
type BackupUser struct {
	User
	PasswordHash string `json:"passwordHash,omitempty"`
	Password     string `json:"password,omitempty"`
}

// BackupDocument is the full-database export. Each collection may arrive as an array or as
// the same array encoded as a JSON string.
type BackupDocument struct {
	Students    []Student    `json:"students"`
	Occurrences []Occurrence `json:"occurrences"`
	Users       []BackupUser `json:"users"`
	Logs        []AccessLog  `json:"logs"`
}

// UnmarshalJSON decodes each collection leniently.
func (d *BackupDocument) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = BackupDocument{}
	if err := decodeCollection(raw["students"], &d.Students); err != nil {
		return fmt.Errorf("students: %w", err)
	}
	if err := decodeCollection(raw["occurrences"], &d.Occurrences); err != nil {
		return fmt.Errorf("occurrences: %w", err)
	}
	if err := decodeCollection(raw["users"], &d.Users); err != nil {
		return fmt.Errorf("users: %w", err)
	}
	if err := decodeCollection(raw["logs"], &d.Logs); err != nil {
		return fmt.Errorf("logs: %w", err)
	}
	return nil
}

func decodeCollection(raw json.RawMessage, dest interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return err
		}
		if encoded == "" {
			return nil
		}
		raw = json.RawMessage(encoded)
	}
	return json.Unmarshal(raw, dest)
}

// BackupCounts summarises how many records a backup holds.
type BackupCounts struct {
	Students    int `json:"students"`
	Occurrences int `json:"occurrences"`
	Users       int `json:"users"`
	Logs        int `json:"logs"`
}

// Counts returns the record totals of the document.
func (d *BackupDocument) Counts() BackupCounts {
	return BackupCounts{
		Students:    len(d.Students),
		Occurrences: len(d.Occurrences),
		Users:       len(d.Users),
		Logs:        len(d.Logs),
	}
}

// BackupSnapshot describes a persisted backup file.
type BackupSnapshot struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	DownloadURL string       `json:"downloadUrl"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	CreatedAt   time.Time    `json:"createdAt"`
	Counts      BackupCounts `json:"counts"`
}

// ResetRequest confirms a destructive reset with administrator credentials.
type ResetRequest struct {
	AdminID  string `json:"adminId" validate:"required"`
	Password string `json:"password" validate:"required"`
}
