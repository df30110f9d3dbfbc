package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AccessEvent names what an access-log entry records.
type AccessEvent string

const (
	EventLogin          AccessEvent = "user.login"
	EventLogout         AccessEvent = "user.logout"
	EventCriticalAction AccessEvent = "critical.action"
)

// Valid reports whether e is a known event.
func (e AccessEvent) Valid() bool {
	return e == EventLogin || e == EventLogout || e == EventCriticalAction
}

// AccessStatus is the outcome of the logged event.
type AccessStatus string

const (
	AccessSuccess AccessStatus = "success"
	AccessFailure AccessStatus = "failure"
)

// DeviceInfo describes the client that produced an access-log entry.
type DeviceInfo struct {
	Type    string `json:"type"`
	OS      string `json:"os"`
	Browser string `json:"browser"`
}

// Value stores DeviceInfo as JSONB.
func (d DeviceInfo) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads DeviceInfo from a JSONB column.
func (d *DeviceInfo) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = DeviceInfo{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan device info: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*d = DeviceInfo{}
		return nil
	}
	return json.Unmarshal(raw, d)
}

// UnmarshalJSON accepts the object form or the same object encoded as a JSON string.
func (d *DeviceInfo) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		if encoded == "" {
			return nil
		}
		data = []byte(encoded)
	}
	type plain DeviceInfo
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = DeviceInfo(p)
	return nil
}

// AccessLog is one row of the access trail.
type AccessLog struct {
	ID          int64        `db:"id" json:"id"`
	Timestamp   time.Time    `db:"timestamp" json:"timestamp"`
	UserID      string       `db:"user_id" json:"userId"`
	Event       AccessEvent  `db:"event" json:"event"`
	Status      AccessStatus `db:"status" json:"status"`
	Description string       `db:"description" json:"description"`
	IPAddress   string       `db:"ip_address" json:"ipAddress"`
	UserAgent   string       `db:"user_agent" json:"userAgent"`
	DeviceInfo  DeviceInfo   `db:"device_info" json:"deviceInfo"`
}

// UnmarshalJSON accepts camelCase and snake_case keys so older exports restore cleanly.
func (l *AccessLog) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          json.Number  `json:"id"`
		Timestamp   *time.Time   `json:"timestamp"`
		UserID      *string      `json:"userId"`
		UserIDSnake *string      `json:"user_id"`
		Event       AccessEvent  `json:"event"`
		Status      AccessStatus `json:"status"`
		Description string       `json:"description"`
		IPAddress   *string      `json:"ipAddress"`
		IPSnake     *string      `json:"ip_address"`
		UserAgent   *string      `json:"userAgent"`
		UASnake     *string      `json:"user_agent"`
		DeviceInfo  *DeviceInfo  `json:"deviceInfo"`
		DeviceSnake *DeviceInfo  `json:"device_info"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = AccessLog{
		Event:       raw.Event,
		Status:      raw.Status,
		Description: raw.Description,
		UserID:      firstString(raw.UserID, raw.UserIDSnake),
		IPAddress:   firstString(raw.IPAddress, raw.IPSnake),
		UserAgent:   firstString(raw.UserAgent, raw.UASnake),
	}
	if raw.ID != "" {
		if id, err := raw.ID.Int64(); err == nil {
			l.ID = id
		}
	}
	if raw.Timestamp != nil {
		l.Timestamp = *raw.Timestamp
	}
	switch {
	case raw.DeviceInfo != nil:
		l.DeviceInfo = *raw.DeviceInfo
	case raw.DeviceSnake != nil:
		l.DeviceInfo = *raw.DeviceSnake
	}
	return nil
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

// AccessLogFilter narrows access-log listings.
type AccessLogFilter struct {
	UserID string
	Event  AccessEvent
	Status AccessStatus
	Limit  int
}
