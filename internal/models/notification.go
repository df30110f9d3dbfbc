package models

import "time"

// Notification event types pushed over the admin websocket.
const (
	NotificationOccurrenceCreated  = "occurrence.created"
	NotificationOccurrenceResolved = "occurrence.resolved"
)

// Notification is the envelope pushed to connected administrators.
type Notification struct {
	Type        string      `json:"type"`
	Occurrence  *Occurrence `json:"occurrence,omitempty"`
	StudentName string      `json:"studentName,omitempty"`
	Recidivist  bool        `json:"recidivist"`
	At          time.Time   `json:"at"`
}
