package models

import "time"

// MetricsSnapshot is a point-in-time summary of the process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	OccurrencesCreated       uint64    `json:"occurrencesCreated"`
	OccurrencesResolved      uint64    `json:"occurrencesResolved"`
	WebsocketClients         int       `json:"websocketClients"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// SystemStatus backs the administration panel.
type SystemStatus struct {
	Database      string          `json:"database"`
	DatabaseTime  *time.Time      `json:"databaseTime,omitempty"`
	SchemaVersion uint            `json:"schemaVersion"`
	Counts        BackupCounts    `json:"counts"`
	Metrics       MetricsSnapshot `json:"metrics"`
}

// BehaviorAnalysis is the AI-written summary of a student's history.
type BehaviorAnalysis struct {
	StudentID       string    `json:"studentId"`
	Summary         string    `json:"summary"`
	OccurrenceCount int       `json:"occurrenceCount"`
	Generated       bool      `json:"generated"`
	GeneratedAt     time.Time `json:"generatedAt"`
}
