// internal/models/command.go
package models

import "time"

// CommandKind distinguishes voice clips from typed commands.
type CommandKind string

const (
	KindAudio CommandKind = "audio"
	KindText  CommandKind = "text"
)

// CommandStatus is the processing lifecycle of a CommandRecord.
type CommandStatus string

const (
	StatusReceived     CommandStatus = "received"
	StatusTranscribing CommandStatus = "transcribing"
	StatusAnalyzing    CommandStatus = "analyzing"
	StatusCompleted    CommandStatus = "completed"
	StatusFailed       CommandStatus = "failed"
)

// CommandEnvelope is the broker message payload representing one command.
// The wire format allows exactly this key set; the security gate rejects
// anything else before the envelope reaches the pipeline.
type CommandEnvelope struct {
	TenantID  string      `json:"tenantId"`
	UserID    string      `json:"userId"`
	NodeID    string      `json:"nodeId,omitempty"`
	AudioRef  string      `json:"audioRef,omitempty"`
	Text      string      `json:"text,omitempty"`
	Timestamp string      `json:"timestamp"`
	RecordID  string      `json:"recordId"`
	Kind      CommandKind `json:"kind"`
	Retries   int         `json:"retries"`
}

// CommandRecord is the durable record tracking a command's lifecycle.
// Created by the producer in status "received"; mutated only by the
// pipeline's state machine driver.
type CommandRecord struct {
	ID           string
	TenantID     string
	UserID       string
	Status       CommandStatus
	InputText    string
	ResponseText string
	AudioRef     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
