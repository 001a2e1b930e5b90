package domain

import (
	"encoding/json"
	"time"
)

// NoticeStatus records how far a raw program notice made it through parsing.
type NoticeStatus string

const (
	NoticePending  NoticeStatus = "PENDING"
	NoticeParsed   NoticeStatus = "PARSED"
	// NoticeUnparsed marks a notice whose parse job exhausted its retries.
	// It is surfaced for manual handling, never silently dropped.
	NoticeUnparsed NoticeStatus = "UNPARSED"
)

// Notice links a program to the raw text it was extracted from together with
// the structured extraction.
type Notice struct {
	ID          string
	ProgramID   string // internal Program.ID, empty until parsed
	Title       string
	Content     string
	ParsedData  json.RawMessage
	PublishDate time.Time
	Status      NoticeStatus
}
