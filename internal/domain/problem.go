package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Subject identifies a practice domain served by the orchestrator.
type Subject string

const (
	SubjectCoding  Subject = "coding"
	SubjectMath    Subject = "math"
	SubjectSystems Subject = "systems"
)

// Valid reports whether the subject is one the platform serves.
func (s Subject) Valid() bool {
	switch s {
	case SubjectCoding, SubjectMath, SubjectSystems:
		return true
	}
	return false
}

// Problem is a recommendation candidate as served by the Problem Bank.
// Difficulty is on a 0-100 scale; Topics match mastery key ids.
type Problem struct {
	ID         string   `json:"id"`
	Title      string   `json:"title,omitempty"`
	Topics     []string `json:"topics"`
	Difficulty int      `json:"difficulty"`
}

// Track is a curriculum definition cached from the Problem Bank. Labels
// and Modules are kept as raw JSON; the orchestrator never interprets
// module contents, it only passes them through.
type Track struct {
	ID        uuid.UUID
	Slug      string
	Subject   Subject
	Title     string
	Labels    json.RawMessage
	Modules   json.RawMessage
	Version   string
	CreatedAt time.Time
}
