package notice

import (
	"context"
	"time"

	"agrigate/internal/domain"
)

// Extraction is the structured result of interpreting a raw program notice.
type Extraction struct {
	ProgramID        string
	Name             string
	Description      string
	EligibilityRules domain.EligibilityRules
	PaymentRates     domain.PaymentRates
	FormsRequired    []string
	ProgramPeriod    ProgramPeriod
}

// ProgramPeriod bounds a program's active window. Nil fields mean the notice
// did not state them; the handler substitutes the default window.
type ProgramPeriod struct {
	Start *time.Time
	End   *time.Time
}

// DocumentInterpreter is the external capability that extracts structure from
// free-text notice content. Implementations must fail explicitly rather than
// return a partial, silently-accepted extraction.
type DocumentInterpreter interface {
	Parse(ctx context.Context, content string) (*Extraction, error)
}
