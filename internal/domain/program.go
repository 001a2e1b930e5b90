package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Program is a subsidy scheme with eligibility rules and payment rates. Once a
// match reads a Program it treats the snapshot as immutable; only the notice
// pipeline writes programs.
type Program struct {
	ID               string
	ProgramID        string // external identifier reported by notices, upsert key
	Name             string
	Description      string
	EligibilityRules EligibilityRules
	PaymentRates     PaymentRates
	FormsRequired    []string
	StartDate        time.Time
	EndDate          time.Time
	IsActive         bool
}

// EligibilityRules holds the explicit, optional-field rule set a farm is
// evaluated against. Nil pointers mean the rule is not set.
type EligibilityRules struct {
	MinAcres          *float64
	MaxAcres          *float64
	RequiredCrops     []string
	RequiredPractices []string
	OtherRequirements []string
}

// PaymentRates describes how a program pays out. MaxPayment is carried for
// callers but is not applied by the matcher.
type PaymentRates struct {
	PerAcre    *decimal.Decimal
	BasePay    *decimal.Decimal
	Practices  map[string]decimal.Decimal
	MaxPayment *decimal.Decimal
}

// DefaultProgramWindow is applied when a parsed notice omits the program
// period: active from now for one year.
func DefaultProgramWindow(now time.Time) (start, end time.Time) {
	return now, now.AddDate(1, 0, 0)
}
