package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"

	"agrigate/internal/domain"
)

// Result is the verdict for one farm × program pair. Score is advisory
// ranking information in [0,100]; eligibility is boolean and determined solely
// by the disqualifying rules.
type Result struct {
	ProgramID        string
	ProgramName      string
	IsEligible       bool
	Score            float64
	EstimatedPayment decimal.Decimal
	Reasons          []string
}

// Match evaluates a farm against a program's rule snapshot. Rules are applied
// independently so Reasons is complete: a failing rule never short-circuits
// the others. The estimated payment is not capped at MaxPayment; capping
// policy is left to the caller.
func Match(farm domain.Farm, program domain.Program) Result {
	rules := program.EligibilityRules
	result := Result{
		ProgramID:        program.ID,
		ProgramName:      program.Name,
		IsEligible:       true,
		EstimatedPayment: decimal.Zero,
	}

	if rules.MinAcres != nil && farm.Acres < *rules.MinAcres {
		result.IsEligible = false
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("Farm size (%g acres) below minimum (%g acres)", farm.Acres, *rules.MinAcres))
	}

	if rules.MaxAcres != nil && farm.Acres > *rules.MaxAcres {
		result.IsEligible = false
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("Farm size (%g acres) above maximum (%g acres)", farm.Acres, *rules.MaxAcres))
	}

	if len(rules.RequiredCrops) > 0 {
		if countMatches(rules.RequiredCrops, farm.HasCrop) == 0 {
			result.IsEligible = false
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("Missing required crops: %s", join(rules.RequiredCrops)))
		} else {
			result.Score += 20
		}
	}

	if len(rules.RequiredPractices) > 0 {
		matched := countMatches(rules.RequiredPractices, farm.HasPractice)
		if matched == 0 {
			result.IsEligible = false
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("Missing required practices: %s", join(rules.RequiredPractices)))
		} else {
			result.Score += float64(matched) / float64(len(rules.RequiredPractices)) * 30
		}
	}

	if result.IsEligible {
		result.Score += 50
	}

	result.EstimatedPayment = estimatePayment(farm, program.PaymentRates)
	return result
}

func estimatePayment(farm domain.Farm, rates domain.PaymentRates) decimal.Decimal {
	total := decimal.Zero
	if rates.PerAcre != nil {
		total = total.Add(rates.PerAcre.Mul(decimal.NewFromFloat(farm.Acres)))
	}
	if rates.BasePay != nil {
		total = total.Add(*rates.BasePay)
	}
	for _, practice := range farm.Practices {
		if rate, ok := rates.Practices[practice]; ok {
			total = total.Add(rate)
		}
	}
	return total
}

func countMatches(required []string, has func(string) bool) int {
	n := 0
	for _, r := range required {
		if has(r) {
			n++
		}
	}
	return n
}

func join(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
