package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrigate/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func testFarm() domain.Farm {
	return domain.Farm{
		ID:        "farm-1",
		Name:      "Johnson North Field",
		Acres:     400,
		Crops:     []string{"corn", "soybeans", "wheat"},
		Practices: []string{"conservation tillage", "cover crops", "nutrient management"},
	}
}

func conservationProgram() domain.Program {
	return domain.Program{
		ID:   "prog-1",
		Name: "Environmental Quality Incentives Program",
		EligibilityRules: domain.EligibilityRules{
			MinAcres:          floatPtr(50),
			MaxAcres:          floatPtr(1000),
			RequiredCrops:     []string{"corn", "soybeans"},
			RequiredPractices: []string{"conservation tillage"},
		},
		PaymentRates: domain.PaymentRates{
			PerAcre: decPtr(50),
			BasePay: decPtr(1000),
			Practices: map[string]decimal.Decimal{
				"cover crops":          decimal.NewFromInt(45),
				"conservation tillage": decimal.NewFromInt(35),
				"nutrient management":  decimal.NewFromInt(25),
			},
			MaxPayment: decPtr(50000),
		},
		IsActive: true,
	}
}

func TestMatchFullyEligible(t *testing.T) {
	result := Match(testFarm(), conservationProgram())

	require.True(t, result.IsEligible)
	assert.Empty(t, result.Reasons)
	assert.Equal(t, 100.0, result.Score)
	// 400 acres * 50 + 1000 base + 45 + 35 + 25 practice rates
	assert.True(t, result.EstimatedPayment.Equal(decimal.NewFromInt(21105)),
		"estimated payment = %s", result.EstimatedPayment)
}

func TestMatchIsDeterministic(t *testing.T) {
	farm, program := testFarm(), conservationProgram()
	first := Match(farm, program)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Match(farm, program))
	}
}

func TestMatchEachViolatedRuleReported(t *testing.T) {
	program := conservationProgram()
	farm := domain.Farm{
		ID:    "farm-tiny",
		Acres: 20,
		Crops: []string{"barley"},
	}

	result := Match(farm, program)

	require.False(t, result.IsEligible)
	// Below minimum, missing crops, missing practices: all three reported.
	assert.Len(t, result.Reasons, 3)
	assert.Contains(t, result.Reasons[0], "below minimum")
	assert.Contains(t, result.Reasons[1], "Missing required crops")
	assert.Contains(t, result.Reasons[2], "Missing required practices")
}

func TestMatchAboveMaximumAcres(t *testing.T) {
	farm := testFarm()
	farm.Acres = 1500

	result := Match(farm, conservationProgram())

	require.False(t, result.IsEligible)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "above maximum")
}

func TestMatchPartialPracticeCredit(t *testing.T) {
	program := conservationProgram()
	program.EligibilityRules.RequiredPractices = []string{"conservation tillage", "precision agriculture"}

	result := Match(testFarm(), program)

	require.True(t, result.IsEligible, "one matched practice keeps the farm eligible")
	// 20 crops + 1/2 * 30 practices + 50 eligible
	assert.Equal(t, 85.0, result.Score)
}

func TestMatchNoRulesMeansEligible(t *testing.T) {
	program := domain.Program{ID: "prog-open", Name: "Open Program"}

	result := Match(testFarm(), program)

	require.True(t, result.IsEligible)
	assert.Equal(t, 50.0, result.Score)
	assert.True(t, result.EstimatedPayment.IsZero())
}

func TestMatchIneligibleStillEstimatesPayment(t *testing.T) {
	farm := testFarm()
	farm.Acres = 20

	result := Match(farm, conservationProgram())

	require.False(t, result.IsEligible)
	// 20 * 50 + 1000 + 105
	assert.True(t, result.EstimatedPayment.Equal(decimal.NewFromInt(2105)))
}

func TestMatchPaymentNotCappedAtMaxPayment(t *testing.T) {
	program := conservationProgram()
	farm := testFarm()
	farm.Acres = 2000
	program.EligibilityRules.MaxAcres = nil

	result := Match(farm, program)

	require.True(t, result.IsEligible)
	// 2000 * 50 + 1000 + 105 exceeds the 50000 MaxPayment and is not capped.
	assert.True(t, result.EstimatedPayment.Equal(decimal.NewFromInt(101105)))
}
