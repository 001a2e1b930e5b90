package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agrigate/internal/domain"
)

// SeedSampleData loads a small, realistic data set into the in-memory stores:
// one farm, three active programs and a handful of compliance logs and
// payments. It exists for single-process runs and demos; postgres deployments
// load data through migrations instead.
func SeedSampleData(programs *InMemoryProgramStore, farms *InMemoryFarmStore, logs *InMemoryComplianceStore, payments *InMemoryPaymentStore) (domain.Farm, []domain.Program) {
	ctx := context.Background()

	farm := domain.Farm{
		ID:        uuid.NewString(),
		OrgID:     uuid.NewString(),
		Name:      "Johnson North Field",
		Acres:     400,
		Crops:     []string{"corn", "soybeans", "wheat"},
		Practices: []string{"conservation tillage", "cover crops", "nutrient management"},
	}
	_ = farms.Put(ctx, farm)

	eqip := domain.Program{
		ID:          uuid.NewString(),
		ProgramID:   "EQIP-2025",
		Name:        "Environmental Quality Incentives Program",
		Description: "Provides financial and technical assistance to agricultural producers to address natural resource concerns",
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
		FormsRequired: []string{"CCC-1200", "NRCS-CPA-1202"},
		StartDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}

	csp := domain.Program{
		ID:          uuid.NewString(),
		ProgramID:   "CSP-2025",
		Name:        "Conservation Stewardship Program",
		Description: "Helps agricultural producers maintain and improve their existing conservation systems",
		EligibilityRules: domain.EligibilityRules{
			MinAcres:          floatPtr(100),
			RequiredPractices: []string{"cover crops", "conservation tillage"},
			OtherRequirements: []string{"Existing conservation activity"},
		},
		PaymentRates: domain.PaymentRates{
			PerAcre: decPtr(35),
			BasePay: decPtr(2000),
			Practices: map[string]decimal.Decimal{
				"advanced nutrient management": decimal.NewFromInt(40),
				"precision agriculture":        decimal.NewFromInt(30),
			},
			MaxPayment: decPtr(40000),
		},
		FormsRequired: []string{"CCC-1200", "NRCS-CPA-1239"},
		StartDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}

	crp := domain.Program{
		ID:          uuid.NewString(),
		ProgramID:   "CRP-2025",
		Name:        "Conservation Reserve Program",
		Description: "Land conservation program for environmentally sensitive agricultural land",
		EligibilityRules: domain.EligibilityRules{
			MinAcres:          floatPtr(10),
			MaxAcres:          floatPtr(500),
			OtherRequirements: []string{"Highly erodible land", "Wetlands", "Buffer strips"},
		},
		PaymentRates: domain.PaymentRates{
			PerAcre:    decPtr(85),
			BasePay:    decPtr(0),
			MaxPayment: decPtr(50000),
		},
		FormsRequired: []string{"CCC-1200", "FSA-848"},
		StartDate:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}

	for _, p := range []domain.Program{eqip, csp, crp} {
		_ = programs.Save(ctx, p)
	}

	// One already-reconciled log sitting exactly on the variance boundary
	// (observed 45 of 50 reported is -10%, still compliant) and one fresh
	// report waiting for its next reconciliation run.
	_ = logs.Create(ctx, domain.ComplianceLog{
		ID:              uuid.NewString(),
		FarmID:          farm.ID,
		Practice:        "cover crops",
		Date:            time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
		Description:     "Planted winter rye cover crop on 50 acres",
		AcreageReported: 50,
		AcreageActual:   floatPtr(45),
		Variance:        floatPtr(-10),
		Status:          domain.ComplianceCompliant,
		Version:         1,
	})
	_ = logs.Create(ctx, domain.ComplianceLog{
		ID:              uuid.NewString(),
		FarmID:          farm.ID,
		Practice:        "conservation tillage",
		Date:            time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Description:     "Implemented no-till practices on corn fields",
		AcreageReported: 200,
		Status:          domain.CompliancePendingReview,
	})

	_ = payments.Save(ctx, domain.Payment{
		ID:            uuid.NewString(),
		FarmID:        farm.ID,
		ProgramID:     csp.ID,
		Amount:        decimal.NewFromInt(2500),
		DueDate:       time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:        domain.PaymentCompleted,
		ProcessedDate: timePtr(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)),
		TransactionID: "TXN-2025-001",
		Notes:         "Q4 2024 CSP payment",
	})
	_ = payments.Save(ctx, domain.Payment{
		ID:        uuid.NewString(),
		FarmID:    farm.ID,
		ProgramID: eqip.ID,
		Amount:    decimal.NewFromInt(5000),
		DueDate:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:    domain.PaymentScheduled,
		Notes:     "Initial EQIP payment pending approval",
	})
	_ = payments.Save(ctx, domain.Payment{
		ID:        uuid.NewString(),
		FarmID:    farm.ID,
		ProgramID: csp.ID,
		Amount:    decimal.NewFromInt(7500),
		DueDate:   time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		Status:    domain.PaymentPending,
		Notes:     "Q1 2025 CSP payment",
	})

	return farm, []domain.Program{eqip, csp, crp}
}

func floatPtr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
