//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"agrigate/internal/domain"
	"agrigate/internal/storage"
	"agrigate/internal/storage/postgres"
	"agrigate/internal/testutil/containers"
)

type StoreSuite struct {
	suite.Suite
	pg         *containers.PostgresContainer
	programs   *postgres.ProgramStore
	compliance *postgres.ComplianceStore
	payments   *postgres.PaymentStore
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.programs = postgres.NewProgramStore(s.pg.Pool)
	s.compliance = postgres.NewComplianceStore(s.pg.Pool)
	s.payments = postgres.NewPaymentStore(s.pg.Pool)
}

func (s *StoreSuite) SetupTest() {
	err := s.pg.TruncateTables(context.Background(),
		"programs", "farms", "compliance_logs", "payments", "notices", "audit_events")
	s.Require().NoError(err)
}

func (s *StoreSuite) TestProgramRoundTripAndUpsert() {
	ctx := context.Background()
	minAcres := 50.0
	perAcre := decimal.NewFromInt(50)

	program := domain.Program{
		ID:          uuid.NewString(),
		ProgramID:   "EQIP-2025",
		Name:        "Environmental Quality Incentives Program",
		Description: "Conservation cost-share",
		EligibilityRules: domain.EligibilityRules{
			MinAcres:      &minAcres,
			RequiredCrops: []string{"corn", "soybeans"},
		},
		PaymentRates:  domain.PaymentRates{PerAcre: &perAcre},
		FormsRequired: []string{"CCC-1200"},
		StartDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	s.Require().NoError(s.programs.Save(ctx, program))

	found, err := s.programs.FindByProgramID(ctx, "EQIP-2025")
	s.Require().NoError(err)
	s.Equal(program.ID, found.ID)
	s.Require().NotNil(found.EligibilityRules.MinAcres)
	s.Equal(50.0, *found.EligibilityRules.MinAcres)
	s.Require().NotNil(found.PaymentRates.PerAcre)
	s.True(found.PaymentRates.PerAcre.Equal(perAcre))
	s.Equal([]string{"corn", "soybeans"}, found.EligibilityRules.RequiredCrops)

	// Upsert on the same id updates in place.
	program.Name = "EQIP (amended)"
	s.Require().NoError(s.programs.Save(ctx, program))
	found, err = s.programs.Get(ctx, program.ID)
	s.Require().NoError(err)
	s.Equal("EQIP (amended)", found.Name)

	active, err := s.programs.ListActive(ctx)
	s.Require().NoError(err)
	s.Len(active, 1)
}

func (s *StoreSuite) TestProgramNotFound() {
	_, err := s.programs.Get(context.Background(), "no-such-id")
	s.ErrorIs(err, storage.ErrNotFound)

	_, err = s.programs.FindByProgramID(context.Background(), "GHOST-1999")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StoreSuite) seedComplianceLog(id string) domain.ComplianceLog {
	log := domain.ComplianceLog{
		ID:              id,
		FarmID:          "farm-1",
		Practice:        "cover crops",
		Date:            time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
		AcreageReported: 50,
		Status:          domain.CompliancePendingReview,
	}
	s.Require().NoError(s.compliance.Create(context.Background(), log))
	return log
}

func (s *StoreSuite) TestComplianceVersionedUpdate() {
	ctx := context.Background()
	log := s.seedComplianceLog("log-1")

	actual, variance := 45.0, -10.0
	log.AcreageActual = &actual
	log.Variance = &variance
	log.Status = domain.ComplianceCompliant
	log.Evidence = &domain.ImageryEvidence{
		ImageryReference: "img-1",
		Confidence:       0.87,
		ObservedCoverage: map[string]float64{"cover crops": 45},
	}
	s.Require().NoError(s.compliance.UpdateReconciled(ctx, log))

	updated, err := s.compliance.Get(ctx, "log-1")
	s.Require().NoError(err)
	s.Equal(int64(1), updated.Version)
	s.Equal(domain.ComplianceCompliant, updated.Status)
	s.Require().NotNil(updated.Evidence)
	s.Equal("img-1", updated.Evidence.ImageryReference)
	s.Equal(45.0, updated.Evidence.ObservedCoverage["cover crops"])

	// The stale snapshot (version 0) must be rejected.
	err = s.compliance.UpdateReconciled(ctx, log)
	s.ErrorIs(err, storage.ErrVersionConflict)
}

func (s *StoreSuite) TestComplianceUpdateUnknownLog() {
	err := s.compliance.UpdateReconciled(context.Background(), domain.ComplianceLog{ID: "ghost"})
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StoreSuite) TestComplianceConcurrentUpdates() {
	ctx := context.Background()
	s.seedComplianceLog("log-1")

	const writers = 20
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log, err := s.compliance.Get(ctx, "log-1")
			if err != nil {
				return
			}
			log.Status = domain.ComplianceCompliant
			switch err := s.compliance.UpdateReconciled(ctx, log); {
			case err == nil:
				wins.Add(1)
			default:
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(writers), wins.Load()+conflicts.Load())
	s.GreaterOrEqual(wins.Load(), int32(1))

	final, err := s.compliance.Get(ctx, "log-1")
	s.Require().NoError(err)
	s.Equal(int64(wins.Load()), final.Version, "version counts exactly the accepted writes")
}

func (s *StoreSuite) TestPaymentRoundTrip() {
	ctx := context.Background()
	payment := domain.Payment{
		ID:        uuid.NewString(),
		FarmID:    "farm-1",
		ProgramID: "prog-1",
		Amount:    decimal.RequireFromString("2500.50"),
		DueDate:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:    domain.PaymentScheduled,
		Notes:     "Initial payment",
	}
	s.Require().NoError(s.payments.Save(ctx, payment))

	processed := time.Date(2025, 3, 16, 9, 0, 0, 0, time.UTC)
	payment.Status = domain.PaymentCompleted
	payment.ProcessedDate = &processed
	payment.TransactionID = "TXN-" + uuid.NewString()
	s.Require().NoError(s.payments.Save(ctx, payment))

	found, err := s.payments.Get(ctx, payment.ID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentCompleted, found.Status)
	s.True(found.Amount.Equal(payment.Amount))
	s.Require().NotNil(found.ProcessedDate)
	s.True(found.ProcessedDate.Equal(processed))
	s.Equal(payment.TransactionID, found.TransactionID)

	byFarm, err := s.payments.ListByFarm(ctx, "farm-1")
	s.Require().NoError(err)
	s.Len(byFarm, 1)
}
