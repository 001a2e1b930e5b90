package compliance

import (
	"errors"
	"math"

	"agrigate/internal/domain"
)

// VarianceThreshold is the absolute variance percentage above which a log is
// flagged. Exactly the threshold is compliant: the boundary is strict.
const VarianceThreshold = 10.0

// ErrInvalidReported rejects reconciliation against a non-positive reported
// acreage. A zero report is a data error, refused rather than divided by.
var ErrInvalidReported = errors.New("reported acreage must be positive")

// Outcome is the pure reconciliation verdict for one reported/observed pair.
type Outcome struct {
	Variance float64
	Status   domain.ComplianceStatus
}

// Reconcile computes the percentage deviation of observed from reported
// acreage and derives the compliance status. It is the single source of truth
// for status derivation: no other code path may set a reconciled status.
// NON_COMPLIANT is reserved for manual determinations and never returned here.
func Reconcile(reported, observed float64) (Outcome, error) {
	if reported <= 0 {
		return Outcome{}, ErrInvalidReported
	}
	variance := (observed - reported) / reported * 100
	status := domain.ComplianceCompliant
	if math.Abs(variance) > VarianceThreshold {
		status = domain.ComplianceVariance
	}
	return Outcome{Variance: variance, Status: status}, nil
}
