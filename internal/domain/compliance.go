package domain

import "time"

// ComplianceStatus tracks the lifecycle of a reported practice claim.
type ComplianceStatus string

const (
	// CompliancePendingReview is the initial state on report submission. Only
	// a reconciliation run can exit it.
	CompliancePendingReview ComplianceStatus = "PENDING_REVIEW"
	ComplianceCompliant     ComplianceStatus = "COMPLIANT"
	ComplianceVariance      ComplianceStatus = "VARIANCE_DETECTED"
	// ComplianceNonCompliant is reserved for manual determinations; automatic
	// reconciliation never assigns it.
	ComplianceNonCompliant ComplianceStatus = "NON_COMPLIANT"
)

// ComplianceLog is a farmer-reported practice claim, later reconciled against
// an independent observation. AcreageActual, Variance and Status are set
// together, atomically, by exactly one reconciliation write per run.
type ComplianceLog struct {
	ID              string
	FarmID          string
	Practice        string
	Date            time.Time
	Description     string
	AcreageReported float64
	AcreageActual   *float64
	Variance        *float64 // percentage deviation of observed from reported
	Status          ComplianceStatus
	Evidence        *ImageryEvidence
	// Version guards the read-modify-write reconciliation cycle. Stores must
	// reject an update whose version does not match the stored row.
	Version int64
}

// ImageryEvidence snapshots the analysis a reconciliation decision was based on.
type ImageryEvidence struct {
	ImageryReference  string
	CapturedAt        time.Time
	ObservedCoverage  map[string]float64
	DetectedPractices []string
	Confidence        float64
}
