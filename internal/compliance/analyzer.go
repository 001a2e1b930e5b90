package compliance

import "context"

// Analysis is an imagery-derived observation of a farm's practices.
type Analysis struct {
	// ObservedCoverage maps practice name to observed acreage.
	ObservedCoverage  map[string]float64
	DetectedPractices []string
	// Confidence in [0,1]. Runs below the usable threshold are not applied.
	Confidence float64
}

// ImageryAnalyzer is the external capability that turns an image reference
// into observed practice coverage. Implementations may be slow or fail;
// callers own deadlines and retry policy.
type ImageryAnalyzer interface {
	Analyze(ctx context.Context, farmID, imageryReference string) (*Analysis, error)
}
