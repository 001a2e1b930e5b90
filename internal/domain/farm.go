package domain

// Farm is the entity evaluated against programs. It is owned by exactly one
// organization and is read-only to the matching and reconciliation core.
type Farm struct {
	ID        string
	OrgID     string
	Name      string
	Acres     float64
	Crops     []string
	Practices []string
}

// HasCrop reports whether the farm grows the named crop.
func (f Farm) HasCrop(crop string) bool {
	for _, c := range f.Crops {
		if c == crop {
			return true
		}
	}
	return false
}

// HasPractice reports whether the farm applies the named practice.
func (f Farm) HasPractice(practice string) bool {
	for _, p := range f.Practices {
		if p == practice {
			return true
		}
	}
	return false
}
