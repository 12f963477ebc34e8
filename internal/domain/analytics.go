package domain

const (
	FieldEventAnalytics  = "eventAnalytics"
	FieldAvgTimeSpent    = "avgTimeSpent"
	FieldDropOffAnalysis = "dropOffAnalysis"
)

// AdAnalytics holds the per-ad event breakdown.
type AdAnalytics struct {
	AdID            string
	EventAnalytics  map[string]int64
	AvgTimeSpent    float64
	DropOffAnalysis map[string]float64
	Missing         []string
}

func (a AdAnalytics) HasAvgTimeSpent() bool {
	for _, m := range a.Missing {
		if m == FieldAvgTimeSpent {
			return false
		}
	}
	return true
}

// Empty is true when the backend answered without any analytics content.
func (a AdAnalytics) Empty() bool {
	return len(a.EventAnalytics) == 0 && len(a.DropOffAnalysis) == 0 && !a.HasAvgTimeSpent()
}
