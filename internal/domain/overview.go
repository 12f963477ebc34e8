package domain

// Field names of the overview payload, used to report what the backend omitted.
const (
	FieldTotalUsers       = "totalUsers"
	FieldTotalSubmissions = "totalSubmissions"
	FieldJourneyStats     = "journeyStats"
)

// JourneyStats counts users through the widget funnel.
type JourneyStats struct {
	WidgetShownCount   int64
	AdSelectedCount    int64
	FormSubmittedCount int64

	// Available is false when the backend sent no journey stats or an empty object.
	Available bool
}

// OverviewStats is the normalised admin overview. The zero value is the
// fallback used when the overview could not be loaded.
type OverviewStats struct {
	TotalUsers       int64
	TotalSubmissions int64
	JourneyStats     JourneyStats

	Available bool
	Missing   []string
}

// Has reports whether the backend actually sent the given field.
func (o OverviewStats) Has(field string) bool {
	if !o.Available {
		return false
	}
	for _, m := range o.Missing {
		if m == field {
			return false
		}
	}
	return true
}
