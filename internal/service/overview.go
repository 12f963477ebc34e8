package service

import (
	"goodads/internal/domain"
)

// Card is one headline metric on the overview tab.
type Card struct {
	Title       string
	Value       string
	Unavailable bool
}

func unavailableCard(title string) Card {
	return Card{Title: title, Value: NotAvailable, Unavailable: true}
}

// OverviewCards derives the four headline cards from the shell data.
func OverviewCards(d *Dashboard) []Card {
	o := d.Overview
	cards := make([]Card, 0, 4)

	if o.Has(domain.FieldTotalUsers) {
		cards = append(cards, Card{Title: "Total Users", Value: FormatCount(o.TotalUsers)})
	} else {
		cards = append(cards, unavailableCard("Total Users"))
	}

	if o.Has(domain.FieldTotalSubmissions) {
		cards = append(cards, Card{Title: "Total Submissions", Value: FormatCount(o.TotalSubmissions)})
	} else {
		cards = append(cards, unavailableCard("Total Submissions"))
	}

	if d.AdsErr != nil {
		cards = append(cards, unavailableCard("Active Ads"))
	} else {
		cards = append(cards, Card{Title: "Active Ads", Value: FormatCount(int64(len(d.Ads)))})
	}

	j := o.JourneyStats
	if !j.Available {
		cards = append(cards, unavailableCard("Conversion Rate"))
	} else if j.WidgetShownCount <= 0 {
		cards = append(cards, Card{Title: "Conversion Rate", Value: "0%"})
	} else {
		cards = append(cards, Card{
			Title: "Conversion Rate",
			Value: FormatPercent(ConversionRate(j.FormSubmittedCount, j.WidgetShownCount), 1),
		})
	}
	return cards
}

// ConversionRate is part/whole as a percentage, 0 when whole is 0.
func ConversionRate(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

type FunnelStage struct {
	Title      string
	Count      int64
	Percentage float64 // relative to the previous stage
	DropOff    float64
}

func (s FunnelStage) PercentLabel() string { return FormatPercent(s.Percentage, 1) }
func (s FunnelStage) DropOffLabel() string { return FormatPercent(s.DropOff, 1) }
func (s FunnelStage) ShowDropOff() bool    { return s.DropOff > 0 }

// BarWidth clamps the percentage for rendering.
func (s FunnelStage) BarWidth() float64 {
	switch {
	case s.Percentage < 0:
		return 0
	case s.Percentage > 100:
		return 100
	}
	return s.Percentage
}

type Funnel struct {
	Available   bool
	Stages      []FunnelStage
	OverallRate float64
}

func (f Funnel) OverallLabel() string { return FormatPercent(f.OverallRate, 2) }

// BuildFunnel computes the widget-to-submission funnel. Without journey stats
// the funnel is unavailable rather than all zeroes.
func BuildFunnel(j domain.JourneyStats) Funnel {
	if !j.Available {
		return Funnel{}
	}

	stages := []FunnelStage{
		{Title: "Widget Shown", Count: j.WidgetShownCount, Percentage: 100},
		{Title: "Ad Selected", Count: j.AdSelectedCount},
		{Title: "Form Submitted", Count: j.FormSubmittedCount},
	}
	for i := 1; i < len(stages); i++ {
		prev := stages[i-1].Count
		stages[i].Percentage = ConversionRate(stages[i].Count, prev)
		if prev > 0 && stages[i].Percentage < 100 {
			stages[i].DropOff = 100 - stages[i].Percentage
		}
	}

	return Funnel{
		Available:   true,
		Stages:      stages,
		OverallRate: ConversionRate(j.FormSubmittedCount, j.WidgetShownCount),
	}
}
