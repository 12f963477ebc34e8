package domain

import "time"

type LeadKind string

const (
	LeadAdvertiser LeadKind = "advertiser"
	LeadWebsite    LeadKind = "website"
)

// Lead is a waitlist sign-up from the landing page.
type Lead struct {
	ID        string    `bson:"_id" json:"id"`
	Kind      LeadKind  `bson:"kind" json:"kind" validate:"required,oneof=advertiser website"`
	FullName  string    `bson:"full_name" json:"full_name" validate:"required,max=200"`
	Email     string    `bson:"email" json:"email" validate:"required,email"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`

	// advertiser
	Company     string `bson:"company,omitempty" json:"company,omitempty" validate:"max=200"`
	BudgetRange string `bson:"budget_range,omitempty" json:"budget_range,omitempty" validate:"omitempty,oneof=<$1k $1k–$10k $10k+"`
	Industry    string `bson:"industry,omitempty" json:"industry,omitempty" validate:"max=200"`

	// website
	WebsiteURL     string `bson:"website_url,omitempty" json:"website_url,omitempty" validate:"omitempty,url"`
	MonthlyTraffic string `bson:"monthly_traffic,omitempty" json:"monthly_traffic,omitempty" validate:"max=100"`
	Platform       string `bson:"platform,omitempty" json:"platform,omitempty" validate:"max=100"`
}

// BudgetRanges are the advertiser budget options offered on the landing page.
var BudgetRanges = []string{"<$1k", "$1k–$10k", "$10k+"}
