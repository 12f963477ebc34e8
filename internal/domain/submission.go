package domain

import "time"

// APIKeyInfo identifies the publisher that produced a submission.
type APIKeyInfo struct {
	APIKey     string
	Email      string
	WebsiteURL string
}

// Submission is one lead-form entry collected by the widget.
type Submission struct {
	AdID        string
	SessionID   string
	FormData    map[string]any
	SubmittedAt time.Time // zero when the backend sent no usable date
	APIKeyInfo  APIKeyInfo
}

// Pagination mirrors the backend's page metadata.
type Pagination struct {
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// NewPagination derives the page count from total and limit.
func NewPagination(page, limit int, total int64) Pagination {
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return p
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

type SubmissionPage struct {
	AdID        string
	Submissions []Submission
	Pagination  Pagination
}
