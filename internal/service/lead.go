package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"goodads/internal/domain"
	"goodads/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrAlreadyJoined = errors.New("already on the waitlist")

type LeadService struct {
	Repo     repository.LeadRepository
	Notifier *NotifierService
	validate *validator.Validate
	log      *logrus.Entry
	now      func() time.Time
}

func NewLeadService(repo repository.LeadRepository, notifier *NotifierService, log *logrus.Entry) *LeadService {
	return &LeadService{
		Repo:     repo,
		Notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
		now:      time.Now,
	}
}

// Join validates and stores a waitlist sign-up. A second sign-up with the
// same email and kind returns ErrAlreadyJoined.
func (s *LeadService) Join(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	// 1. Normalise and validate
	lead.FullName = strings.TrimSpace(lead.FullName)
	lead.Email = strings.ToLower(strings.TrimSpace(lead.Email))
	lead.Company = strings.TrimSpace(lead.Company)
	lead.Industry = strings.TrimSpace(lead.Industry)
	lead.WebsiteURL = strings.TrimSpace(lead.WebsiteURL)
	lead.MonthlyTraffic = strings.TrimSpace(lead.MonthlyTraffic)
	lead.Platform = strings.TrimSpace(lead.Platform)

	if err := s.validate.Struct(lead); err != nil {
		return lead, fmt.Errorf("invalid lead: %w", err)
	}

	// 2. Store; the repository rejects a second sign-up for the same kind and email
	lead.ID = uuid.NewString()
	lead.CreatedAt = s.now().UTC()
	if err := s.Repo.Create(ctx, lead); err != nil {
		if errors.Is(err, repository.ErrDuplicateLead) {
			return lead, ErrAlreadyJoined
		}
		return lead, fmt.Errorf("save lead: %w", err)
	}

	// 3. Notify
	s.log.WithFields(logrus.Fields{"lead": lead.ID, "kind": lead.Kind}).Info("Waitlist sign-up stored")
	s.Notifier.NotifyLead(lead)
	return lead, nil
}

const LeadsPageSize = 25

// LeadsView is one page of waitlist sign-ups for the admin dashboard.
type LeadsView struct {
	State      PanelState
	Kind       domain.LeadKind
	Leads      []domain.Lead
	Pagination domain.Pagination
	Message    string
}

// List pages through stored sign-ups, newest first. Unknown kinds list everything.
func (s *LeadService) List(ctx context.Context, kind domain.LeadKind, page int) LeadsView {
	if kind != domain.LeadAdvertiser && kind != domain.LeadWebsite {
		kind = ""
	}
	if page < 1 {
		page = 1
	}
	v := LeadsView{Kind: kind, Leads: []domain.Lead{}}

	leads, total, err := s.Repo.List(ctx, kind, int64(page), LeadsPageSize)
	if err != nil {
		s.log.WithError(err).Warn("Waitlist listing failed")
		v.State = StateFailed
		v.Message = "Failed to load waitlist sign-ups"
		return v
	}

	v.Pagination = domain.NewPagination(page, LeadsPageSize, total)
	if len(leads) == 0 {
		v.State = StateEmpty
		v.Message = "No waitlist sign-ups yet"
		return v
	}
	v.Leads = leads
	v.State = StateReady
	return v
}
