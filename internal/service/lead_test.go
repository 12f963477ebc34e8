package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"goodads/internal/domain"
	"goodads/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadJoin(t *testing.T) {
	repo := repository.NewMemoryLeadRepo()
	svc := NewLeadService(repo, nil, quietLog())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)) }

	lead, err := svc.Join(context.Background(), domain.Lead{
		Kind:        domain.LeadAdvertiser,
		FullName:    "  Ann Lee ",
		Email:       " Ann@Acme.IO ",
		Company:     "Acme",
		BudgetRange: "$1k–$10k",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "ann@acme.io", lead.Email)
	assert.Equal(t, "Ann Lee", lead.FullName)
	assert.Equal(t, time.UTC, lead.CreatedAt.Location())

	stored, total, err := repo.List(context.Background(), domain.LeadAdvertiser, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, lead.ID, stored[0].ID)

	_, err = svc.Join(context.Background(), domain.Lead{Kind: domain.LeadAdvertiser, FullName: "Ann", Email: "ann@acme.io"})
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	// the same email may join the other list
	_, err = svc.Join(context.Background(), domain.Lead{Kind: domain.LeadWebsite, FullName: "Ann", Email: "ann@acme.io", WebsiteURL: "https://acme.io"})
	assert.NoError(t, err)
}

func TestLeadJoinValidation(t *testing.T) {
	svc := NewLeadService(repository.NewMemoryLeadRepo(), nil, quietLog())

	cases := map[string]domain.Lead{
		"bad email":   {Kind: domain.LeadWebsite, FullName: "A", Email: "nope"},
		"no name":     {Kind: domain.LeadWebsite, FullName: "  ", Email: "a@b.io"},
		"bad kind":    {Kind: "publisher", FullName: "A", Email: "a@b.io"},
		"bad budget":  {Kind: domain.LeadAdvertiser, FullName: "A", Email: "a@b.io", BudgetRange: "lots"},
		"bad website": {Kind: domain.LeadWebsite, FullName: "A", Email: "a@b.io", WebsiteURL: "not a url"},
	}
	for name, lead := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Join(context.Background(), lead)
			assert.ErrorContains(t, err, "invalid lead")
		})
	}
}

type failingLeadRepo struct {
	repository.LeadRepository
}

func (failingLeadRepo) List(context.Context, domain.LeadKind, int64, int64) ([]domain.Lead, int64, error) {
	return nil, 0, errors.New("mongo down")
}

func TestLeadList(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryLeadRepo()
	svc := NewLeadService(repo, nil, quietLog())

	v := svc.List(ctx, "", 1)
	assert.Equal(t, StateEmpty, v.State)
	assert.Equal(t, "No waitlist sign-ups yet", v.Message)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < LeadsPageSize+2; i++ {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		_, err := svc.Join(ctx, domain.Lead{Kind: domain.LeadWebsite, FullName: "W", Email: fmt.Sprintf("w%d@x.io", i)})
		require.NoError(t, err)
	}
	_, err := svc.Join(ctx, domain.Lead{Kind: domain.LeadAdvertiser, FullName: "A", Email: "a@x.io"})
	require.NoError(t, err)

	v = svc.List(ctx, domain.LeadWebsite, 1)
	assert.Equal(t, StateReady, v.State)
	assert.Len(t, v.Leads, LeadsPageSize)
	assert.Equal(t, fmt.Sprintf("w%d@x.io", LeadsPageSize+1), v.Leads[0].Email)
	assert.Equal(t, 2, v.Pagination.TotalPages)
	assert.True(t, v.Pagination.HasNext())

	v = svc.List(ctx, domain.LeadWebsite, 2)
	assert.Len(t, v.Leads, 2)

	v = svc.List(ctx, "publisher", 0)
	assert.Equal(t, domain.LeadKind(""), v.Kind)
	assert.EqualValues(t, LeadsPageSize+3, v.Pagination.Total)
	assert.Equal(t, 1, v.Pagination.Page)

	v = NewLeadService(failingLeadRepo{}, nil, quietLog()).List(ctx, "", 1)
	assert.Equal(t, StateFailed, v.State)
	assert.Equal(t, "Failed to load waitlist sign-ups", v.Message)
}
