package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"goodads/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSubmissions() []domain.Submission {
	return []domain.Submission{
		{
			AdID: "ad1", SessionID: "sess-1",
			FormData:    map[string]any{"name": "Ann", "company": "Acme"},
			SubmittedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
			APIKeyInfo:  domain.APIKeyInfo{APIKey: "ak_aaaaaaaa1111", Email: "pub1@x.io", WebsiteURL: "https://one.io"},
		},
		{
			AdID: "ad1", SessionID: "sess-2",
			FormData:   map[string]any{"name": "Bob", "budget": float64(500)},
			APIKeyInfo: domain.APIKeyInfo{APIKey: "ak_bbbbbbbb2222", Email: "pub2@x.io"},
		},
		{
			AdID: "ad1", SessionID: "sess-3",
			FormData: map[string]any{},
		},
	}
}

func TestFilterSubmissions(t *testing.T) {
	subs := sampleSubmissions()

	assert.Len(t, FilterSubmissions(subs, "", ""), 3)
	assert.Len(t, FilterSubmissions(subs, "ak_bbbbbbbb2222", ""), 1)
	assert.Len(t, FilterSubmissions(subs, "ak_missing", ""), 0)

	byForm := FilterSubmissions(subs, "", "ACME")
	require.Len(t, byForm, 1)
	assert.Equal(t, "sess-1", byForm[0].SessionID)

	assert.Len(t, FilterSubmissions(subs, "", "one.io"), 1)
	assert.Len(t, FilterSubmissions(subs, "", "sess-"), 3)
	assert.Len(t, FilterSubmissions(subs, "ak_aaaaaaaa1111", "bob"), 0)
}

func TestFilterSubmissionsMatchesMarkupCharacters(t *testing.T) {
	subs := []domain.Submission{
		{AdID: "ad1", SessionID: "s-1", FormData: map[string]any{"company": "Smith & Sons", "note": "<b>vip</b>"}},
		{AdID: "ad1", SessionID: "s-2", FormData: map[string]any{"company": "Plain Co"}},
	}

	for _, term := range []string{"smith & sons", "<b>vip", "</b>", "&"} {
		t.Run(term, func(t *testing.T) {
			rows := FilterSubmissions(subs, "", term)
			require.Len(t, rows, 1)
			assert.Equal(t, "s-1", rows[0].SessionID)
		})
	}

	panel := NewSubmissionsPanel(quietLog())
	api := &fakeAPI{
		getSubmissions: func(_ context.Context, adID string, page, limit int) (*domain.SubmissionPage, error) {
			return &domain.SubmissionPage{Submissions: subs}, nil
		},
	}
	_, rows, err := panel.ExportRows(context.Background(), api, []domain.Ad{{ID: "ad1"}}, SubmissionFilter{Search: "Smith & Sons"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteSubmissionsCSV(&buf, rows))
	assert.Contains(t, buf.String(), "Smith & Sons")
}

func TestFormatFormValueKeepsMarkup(t *testing.T) {
	assert.Equal(t, `["a&b","<i>"]`, FormatFormValue([]any{"a&b", "<i>"}))
	assert.Equal(t, "false", FormatFormValue(false))
	assert.Equal(t, "0", FormatFormValue(float64(0)))
}

func TestBuildAPIKeyOptions(t *testing.T) {
	known := []domain.APIKeyRecord{
		{APIKey: "ak_bbbbbbbb2222", Email: "other@x.io"},
		{APIKey: "ak_cccccccc3333", Email: "pub3@x.io"},
		{APIKey: ""},
	}
	opts := BuildAPIKeyOptions(sampleSubmissions(), known)
	require.Len(t, opts, 3)
	assert.Equal(t, APIKeyOption{APIKey: "ak_aaaaaaaa1111", Label: "pub1@x.io (ak_aaaaa...)"}, opts[0])
	assert.Equal(t, "pub2@x.io (ak_bbbbb...)", opts[1].Label)
	assert.Equal(t, "ak_cccccccc3333", opts[2].APIKey)
}

func TestWriteSubmissionsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSubmissionsCSV(&buf, sampleSubmissions()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, []string{"Date", "Ad ID", "Session ID", "API Key", "Email", "Website URL", "company", "name", "budget"}, records[0])
	assert.Equal(t, []string{"2024-05-01", "ad1", "sess-1", "ak_aaaaaaaa1111", "pub1@x.io", "https://one.io", "Acme", "Ann", ""}, records[1])
	assert.Equal(t, []string{"N/A", "ad1", "sess-2", "ak_bbbbbbbb2222", "pub2@x.io", "N/A", "", "Bob", "500"}, records[2])
	assert.Equal(t, "N/A", records[3][3])
}

func TestWriteSubmissionsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSubmissionsCSV(&buf, nil))
	assert.Equal(t, "Date,Ad ID,Session ID,API Key,Email,Website URL\n", buf.String())
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "submissions_ad1_2024-05-01.csv", ExportFilename("ad1", "", now))
	assert.Equal(t, "submissions_ad1_ak_04bd1_2024-05-01.csv", ExportFilename("ad1", "ak_04bd1da9", now))
	assert.Equal(t, "submissions_a_b_2024-05-01.csv", ExportFilename("a/b", "", now))
}

func TestSubmissionsPanelLoad(t *testing.T) {
	ads := []domain.Ad{{ID: "ad1"}, {ID: "ad2"}}
	var gotAd string
	var gotPage, gotLimit int
	api := &fakeAPI{
		getSubmissions: func(_ context.Context, adID string, page, limit int) (*domain.SubmissionPage, error) {
			gotAd, gotPage, gotLimit = adID, page, limit
			return &domain.SubmissionPage{AdID: adID, Submissions: sampleSubmissions(), Pagination: domain.NewPagination(page, limit, 120)}, nil
		},
		listAPIKeys: func(context.Context, int, int) (*domain.APIKeyPage, error) {
			return nil, &AuthError{}
		},
	}
	panel := NewSubmissionsPanel(quietLog())

	v := panel.Load(context.Background(), api, ads, SubmissionFilter{AdID: "nope", APIKey: "ak_aaaaaaaa1111"})
	assert.Equal(t, "ad1", gotAd)
	assert.Equal(t, 1, gotPage)
	assert.Equal(t, DefaultSubmissionsLimit, gotLimit)

	assert.Equal(t, StateReady, v.State)
	assert.Len(t, v.Rows, 1)
	assert.Len(t, v.APIKeyOptions, 2)
	assert.Equal(t, "1 of 120 submissions", v.CountLabel())
	assert.True(t, v.Filtered())

	v = panel.Load(context.Background(), api, ads, SubmissionFilter{AdID: "ad2", Search: "zzz"})
	assert.Equal(t, StateEmpty, v.State)
	assert.Equal(t, "No submissions match the current filters", v.Message)
}

func TestSubmissionsPanelStates(t *testing.T) {
	panel := NewSubmissionsPanel(quietLog())

	v := panel.Load(context.Background(), &fakeAPI{}, nil, SubmissionFilter{})
	assert.Equal(t, StateEmpty, v.State)
	assert.Equal(t, "No ads available for submissions", v.Message)

	v = panel.Load(context.Background(), &fakeAPI{}, []domain.Ad{{ID: "ad1"}}, SubmissionFilter{})
	assert.Equal(t, StateEmpty, v.State)
	assert.Equal(t, "No submissions found for this ad", v.Message)

	v = panel.Load(context.Background(), &fakeAPI{
		getSubmissions: func(context.Context, string, int, int) (*domain.SubmissionPage, error) {
			return nil, errors.New("boom")
		},
	}, []domain.Ad{{ID: "ad1"}}, SubmissionFilter{})
	assert.Equal(t, StateFailed, v.State)
	assert.Equal(t, "Failed to load submissions", v.Message)
}

func TestSubmissionsExportRows(t *testing.T) {
	panel := NewSubmissionsPanel(quietLog())
	api := &fakeAPI{
		getSubmissions: func(_ context.Context, adID string, page, limit int) (*domain.SubmissionPage, error) {
			return &domain.SubmissionPage{Submissions: sampleSubmissions()}, nil
		},
	}

	f, rows, err := panel.ExportRows(context.Background(), api, []domain.Ad{{ID: "ad1"}}, SubmissionFilter{Search: "bob", Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxSubmissionsLimit, f.Limit)
	require.Len(t, rows, 1)
	assert.Equal(t, "sess-2", rows[0].SessionID)
}
