package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"goodads/internal/domain"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

const (
	DefaultSubmissionsLimit = 50
	MaxSubmissionsLimit     = 1000
	apiKeyOptionsLimit      = 1000
)

// SubmissionFilter selects one server page; APIKey and Search narrow that page locally.
type SubmissionFilter struct {
	AdID   string
	APIKey string
	Search string
	Page   int
	Limit  int
}

// Normalize applies defaults and falls back to the first ad for unknown ids.
func (f SubmissionFilter) Normalize(ads []domain.Ad) SubmissionFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultSubmissionsLimit
	}
	if f.Limit > MaxSubmissionsLimit {
		f.Limit = MaxSubmissionsLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	if _, ok := domain.FindAd(ads, f.AdID); !ok {
		f.AdID = ""
		if len(ads) > 0 {
			f.AdID = ads[0].ID
		}
	}
	return f
}

type APIKeyOption struct {
	APIKey string
	Label  string
}

type SubmissionsView struct {
	State         PanelState
	Ads           []domain.Ad
	Filter        SubmissionFilter
	Rows          []domain.Submission
	Pagination    domain.Pagination
	APIKeyOptions []APIKeyOption
	Message       string
}

// CountLabel reads "3 of 120 submissions"; filters only see the loaded page.
func (v SubmissionsView) CountLabel() string {
	return fmt.Sprintf("%s of %s submissions", FormatCount(int64(len(v.Rows))), FormatCount(v.Pagination.Total))
}

func (v SubmissionsView) Filtered() bool {
	return v.Filter.APIKey != "" || v.Filter.Search != ""
}

type SubmissionsPanel struct {
	log *logrus.Entry
}

func NewSubmissionsPanel(log *logrus.Entry) *SubmissionsPanel {
	return &SubmissionsPanel{log: log}
}

// Load fetches the requested page and, best effort, the API keys used to
// label the filter options.
func (p *SubmissionsPanel) Load(ctx context.Context, api BackendAPI, ads []domain.Ad, filter SubmissionFilter) SubmissionsView {
	// 1. Defaults and ad fallback
	filter = filter.Normalize(ads)
	v := SubmissionsView{Ads: ads, Filter: filter, Rows: []domain.Submission{}}
	if len(ads) == 0 {
		v.State = StateEmpty
		v.Message = "No ads available for submissions"
		return v
	}

	// 2. Page and key list in parallel
	var (
		page    *domain.SubmissionPage
		pageErr error
		keys    *domain.APIKeyPage
		keysErr error
	)
	var wg conc.WaitGroup
	wg.Go(func() {
		page, pageErr = api.GetFormSubmissions(ctx, filter.AdID, filter.Page, filter.Limit)
	})
	wg.Go(func() {
		keys, keysErr = api.ListAPIKeys(ctx, 1, apiKeyOptionsLimit)
	})
	wg.Wait()

	// 3. A failed key list only narrows the filter options
	var known []domain.APIKeyRecord
	if keysErr != nil {
		p.log.WithError(keysErr).Warn("API key list unavailable, filter options limited to this page")
	} else if keys != nil {
		known = keys.Keys
	}

	if pageErr != nil {
		p.log.WithError(pageErr).WithField("ad", filter.AdID).Warn("Submissions failed")
		v.State = StateFailed
		v.Message = UserMessage(pageErr, "Failed to load submissions")
		v.APIKeyOptions = BuildAPIKeyOptions(nil, known)
		return v
	}

	// 4. Filters apply to the loaded page only
	v.Pagination = page.Pagination
	v.APIKeyOptions = BuildAPIKeyOptions(page.Submissions, known)
	v.Rows = FilterSubmissions(page.Submissions, filter.APIKey, filter.Search)

	switch {
	case len(page.Submissions) == 0:
		v.State = StateEmpty
		v.Message = "No submissions found for this ad"
	case len(v.Rows) == 0:
		v.State = StateEmpty
		v.Message = "No submissions match the current filters"
	default:
		v.State = StateReady
	}
	return v
}

// FilterSubmissions applies the exact API key filter, then the search term.
func FilterSubmissions(subs []domain.Submission, apiKey, search string) []domain.Submission {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Submission, 0, len(subs))
	for _, s := range subs {
		if apiKey != "" && s.APIKeyInfo.APIKey != apiKey {
			continue
		}
		if term != "" && !MatchesSearch(s, term) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// MatchesSearch is a case-insensitive substring match over the identifying
// fields and the serialised form data. term must already be lower case.
func MatchesSearch(s domain.Submission, term string) bool {
	fields := []string{
		s.AdID,
		s.SessionID,
		s.APIKeyInfo.APIKey,
		s.APIKeyInfo.Email,
		s.APIKeyInfo.WebsiteURL,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	if len(s.FormData) == 0 {
		return false
	}
	// form values are matched as typed, so &, < and > must stay unescaped
	raw, err := json.MarshalNoEscape(s.FormData)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(raw)), term)
}

// BuildAPIKeyOptions lists keys seen on the page first, then known keys,
// without duplicates.
func BuildAPIKeyOptions(subs []domain.Submission, known []domain.APIKeyRecord) []APIKeyOption {
	seen := make(map[string]bool)
	var out []APIKeyOption
	add := func(key, email string) {
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, APIKeyOption{APIKey: key, Label: keyOptionLabel(key, email)})
	}
	for _, s := range subs {
		add(s.APIKeyInfo.APIKey, s.APIKeyInfo.Email)
	}
	for _, k := range known {
		add(k.APIKey, k.Email)
	}
	return out
}

func keyOptionLabel(key, email string) string {
	prefix := key
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	if email == "" {
		email = "Unknown"
	}
	return fmt.Sprintf("%s (%s...)", email, prefix)
}

var baseCSVHeaders = []string{"Date", "Ad ID", "Session ID", "API Key", "Email", "Website URL"}

// FormFieldKeys is the union of form-data keys in first-seen order, each
// row's keys taken alphabetically.
func FormFieldKeys(rows []domain.Submission) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range rows {
		rowKeys := make([]string, 0, len(r.FormData))
		for k := range r.FormData {
			if !seen[k] {
				rowKeys = append(rowKeys, k)
			}
		}
		sort.Strings(rowKeys)
		for _, k := range rowKeys {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

// FormatFormValue renders one form field for tables and exports.
func FormatFormValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		raw, err := json.MarshalNoEscape(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}

// WriteSubmissionsCSV writes exactly the given rows.
func WriteSubmissionsCSV(w io.Writer, rows []domain.Submission) error {
	formKeys := FormFieldKeys(rows)
	cw := csv.NewWriter(w)

	header := append(append([]string{}, baseCSVHeaders...), formKeys...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		date := NotAvailable
		if !r.SubmittedAt.IsZero() {
			date = r.SubmittedAt.Format("2006-01-02")
		}
		record := []string{
			date,
			orNA(r.AdID),
			orNA(r.SessionID),
			orNA(r.APIKeyInfo.APIKey),
			orNA(r.APIKeyInfo.Email),
			orNA(r.APIKeyInfo.WebsiteURL),
		}
		for _, k := range formKeys {
			record = append(record, FormatFormValue(r.FormData[k]))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ExportFilename builds submissions_<ad>[_<key prefix>]_<date>.csv.
func ExportFilename(adID, apiKey string, now time.Time) string {
	name := "submissions_" + unsafeFilenameChars.ReplaceAllString(adID, "_")
	if apiKey != "" {
		prefix := apiKey
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}
		name += "_" + unsafeFilenameChars.ReplaceAllString(prefix, "_")
	}
	return name + "_" + now.Format("2006-01-02") + ".csv"
}

// ExportRows refetches the same page and returns the rows a Load with this
// filter would display.
func (p *SubmissionsPanel) ExportRows(ctx context.Context, api BackendAPI, ads []domain.Ad, filter SubmissionFilter) (SubmissionFilter, []domain.Submission, error) {
	filter = filter.Normalize(ads)
	if filter.AdID == "" {
		return filter, []domain.Submission{}, nil
	}
	page, err := api.GetFormSubmissions(ctx, filter.AdID, filter.Page, filter.Limit)
	if err != nil {
		return filter, nil, err
	}
	return filter, FilterSubmissions(page.Submissions, filter.APIKey, filter.Search), nil
}
