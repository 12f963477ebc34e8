package service

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"goodads/internal/domain"

	"github.com/goccy/go-json"
)

// Wire types accept the loose shapes the backend has been seen to send and
// are normalised into fully-defaulted domain records.

// flexString accepts strings and bare scalars (numeric ids).
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	*f = flexString(b)
	return nil
}

// flexNumber accepts numbers and numeric strings.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %s", b)
	}
	*f = flexNumber(n)
	return nil
}

func intOf(p *flexNumber) int64 {
	if p == nil {
		return 0
	}
	return int64(*p)
}

func floatOf(p *flexNumber) float64 {
	if p == nil {
		return 0
	}
	return float64(*p)
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// flexTime accepts ISO timestamps and epoch milliseconds. Unknown formats
// leave the zero time.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				*f = flexTime(t)
				return nil
			}
		}
		return nil
	}
	if ms, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*f = flexTime(time.UnixMilli(ms).UTC())
	}
	return nil
}

// firstTime returns the first non-zero timestamp.
func firstTime(ts ...*flexTime) time.Time {
	for _, t := range ts {
		if t != nil && !time.Time(*t).IsZero() {
			return time.Time(*t)
		}
	}
	return time.Time{}
}

func hasJSON(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && !bytes.Equal(b, []byte("null"))
}

func isArray(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '['
}

func isObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

// unwrapData returns the "data" member of an envelope, or the body itself.
func unwrapData(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if !isObject(raw) {
		return raw
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw
	}
	if hasJSON(env.Data) {
		return bytes.TrimSpace(env.Data)
	}
	return raw
}

func wrapDecodeErr(endpoint string, err error) error {
	if errors.Is(err, ErrUnsuccessful) {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	return &MalformedDataError{Endpoint: endpoint, Err: err}
}

func appendMissing(missing []string, field string) []string {
	for _, m := range missing {
		if m == field {
			return missing
		}
	}
	return append(missing, field)
}

// ads

type wireAd struct {
	ID          flexString `json:"id"`
	MongoID     flexString `json:"_id"`
	Title       flexString `json:"title"`
	Name        flexString `json:"name"`
	Description flexString `json:"description"`
	IsActive    *bool      `json:"isActive"`
}

func decodeAds(raw []byte) ([]domain.Ad, []string, error) {
	payload := unwrapData(raw)
	if !isArray(payload) {
		return []domain.Ad{}, []string{"data"}, nil
	}

	var wire []wireAd
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, nil, err
	}

	var missing []string
	ads := make([]domain.Ad, 0, len(wire))
	for _, w := range wire {
		id := string(w.ID)
		if id == "" {
			id = string(w.MongoID)
		}
		if id == "" {
			missing = appendMissing(missing, "id")
			continue
		}
		title := string(w.Title)
		if title == "" {
			title = string(w.Name)
		}
		ads = append(ads, domain.Ad{
			ID:          id,
			Title:       title,
			Description: string(w.Description),
			Active:      w.IsActive == nil || *w.IsActive,
		})
	}
	return ads, missing, nil
}

// overview

type wireJourney struct {
	WidgetShownCount   *flexNumber `json:"widgetShownCount"`
	AdSelectedCount    *flexNumber `json:"adSelectedCount"`
	FormSubmittedCount *flexNumber `json:"formSubmittedCount"`
}

func (j *wireJourney) empty() bool {
	return j == nil || (j.WidgetShownCount == nil && j.AdSelectedCount == nil && j.FormSubmittedCount == nil)
}

type wireOverview struct {
	TotalUsers       *flexNumber  `json:"totalUsers"`
	TotalSubmissions *flexNumber  `json:"totalSubmissions"`
	JourneyStats     *wireJourney `json:"journeyStats"`
}

func decodeOverview(raw []byte) (domain.OverviewStats, error) {
	payload := unwrapData(raw)
	if !isObject(payload) {
		return domain.OverviewStats{}, errors.New("overview is not an object")
	}

	var w wireOverview
	if err := json.Unmarshal(payload, &w); err != nil {
		return domain.OverviewStats{}, err
	}

	o := domain.OverviewStats{Available: true}
	if w.TotalUsers == nil {
		o.Missing = append(o.Missing, domain.FieldTotalUsers)
	}
	if w.TotalSubmissions == nil {
		o.Missing = append(o.Missing, domain.FieldTotalSubmissions)
	}
	o.TotalUsers = intOf(w.TotalUsers)
	o.TotalSubmissions = intOf(w.TotalSubmissions)

	if w.JourneyStats.empty() {
		o.Missing = append(o.Missing, domain.FieldJourneyStats)
		return o, nil
	}
	j := w.JourneyStats
	for _, f := range []struct {
		name  string
		value *flexNumber
	}{
		{"widgetShownCount", j.WidgetShownCount},
		{"adSelectedCount", j.AdSelectedCount},
		{"formSubmittedCount", j.FormSubmittedCount},
	} {
		if f.value == nil {
			o.Missing = append(o.Missing, domain.FieldJourneyStats+"."+f.name)
		}
	}
	o.JourneyStats = domain.JourneyStats{
		WidgetShownCount:   intOf(j.WidgetShownCount),
		AdSelectedCount:    intOf(j.AdSelectedCount),
		FormSubmittedCount: intOf(j.FormSubmittedCount),
		Available:          true,
	}
	return o, nil
}

// submissions

type wireAPIKeyInfo struct {
	APIKey     flexString `json:"apiKey"`
	Email      flexString `json:"email"`
	WebsiteURL flexString `json:"websiteUrl"`
}

type wireSubmission struct {
	AdID        flexString      `json:"adId"`
	SessionID   flexString      `json:"sessionId"`
	FormData    json.RawMessage `json:"formData"`
	SubmittedAt *flexTime       `json:"submittedAt"`
	CreatedAt   *flexTime       `json:"createdAt"`
	Date        *flexTime       `json:"date"`
	APIKeyInfo  *wireAPIKeyInfo `json:"apiKeyInfo"`
	APIKey      flexString      `json:"apiKey"`
}

func (w wireSubmission) toDomain() domain.Submission {
	s := domain.Submission{
		AdID:        string(w.AdID),
		SessionID:   string(w.SessionID),
		FormData:    decodeFormData(w.FormData),
		SubmittedAt: firstTime(w.SubmittedAt, w.CreatedAt, w.Date),
	}
	if w.APIKeyInfo != nil {
		s.APIKeyInfo = domain.APIKeyInfo{
			APIKey:     string(w.APIKeyInfo.APIKey),
			Email:      string(w.APIKeyInfo.Email),
			WebsiteURL: string(w.APIKeyInfo.WebsiteURL),
		}
	}
	if s.APIKeyInfo.APIKey == "" {
		s.APIKeyInfo.APIKey = string(w.APIKey)
	}
	return s
}

// decodeFormData never fails: form data that is not an object is dropped.
func decodeFormData(raw json.RawMessage) map[string]any {
	out := map[string]any{}
	if !isObject(raw) {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func decodeSubmissions(b []byte) ([]domain.Submission, error) {
	if !isArray(b) {
		return nil, errors.New("submissions is not an array")
	}
	var wire []wireSubmission
	if err := json.Unmarshal(b, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.Submission, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toDomain())
	}
	return out, nil
}

type wirePagination struct {
	Page  *flexNumber `json:"page"`
	Limit *flexNumber `json:"limit"`
	Total *flexNumber `json:"total"`
	Pages *flexNumber `json:"pages"`
}

type wireSubmissionList struct {
	Submissions json.RawMessage `json:"submissions"`
	Data        json.RawMessage `json:"data"`
	Total       *flexNumber     `json:"total"`
	Count       *flexNumber     `json:"count"`
	Pagination  *wirePagination `json:"pagination"`
}

// decodeSubmissionList handles a bare array, {submissions|data, total|count}
// and one level of {data: {...}} nesting. total is -1 when unknown.
func decodeSubmissionList(b []byte, depth int) ([]domain.Submission, int64, bool, error) {
	if isArray(b) {
		subs, err := decodeSubmissions(b)
		return subs, -1, true, err
	}
	if !isObject(b) {
		return nil, -1, false, errors.New("submissions payload is neither an array nor an object")
	}

	var w wireSubmissionList
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, -1, false, err
	}

	// 1. Total from whichever counter the backend sent
	total := int64(-1)
	switch {
	case w.Total != nil:
		total = intOf(w.Total)
	case w.Count != nil:
		total = intOf(w.Count)
	case w.Pagination != nil && w.Pagination.Total != nil:
		total = intOf(w.Pagination.Total)
	}

	// 2. Rows from submissions, data, or one nested envelope
	switch {
	case hasJSON(w.Submissions):
		subs, err := decodeSubmissions(w.Submissions)
		return subs, total, true, err
	case isArray(w.Data):
		subs, err := decodeSubmissions(w.Data)
		return subs, total, true, err
	case isObject(w.Data) && depth == 0:
		subs, inner, found, err := decodeSubmissionList(w.Data, depth+1)
		if total < 0 {
			total = inner
		}
		return subs, total, found, err
	default:
		return []domain.Submission{}, total, false, nil
	}
}

func decodeSubmissionPage(raw []byte, page, limit int) (*domain.SubmissionPage, []string, error) {
	subs, total, found, err := decodeSubmissionList(bytes.TrimSpace(raw), 0)
	if err != nil {
		return nil, nil, err
	}
	var missing []string
	if !found {
		missing = append(missing, "submissions")
	}
	if total < 0 {
		total = int64(len(subs))
	}
	return &domain.SubmissionPage{
		Submissions: subs,
		Pagination:  domain.NewPagination(page, limit, total),
	}, missing, nil
}

// ad analytics

type wireAnalytics struct {
	EventAnalytics  map[string]flexNumber `json:"eventAnalytics"`
	AvgTimeSpent    *flexNumber           `json:"avgTimeSpent"`
	DropOffAnalysis map[string]flexNumber `json:"dropOffAnalysis"`
}

func decodeAnalytics(raw []byte) (*domain.AdAnalytics, error) {
	payload := unwrapData(raw)
	if !isObject(payload) {
		return nil, errors.New("analytics is not an object")
	}

	var w wireAnalytics
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, err
	}

	a := &domain.AdAnalytics{
		EventAnalytics:  make(map[string]int64, len(w.EventAnalytics)),
		DropOffAnalysis: make(map[string]float64, len(w.DropOffAnalysis)),
		AvgTimeSpent:    floatOf(w.AvgTimeSpent),
	}
	if w.EventAnalytics == nil {
		a.Missing = append(a.Missing, domain.FieldEventAnalytics)
	}
	for k, v := range w.EventAnalytics {
		a.EventAnalytics[k] = int64(v)
	}
	if w.AvgTimeSpent == nil {
		a.Missing = append(a.Missing, domain.FieldAvgTimeSpent)
	}
	if w.DropOffAnalysis == nil {
		a.Missing = append(a.Missing, domain.FieldDropOffAnalysis)
	}
	for k, v := range w.DropOffAnalysis {
		a.DropOffAnalysis[k] = float64(v)
	}
	return a, nil
}

// api keys

type wireEnvelope struct {
	Success    *bool           `json:"success"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
	Data       json.RawMessage `json:"data"`
	Pagination *wirePagination `json:"pagination"`
	Summary    *wireSummary    `json:"summary"`
}

func (e wireEnvelope) failed() error {
	if e.Success == nil || *e.Success {
		return nil
	}
	msg := e.Message
	if msg == "" {
		msg = e.Error
	}
	if msg == "" {
		return ErrUnsuccessful
	}
	return fmt.Errorf("%w: %s", ErrUnsuccessful, msg)
}

type wireSummary struct {
	TotalAPIKeys *flexNumber `json:"totalApiKeys"`
	ActiveKeys   *flexNumber `json:"activeKeys"`
	InactiveKeys *flexNumber `json:"inactiveKeys"`
}

type wireKeyStats struct {
	TotalSubmissions *flexNumber `json:"totalSubmissions"`
	TotalEvents      *flexNumber `json:"totalEvents"`
	UniqueSessions   *flexNumber `json:"uniqueSessions"`
}

func (s *wireKeyStats) toDomain() domain.APIKeyStats {
	if s == nil {
		return domain.APIKeyStats{}
	}
	return domain.APIKeyStats{
		TotalSubmissions: intOf(s.TotalSubmissions),
		TotalEvents:      intOf(s.TotalEvents),
		UniqueSessions:   intOf(s.UniqueSessions),
	}
}

type wireAPIKey struct {
	APIKey     flexString    `json:"apiKey"`
	Email      flexString    `json:"email"`
	WebsiteURL flexString    `json:"websiteUrl"`
	IsActive   *bool         `json:"isActive"`
	CreatedAt  *flexTime     `json:"createdAt"`
	LastUsed   *flexTime     `json:"lastUsed"`
	Stats      *wireKeyStats `json:"stats"`
}

func (w *wireAPIKey) toDomain() domain.APIKeyRecord {
	if w == nil {
		return domain.APIKeyRecord{}
	}
	r := domain.APIKeyRecord{
		APIKey:     string(w.APIKey),
		Email:      string(w.Email),
		WebsiteURL: string(w.WebsiteURL),
		IsActive:   w.IsActive != nil && *w.IsActive,
		CreatedAt:  firstTime(w.CreatedAt),
		LastUsedAt: firstTime(w.LastUsed),
		Stats:      w.Stats.toDomain(),
	}
	if w.Stats == nil {
		r.Missing = []string{domain.FieldKeyStats}
	}
	return r
}

func decodeAPIKeyPage(raw []byte, page, limit int) (*domain.APIKeyPage, []string, error) {
	raw = bytes.TrimSpace(raw)

	// 1. Unwrap the envelope unless the backend sent a bare array
	var env wireEnvelope
	keysRaw := raw
	if !isArray(raw) {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, nil, err
		}
		if err := env.failed(); err != nil {
			return nil, nil, err
		}
		keysRaw = env.Data
	}

	// 2. Records
	var missing []string
	var wire []wireAPIKey
	if hasJSON(keysRaw) {
		if !isArray(keysRaw) {
			return nil, nil, errors.New("api keys is not an array")
		}
		if err := json.Unmarshal(keysRaw, &wire); err != nil {
			return nil, nil, err
		}
	} else {
		missing = append(missing, "data")
	}

	result := &domain.APIKeyPage{Keys: make([]domain.APIKeyRecord, 0, len(wire))}
	statsMissing := false
	for i := range wire {
		r := wire[i].toDomain()
		if !r.HasStats() {
			statsMissing = true
		}
		result.Keys = append(result.Keys, r)
	}
	if statsMissing {
		missing = append(missing, "data[]."+domain.FieldKeyStats)
	}

	// 3. Pagination and summary, derived from the page when absent
	if p := env.Pagination; p != nil {
		result.Pagination = domain.NewPagination(page, limit, intOf(p.Total))
		if p.Page != nil {
			result.Pagination.Page = int(intOf(p.Page))
		}
		if p.Pages != nil {
			result.Pagination.TotalPages = int(intOf(p.Pages))
		}
	} else {
		missing = append(missing, "pagination")
		result.Pagination = domain.NewPagination(page, limit, int64(len(result.Keys)))
	}

	if s := env.Summary; s != nil {
		result.Summary = domain.APIKeySummary{
			TotalAPIKeys: intOf(s.TotalAPIKeys),
			ActiveKeys:   intOf(s.ActiveKeys),
			InactiveKeys: intOf(s.InactiveKeys),
		}
	} else {
		missing = append(missing, "summary")
		result.Summary = summarizeKeys(result.Keys)
	}
	return result, missing, nil
}

func summarizeKeys(keys []domain.APIKeyRecord) domain.APIKeySummary {
	s := domain.APIKeySummary{TotalAPIKeys: int64(len(keys))}
	for _, k := range keys {
		if k.IsActive {
			s.ActiveKeys++
		} else {
			s.InactiveKeys++
		}
	}
	return s
}

type wireEventTypeCount struct {
	ID           flexString  `json:"_id"`
	Count        *flexNumber `json:"count"`
	LastOccurred *flexTime   `json:"lastOccurred"`
}

type wireAdSubmissionCount struct {
	ID            flexString  `json:"_id"`
	Count         *flexNumber `json:"count"`
	LastSubmitted *flexTime   `json:"lastSubmitted"`
}

type wireActivityEvent struct {
	EventType flexString `json:"eventType"`
	AdID      flexString `json:"adId"`
	Timestamp *flexTime  `json:"timestamp"`
	CreatedAt *flexTime  `json:"createdAt"`
}

type wireDetailStats struct {
	wireKeyStats
	EventsByType    []wireEventTypeCount    `json:"eventsByType"`
	SubmissionsByAd []wireAdSubmissionCount `json:"submissionsByAd"`
}

type wireAPIKeyDetail struct {
	APIKeyInfo     *wireAPIKey      `json:"apiKeyInfo"`
	Stats          *wireDetailStats `json:"stats"`
	RecentActivity *struct {
		Submissions []wireSubmission    `json:"submissions"`
		Events      []wireActivityEvent `json:"events"`
	} `json:"recentActivity"`
}

func decodeAPIKeyDetail(raw []byte) (*domain.APIKeyDetail, []string, error) {
	raw = bytes.TrimSpace(raw)
	if !isObject(raw) {
		return nil, nil, errors.New("api key detail is not an object")
	}

	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, err
	}
	if err := env.failed(); err != nil {
		return nil, nil, err
	}
	payload := raw
	if hasJSON(env.Data) {
		payload = env.Data
	}

	var w wireAPIKeyDetail
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, nil, err
	}

	// 1. Start from empty sections so templates never see nil slices
	var missing []string
	d := &domain.APIKeyDetail{
		EventsByType:    []domain.EventTypeCount{},
		SubmissionsByAd: []domain.AdSubmissionCount{},
		RecentActivity: domain.RecentActivity{
			Submissions: []domain.Submission{},
			Events:      []domain.ActivityEvent{},
		},
	}

	// 2. Key record
	if w.APIKeyInfo == nil {
		missing = append(missing, domain.FieldKeyInfo)
	}
	d.Info = w.APIKeyInfo.toDomain()
	d.Info.Missing = nil

	// 3. Usage totals; the record inherits them when present
	if w.Stats == nil {
		missing = append(missing, domain.FieldKeyStats)
		d.Info.Missing = []string{domain.FieldKeyStats}
	} else {
		d.Stats = w.Stats.wireKeyStats.toDomain()
		for _, e := range w.Stats.EventsByType {
			d.EventsByType = append(d.EventsByType, domain.EventTypeCount{
				EventType:    string(e.ID),
				Count:        intOf(e.Count),
				LastOccurred: firstTime(e.LastOccurred),
			})
		}
		for _, s := range w.Stats.SubmissionsByAd {
			d.SubmissionsByAd = append(d.SubmissionsByAd, domain.AdSubmissionCount{
				AdID:          string(s.ID),
				Count:         intOf(s.Count),
				LastSubmitted: firstTime(s.LastSubmitted),
			})
		}
		d.Info.Stats = d.Stats
	}

	// 4. Recent activity
	if w.RecentActivity == nil {
		missing = append(missing, domain.FieldRecentActivity)
	} else {
		for _, s := range w.RecentActivity.Submissions {
			d.RecentActivity.Submissions = append(d.RecentActivity.Submissions, s.toDomain())
		}
		for _, e := range w.RecentActivity.Events {
			d.RecentActivity.Events = append(d.RecentActivity.Events, domain.ActivityEvent{
				EventType: string(e.EventType),
				AdID:      string(e.AdID),
				Timestamp: firstTime(e.Timestamp, e.CreatedAt),
			})
		}
	}
	d.Missing = missing
	return d, missing, nil
}
