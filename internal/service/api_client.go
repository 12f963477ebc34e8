package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"goodads/internal/conf"
	"goodads/internal/domain"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// AuthState tells the client whether admin headers may be attached.
type AuthState interface {
	IsAuthenticated() bool
}

type anonymous struct{}

func (anonymous) IsAuthenticated() bool { return false }

// Anonymous is the state used by background jobs and the landing page.
var Anonymous AuthState = anonymous{}

type RequestOptions struct {
	Operation string // metric and log label
	Method    string
	Query     url.Values
	Headers   map[string]string
	Body      []byte
}

// BackendAPI is the typed surface of the GoodAds backend as seen by one session.
type BackendAPI interface {
	ListAds(ctx context.Context) ([]domain.Ad, error)
	GetOverview(ctx context.Context) (domain.OverviewStats, error)
	GetFormSubmissions(ctx context.Context, adID string, page, limit int) (*domain.SubmissionPage, error)
	GetAdAnalytics(ctx context.Context, adID string) (*domain.AdAnalytics, error)
	ListAPIKeys(ctx context.Context, page, limit int) (*domain.APIKeyPage, error)
	GetAPIKeyDetail(ctx context.Context, apiKey string) (*domain.APIKeyDetail, error)
}

// APIClient talks to the remote GoodAds REST backend. It never retries or caches.
type APIClient struct {
	baseURL     string
	apiKey      string
	adminSecret string
	adminPrefix string
	jwtSecret   []byte

	HTTP    *http.Client
	Metrics *ClientMetrics
	Log     *logrus.Entry
	now     func() time.Time
}

func NewAPIClient(cfg conf.BackendConfig, metrics *ClientMetrics, log *logrus.Entry) *APIClient {
	prefix := cfg.AdminPrefix
	if prefix == "" {
		prefix = "/api/admin/"
	}
	c := &APIClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		adminSecret: cfg.AdminSecret,
		adminPrefix: prefix,
		HTTP:        &http.Client{},
		Metrics:     metrics,
		Log:         log,
		now:         time.Now,
	}
	if cfg.JWTSecret != "" {
		c.jwtSecret = []byte(cfg.JWTSecret)
	}
	return c
}

func (c *APIClient) isAdminEndpoint(endpoint string) bool {
	return strings.HasPrefix(endpoint, c.adminPrefix)
}

// Request performs one call and returns the raw JSON body of a 2xx response.
func (c *APIClient) Request(ctx context.Context, auth AuthState, endpoint string, opts RequestOptions) ([]byte, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	op := opts.Operation
	if op == "" {
		op = "request"
	}

	target := c.baseURL + endpoint
	if len(opts.Query) > 0 {
		target += "?" + opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", endpoint, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	admin := c.isAdminEndpoint(endpoint) && auth != nil && auth.IsAuthenticated()
	if admin {
		req.Header.Set("X-Admin-Key", c.adminSecret)
		if len(c.jwtSecret) > 0 {
			token, err := signAdminToken(c.jwtSecret, c.now())
			if err != nil {
				return nil, fmt.Errorf("sign admin token: %w", err)
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	log := c.Log.WithFields(logrus.Fields{
		"operation": op,
		"method":    method,
		"endpoint":  endpoint,
		"admin":     admin,
	})

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Metrics.observe(op, outcomeNetworkError, time.Since(start))
		log.WithError(err).Warn("Backend request failed")
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": elapsed.String()})
	if err != nil {
		c.Metrics.observe(op, outcomeNetworkError, elapsed)
		log.WithError(err).Warn("Reading backend response failed")
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.Metrics.observe(op, outcomeUnauthorized, elapsed)
		log.Warn("Backend rejected admin credentials")
		return nil, &AuthError{RequestError{Method: method, Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(raw)}}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.Metrics.observe(op, outcomeHTTPError, elapsed)
		log.Warn("Backend returned an error status")
		return nil, &RequestError{Method: method, Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(raw)}
	case !json.Valid(raw):
		c.Metrics.observe(op, outcomeMalformed, elapsed)
		log.Warn("Backend returned a non-JSON body")
		return nil, &MalformedDataError{Endpoint: endpoint, Err: fmt.Errorf("body is not valid JSON (%d bytes)", len(raw))}
	}

	c.Metrics.observe(op, outcomeOK, elapsed)
	log.Debug("Backend request completed")
	return raw, nil
}

// For binds the client to a session so admin headers follow its login state.
func (c *APIClient) For(auth AuthState) BackendAPI {
	if auth == nil {
		auth = Anonymous
	}
	return &boundClient{client: c, auth: auth}
}

type boundClient struct {
	client *APIClient
	auth   AuthState
}

func (b *boundClient) get(ctx context.Context, op, endpoint string, query url.Values) ([]byte, error) {
	return b.client.Request(ctx, b.auth, endpoint, RequestOptions{Operation: op, Query: query})
}

func (b *boundClient) warnMissing(op string, missing []string) {
	if len(missing) == 0 {
		return
	}
	b.client.Log.WithFields(logrus.Fields{
		"operation": op,
		"missing":   strings.Join(missing, ","),
	}).Warn("Backend payload is missing expected fields, using defaults")
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

func (b *boundClient) ListAds(ctx context.Context) ([]domain.Ad, error) {
	const endpoint = "/api/ads"
	raw, err := b.get(ctx, "list_ads", endpoint, nil)
	if err != nil {
		return nil, err
	}
	ads, missing, err := decodeAds(raw)
	if err != nil {
		return nil, &MalformedDataError{Endpoint: endpoint, Err: err}
	}
	b.warnMissing("list_ads", missing)
	return ads, nil
}

func (b *boundClient) GetOverview(ctx context.Context) (domain.OverviewStats, error) {
	const endpoint = "/api/admin/overview"
	raw, err := b.get(ctx, "get_overview", endpoint, nil)
	if err != nil {
		return domain.OverviewStats{}, err
	}
	stats, err := decodeOverview(raw)
	if err != nil {
		return domain.OverviewStats{}, &MalformedDataError{Endpoint: endpoint, Err: err}
	}
	b.warnMissing("get_overview", stats.Missing)
	return stats, nil
}

func (b *boundClient) GetFormSubmissions(ctx context.Context, adID string, page, limit int) (*domain.SubmissionPage, error) {
	endpoint := "/api/admin/forms/" + url.PathEscape(adID)
	raw, err := b.get(ctx, "get_form_submissions", endpoint, pageQuery(page, limit))
	if err != nil {
		return nil, err
	}
	result, missing, err := decodeSubmissionPage(raw, page, limit)
	if err != nil {
		return nil, &MalformedDataError{Endpoint: endpoint, Err: err}
	}
	result.AdID = adID
	b.warnMissing("get_form_submissions", missing)
	return result, nil
}

func (b *boundClient) GetAdAnalytics(ctx context.Context, adID string) (*domain.AdAnalytics, error) {
	endpoint := "/api/admin/analytics/" + url.PathEscape(adID)
	raw, err := b.get(ctx, "get_ad_analytics", endpoint, nil)
	if err != nil {
		return nil, err
	}
	analytics, err := decodeAnalytics(raw)
	if err != nil {
		return nil, &MalformedDataError{Endpoint: endpoint, Err: err}
	}
	analytics.AdID = adID
	b.warnMissing("get_ad_analytics", analytics.Missing)
	return analytics, nil
}

func (b *boundClient) ListAPIKeys(ctx context.Context, page, limit int) (*domain.APIKeyPage, error) {
	const endpoint = "/api/admin/api-keys"
	raw, err := b.get(ctx, "list_api_keys", endpoint, pageQuery(page, limit))
	if err != nil {
		return nil, err
	}
	result, missing, err := decodeAPIKeyPage(raw, page, limit)
	if err != nil {
		return nil, wrapDecodeErr(endpoint, err)
	}
	b.warnMissing("list_api_keys", missing)
	return result, nil
}

func (b *boundClient) GetAPIKeyDetail(ctx context.Context, apiKey string) (*domain.APIKeyDetail, error) {
	endpoint := "/api/admin/api-keys/" + url.PathEscape(apiKey)
	raw, err := b.get(ctx, "get_api_key_detail", endpoint, nil)
	if err != nil {
		return nil, err
	}
	detail, missing, err := decodeAPIKeyDetail(raw)
	if err != nil {
		return nil, wrapDecodeErr(endpoint, err)
	}
	b.warnMissing("get_api_key_detail", missing)
	return detail, nil
}
