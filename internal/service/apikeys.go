package service

import (
	"context"

	"goodads/internal/domain"

	"github.com/sirupsen/logrus"
)

type APIKeysMode string

const (
	ViewList   APIKeysMode = "list"
	ViewDetail APIKeysMode = "detail"

	APIKeysPageSize   = 50
	recentActivityMax = 5
)

type APIKeysView struct {
	Mode    APIKeysMode
	State   PanelState
	Page    *domain.APIKeyPage
	Detail  *domain.APIKeyDetail
	Key     string
	Message string
}

type APIKeysPanel struct {
	log *logrus.Entry
}

func NewAPIKeysPanel(log *logrus.Entry) *APIKeysPanel {
	return &APIKeysPanel{log: log}
}

// Show picks the view from the navigation state: a selected key means detail.
func (p *APIKeysPanel) Show(ctx context.Context, api BackendAPI, apiKey string, page int) APIKeysView {
	if apiKey != "" {
		return p.Detail(ctx, api, apiKey)
	}
	return p.List(ctx, api, page)
}

func (p *APIKeysPanel) List(ctx context.Context, api BackendAPI, page int) APIKeysView {
	if page < 1 {
		page = 1
	}
	v := APIKeysView{Mode: ViewList}

	result, err := api.ListAPIKeys(ctx, page, APIKeysPageSize)
	switch {
	case err != nil:
		p.log.WithError(err).Warn("API key list failed")
		v.State = StateFailed
		v.Message = UserMessage(err, "Failed to load API keys")
	case len(result.Keys) == 0:
		v.State = StateEmpty
		v.Page = result
		v.Message = "No API keys found"
	default:
		v.State = StateReady
		v.Page = result
	}
	return v
}

func (p *APIKeysPanel) Detail(ctx context.Context, api BackendAPI, apiKey string) APIKeysView {
	v := APIKeysView{Mode: ViewDetail, Key: apiKey}

	detail, err := api.GetAPIKeyDetail(ctx, apiKey)
	if err != nil {
		p.log.WithError(err).WithField("key", MaskKey(apiKey, 8, 4)).Warn("API key detail failed")
		v.State = StateFailed
		v.Message = UserMessage(err, "Failed to load API key details")
		return v
	}

	// the fetched record may be shared with concurrent callers
	d := *detail
	if d.Info.APIKey == "" {
		d.Info.APIKey = apiKey
	}
	if len(d.RecentActivity.Submissions) > recentActivityMax {
		d.RecentActivity.Submissions = d.RecentActivity.Submissions[:recentActivityMax]
	}
	if len(d.RecentActivity.Events) > recentActivityMax {
		d.RecentActivity.Events = d.RecentActivity.Events[:recentActivityMax]
	}
	v.State = StateReady
	v.Detail = &d
	return v
}
