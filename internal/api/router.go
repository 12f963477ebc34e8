package api

import (
	"fmt"

	"goodads/internal/conf"
	"goodads/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	Auth    *service.AuthService
	Session conf.SessionConfig
	Admin   *AdminHandler
	Landing *LandingHandler
	Health  *HealthHandler
	Metrics prometheus.Gatherer
	Log     *logrus.Entry
}

func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(cfg.Log))
	r.SetHTMLTemplate(tmpl)

	r.GET("/health", cfg.Health.Health)
	r.GET("/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))
	}

	r.GET("/", cfg.Landing.Index)
	waitlist := r.Group("/waitlist")
	{
		waitlist.POST("/advertiser", cfg.Landing.JoinAdvertiser)
		waitlist.POST("/website", cfg.Landing.JoinWebsite)
	}

	admin := r.Group("/admin", ClientSession(cfg.Auth, cfg.Session.CookieName, cfg.Session.TTL, cfg.Log))
	{
		admin.GET("/login", cfg.Admin.LoginPage)
		admin.POST("/login", cfg.Admin.Login)
		admin.POST("/logout", cfg.Admin.Logout)

		authed := admin.Group("", RequireAdmin())
		authed.GET("", cfg.Admin.ShowDashboard)
		authed.GET("/submissions/export", cfg.Admin.ExportSubmissions)
	}

	return r, nil
}
