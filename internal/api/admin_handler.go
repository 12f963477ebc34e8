package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"goodads/internal/domain"
	"goodads/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	TabOverview    = "overview"
	TabFunnel      = "funnel"
	TabPerformance = "performance"
	TabSubmissions = "submissions"
	TabAPIKeys     = "api-keys"
	TabWaitlist    = "waitlist"

	maxPerfPanels = 1024
)

type tabLink struct {
	ID    string
	Title string
}

var adminTabs = []tabLink{
	{TabOverview, "Overview"},
	{TabFunnel, "Conversion Funnel"},
	{TabPerformance, "Ad Performance"},
	{TabSubmissions, "Submissions"},
	{TabAPIKeys, "API Keys"},
	{TabWaitlist, "Waitlist"},
}

func knownTab(tab string) bool {
	for _, t := range adminTabs {
		if t.ID == tab {
			return true
		}
	}
	return false
}

// adminPage is the view model of admin.html. Only the active tab is filled.
type adminPage struct {
	Tab       string
	Tabs      []tabLink
	Dashboard *service.Dashboard
	Fatal     string

	Cards       []service.Card
	Funnel      service.Funnel
	Performance service.AdPerformanceView
	Submissions service.SubmissionsView
	APIKeys     service.APIKeysView
	Waitlist    service.LeadsView
}

type AdminHandler struct {
	Client      *service.APIClient
	Dashboard   *service.DashboardService
	Submissions *service.SubmissionsPanel
	APIKeys     *service.APIKeysPanel
	Leads       *service.LeadService

	group  singleflight.Group
	perfMu sync.Mutex
	perf   map[string]*service.AdPerformance
	log    *logrus.Entry
	now    func() time.Time
}

func NewAdminHandler(client *service.APIClient, dashboard *service.DashboardService, subs *service.SubmissionsPanel, keys *service.APIKeysPanel, leads *service.LeadService, log *logrus.Entry) *AdminHandler {
	return &AdminHandler{
		Client:      client,
		Dashboard:   dashboard,
		Submissions: subs,
		APIKeys:     keys,
		Leads:       leads,
		perf:        make(map[string]*service.AdPerformance),
		log:         log,
		now:         time.Now,
	}
}

// api returns the backend view of this session. Identical concurrent calls
// are shared between sessions with the same auth state.
func (h *AdminHandler) api(sess *service.Session) service.BackendAPI {
	scope := "anon"
	var auth service.AuthState = service.Anonymous
	if sess != nil {
		auth = sess
		if sess.IsAuthenticated() {
			scope = "admin"
		}
	}
	return service.NewDedupAPI(h.Client.For(auth), &h.group, scope)
}

// performance keeps one ad performance panel per browser so a new selection
// cancels the fetch of the previous one.
func (h *AdminHandler) performance(clientID string, api service.BackendAPI, ads []domain.Ad) *service.AdPerformance {
	h.perfMu.Lock()
	defer h.perfMu.Unlock()
	if p, ok := h.perf[clientID]; ok && sameAds(p.View().Ads, ads) {
		return p
	}
	if len(h.perf) >= maxPerfPanels {
		clear(h.perf)
	}
	p := service.NewAdPerformance(api, ads, h.log)
	h.perf[clientID] = p
	return p
}

func (h *AdminHandler) dropPerformance(clientID string) {
	h.perfMu.Lock()
	delete(h.perf, clientID)
	h.perfMu.Unlock()
}

func sameAds(a, b []domain.Ad) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

func submissionFilter(c *gin.Context) service.SubmissionFilter {
	return service.SubmissionFilter{
		AdID:   c.Query("ad"),
		APIKey: c.Query("key"),
		Search: c.Query("q"),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", service.DefaultSubmissionsLimit),
	}
}

// LoginPage renders the admin login form.
// @Router /admin/login [get]
func (h *AdminHandler) LoginPage(c *gin.Context) {
	if sess := currentSession(c); sess != nil && sess.IsAuthenticated() {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	c.HTML(http.StatusOK, "login.html", loginPage{})
}

type loginPage struct {
	Error    string
	Username string
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// Login checks the configured credentials and persists the flag.
// @Router /admin/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "login.html", loginPage{Error: "Please enter username and password", Username: form.Username})
		return
	}

	sess := currentSession(c)
	err := sess.Login(c.Request.Context(), form.Username, form.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.HTML(http.StatusUnauthorized, "login.html", loginPage{Error: "Invalid username or password", Username: form.Username})
		return
	case err != nil:
		h.log.WithError(err).Error("Login could not be saved")
		c.HTML(http.StatusInternalServerError, "login.html", loginPage{Error: "Login failed, please try again", Username: form.Username})
		return
	}
	c.Redirect(http.StatusSeeOther, "/admin")
}

// Logout clears the flag for this browser.
// @Router /admin/logout [post]
func (h *AdminHandler) Logout(c *gin.Context) {
	sess := currentSession(c)
	h.dropPerformance(sess.ClientID())
	if err := sess.Logout(c.Request.Context()); err != nil {
		h.log.WithError(err).Warn("Logout could not be persisted")
	}
	c.Redirect(http.StatusSeeOther, "/admin/login")
}

// ShowDashboard renders the shell and the selected tab.
// @Param tab query string false "overview | funnel | performance | submissions | api-keys | waitlist"
// @Router /admin [get]
func (h *AdminHandler) ShowDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	sess := currentSession(c)
	api := h.api(sess)

	// 1. Resolve the tab; unknown values fall back to the overview
	tab := c.DefaultQuery("tab", TabOverview)
	if !knownTab(tab) {
		tab = TabOverview
	}
	if c.Query("refresh") == "1" {
		h.log.WithField("client", sess.ClientID()).Debug("Dashboard refresh requested")
	}

	// 2. Shell data (overview + ads), settled together
	d := h.Dashboard.Load(ctx, api)
	page := adminPage{Tab: tab, Tabs: adminTabs, Dashboard: d}
	if d.State == service.ShellFatal {
		page.Fatal = service.FatalMessage
		c.HTML(http.StatusBadGateway, "admin.html", page)
		return
	}

	// 3. Only the active tab is fetched
	switch tab {
	case TabOverview:
		page.Cards = service.OverviewCards(d)
	case TabFunnel:
		page.Funnel = service.BuildFunnel(d.Overview.JourneyStats)
	case TabPerformance:
		p := h.performance(sess.ClientID(), api, d.Ads)
		page.Performance = p.Select(ctx, c.Query("ad"))
	case TabSubmissions:
		page.Submissions = h.Submissions.Load(ctx, api, d.Ads, submissionFilter(c))
	case TabAPIKeys:
		page.APIKeys = h.APIKeys.Show(ctx, api, c.Query("key"), queryInt(c, "page", 1))
	case TabWaitlist:
		page.Waitlist = h.Leads.List(ctx, domain.LeadKind(c.Query("kind")), queryInt(c, "page", 1))
	}

	c.HTML(http.StatusOK, "admin.html", page)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportSubmissions downloads the filtered rows of the requested page as CSV.
// @Param ad query string false "ad id"
// @Param key query string false "exact API key"
// @Param q query string false "search term"
// @Router /admin/submissions/export [get]
func (h *AdminHandler) ExportSubmissions(c *gin.Context) {
	ctx := c.Request.Context()
	api := h.api(currentSession(c))

	// 1. Ads are needed to resolve the default ad
	ads, err := api.ListAds(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": service.UserMessage(err, "Failed to load ads")})
		return
	}

	// 2. Same page and filters as the table
	filter, rows, err := h.Submissions.ExportRows(ctx, api, ads, submissionFilter(c))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": service.UserMessage(err, "Failed to load submissions")})
		return
	}

	// 3. Stream the file, BOM first
	filename := service.ExportFilename(filter.AdID, filter.APIKey, h.now())
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if _, err := c.Writer.Write(utf8BOM); err != nil {
		return
	}
	if err := service.WriteSubmissionsCSV(c.Writer, rows); err != nil {
		h.log.WithError(err).Error("CSV export interrupted")
		return
	}
	h.log.WithFields(logrus.Fields{"ad": filter.AdID, "rows": len(rows)}).Info("Submissions exported")
}
