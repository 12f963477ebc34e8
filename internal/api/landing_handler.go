package api

import (
	"errors"
	"net/http"

	"goodads/internal/conf"
	"goodads/internal/domain"
	"goodads/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type LandingHandler struct {
	Leads  *service.LeadService
	Widget conf.WidgetConfig
	log    *logrus.Entry
}

func NewLandingHandler(leads *service.LeadService, widget conf.WidgetConfig, log *logrus.Entry) *LandingHandler {
	return &LandingHandler{Leads: leads, Widget: widget, log: log}
}

type landingPage struct {
	Widget       conf.WidgetConfig
	BudgetRanges []string
	Joined       string
	ActiveForm   domain.LeadKind
	Error        string
	Advertiser   advertiserForm
	Website      websiteForm
}

func (h *LandingHandler) page() landingPage {
	return landingPage{
		Widget:       h.Widget,
		BudgetRanges: domain.BudgetRanges,
		ActiveForm:   domain.LeadAdvertiser,
	}
}

// Index renders the marketing page.
// @Router / [get]
func (h *LandingHandler) Index(c *gin.Context) {
	p := h.page()
	switch joined := domain.LeadKind(c.Query("joined")); joined {
	case domain.LeadAdvertiser, domain.LeadWebsite:
		p.Joined = string(joined)
		p.ActiveForm = joined
	}
	c.HTML(http.StatusOK, "landing.html", p)
}

type advertiserForm struct {
	FullName    string `form:"full_name" binding:"required,max=200"`
	Email       string `form:"email" binding:"required,email"`
	Company     string `form:"company" binding:"required,max=200"`
	BudgetRange string `form:"budget_range" binding:"required"`
	Industry    string `form:"industry" binding:"max=200"`
}

type websiteForm struct {
	FullName       string `form:"full_name" binding:"required,max=200"`
	Email          string `form:"email" binding:"required,email"`
	WebsiteURL     string `form:"website_url" binding:"required,url"`
	MonthlyTraffic string `form:"monthly_traffic" binding:"max=100"`
	Platform       string `form:"platform" binding:"max=100"`
}

// JoinAdvertiser stores an advertiser waitlist sign-up.
// @Router /waitlist/advertiser [post]
func (h *LandingHandler) JoinAdvertiser(c *gin.Context) {
	var form advertiserForm
	bindErr := c.ShouldBind(&form)

	p := h.page()
	p.ActiveForm = domain.LeadAdvertiser
	p.Advertiser = form
	if bindErr != nil {
		p.Error = "Please fill in your name, a valid email, company and budget range."
		c.HTML(http.StatusBadRequest, "landing.html", p)
		return
	}

	h.join(c, p, domain.Lead{
		Kind:        domain.LeadAdvertiser,
		FullName:    form.FullName,
		Email:       form.Email,
		Company:     form.Company,
		BudgetRange: form.BudgetRange,
		Industry:    form.Industry,
	})
}

// JoinWebsite stores a website owner waitlist sign-up.
// @Router /waitlist/website [post]
func (h *LandingHandler) JoinWebsite(c *gin.Context) {
	var form websiteForm
	bindErr := c.ShouldBind(&form)

	p := h.page()
	p.ActiveForm = domain.LeadWebsite
	p.Website = form
	if bindErr != nil {
		p.Error = "Please fill in your name, a valid email and your website URL."
		c.HTML(http.StatusBadRequest, "landing.html", p)
		return
	}

	h.join(c, p, domain.Lead{
		Kind:           domain.LeadWebsite,
		FullName:       form.FullName,
		Email:          form.Email,
		WebsiteURL:     form.WebsiteURL,
		MonthlyTraffic: form.MonthlyTraffic,
		Platform:       form.Platform,
	})
}

func (h *LandingHandler) join(c *gin.Context, p landingPage, lead domain.Lead) {
	_, err := h.Leads.Join(c.Request.Context(), lead)

	var invalid validator.ValidationErrors
	switch {
	case err == nil:
		c.Redirect(http.StatusSeeOther, "/?joined="+string(lead.Kind)+"#waitlist")
		return
	case errors.Is(err, service.ErrAlreadyJoined):
		p.Error = "This email is already on the waitlist."
		c.HTML(http.StatusConflict, "landing.html", p)
	case errors.As(err, &invalid):
		p.Error = "Some of the details look invalid, please check the form."
		c.HTML(http.StatusBadRequest, "landing.html", p)
	default:
		h.log.WithError(err).WithField("kind", lead.Kind).Error("Waitlist sign-up failed")
		p.Error = "Something went wrong, please try again later."
		c.HTML(http.StatusInternalServerError, "landing.html", p)
	}
}
