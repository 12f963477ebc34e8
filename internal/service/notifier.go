package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"goodads/internal/domain"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const notifyQueueSize = 64

// WebhookPayload is understood by Slack, Discord and Teams incoming webhooks.
type WebhookPayload struct {
	Text string `json:"text"`
}

// NotifierService announces new waitlist leads on a chat webhook. Messages
// are queued and sent by a single worker.
type NotifierService struct {
	webhookURL string
	client     *http.Client
	log        *logrus.Entry

	mu     sync.Mutex
	queue  chan string
	closed bool
	wg     sync.WaitGroup
}

func NewNotifierService(webhookURL string, log *logrus.Entry) *NotifierService {
	return &NotifierService{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
		queue:      make(chan string, notifyQueueSize),
	}
}

func (n *NotifierService) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

func (n *NotifierService) Start() {
	if !n.Enabled() {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for msg := range n.queue {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := n.send(ctx, msg); err != nil {
				n.log.WithError(err).Error("Webhook notification failed")
			}
			cancel()
		}
	}()
}

// Stop drains the queue and waits for the worker.
func (n *NotifierService) Stop() {
	if n == nil {
		return
	}
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	n.wg.Wait()
}

// NotifyLead enqueues without blocking; messages are dropped when the queue is full.
func (n *NotifierService) NotifyLead(lead domain.Lead) {
	if !n.Enabled() {
		return
	}
	msg := fmt.Sprintf("New %s on the GoodAds waitlist: %s <%s>", lead.Kind, lead.FullName, lead.Email)
	switch lead.Kind {
	case domain.LeadAdvertiser:
		msg += fmt.Sprintf("\nCompany: %s\nBudget: %s", lead.Company, lead.BudgetRange)
	case domain.LeadWebsite:
		msg += fmt.Sprintf("\nWebsite: %s\nPlatform: %s", lead.WebsiteURL, lead.Platform)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- msg:
	default:
		n.log.WithField("lead", lead.ID).Warn("Notification queue full, dropping message")
	}
}

func (n *NotifierService) send(ctx context.Context, message string) error {
	body, err := json.Marshal(WebhookPayload{Text: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
