package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"PublishNotifier/internal/config"
	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/ports"
)

const (
	defaultBaseURL = "https://api.brevo.com/v3"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 1024
)

// Client implements ports.EmailProvider over the Brevo v3 REST API.
// It never retries; callers decide what to do with a classified failure.
type Client struct {
	baseURL     string
	apiKey      string
	senderName  string
	senderEmail string
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ ports.EmailProvider = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.BrevoConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		senderName:  cfg.SenderName,
		senderEmail: cfg.SenderEmail,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type sender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type campaignRequest struct {
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	Sender      sender `json:"sender"`
	Type        string `json:"type"`
	HTMLContent string `json:"htmlContent"`
	Recipients  struct {
		ListIDs []int64 `json:"listIds"`
	} `json:"recipients"`
}

type transactionalRequest struct {
	Sender      sender      `json:"sender"`
	To          []recipient `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
	ReplyTo     *recipient  `json:"replyTo,omitempty"`
}

// CreateAndSendCampaign creates a classic campaign then triggers send-now.
// Failures are wrapped in domain.CampaignError naming the failed step.
func (c *Client) CreateAndSendCampaign(ctx context.Context, campaign domain.Campaign) (string, error) {
	if err := c.ready("create campaign"); err != nil {
		return "", &domain.CampaignError{Stage: domain.StageCreate, Err: err}
	}
	if campaign.ListID <= 0 {
		return "", &domain.CampaignError{Stage: domain.StageCreate, Err: &domain.ProviderError{
			Class:   domain.ErrProviderRejected,
			Op:      "create campaign",
			Message: "mailing list id is not configured",
		}}
	}

	payload := campaignRequest{
		Name:        campaign.Name,
		Subject:     campaign.Subject,
		Sender:      c.sender(),
		Type:        "classic",
		HTMLContent: campaign.HTML,
	}
	payload.Recipients.ListIDs = []int64{campaign.ListID}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.post(ctx, "create campaign", "/emailCampaigns", payload, &created); err != nil {
		return "", &domain.CampaignError{Stage: domain.StageCreate, Err: err}
	}
	if created.ID == 0 {
		return "", &domain.CampaignError{Stage: domain.StageCreate, Err: &domain.ProviderError{
			Class:   domain.ErrProviderServerError,
			Op:      "create campaign",
			Message: "response carried no campaign id",
		}}
	}

	campaignID := strconv.FormatInt(created.ID, 10)
	c.debug("campaign created", "campaign_id", campaignID)

	if err := c.post(ctx, "send campaign", "/emailCampaigns/"+campaignID+"/sendNow", nil, nil); err != nil {
		return "", &domain.CampaignError{Stage: domain.StageSend, CampaignID: campaignID, Err: err}
	}

	c.debug("campaign sent", "campaign_id", campaignID)
	return campaignID, nil
}

// SendTransactional sends a single email with no list semantics.
func (c *Client) SendTransactional(ctx context.Context, email domain.TransactionalEmail) (string, error) {
	if err := c.ready("send transactional"); err != nil {
		return "", err
	}
	if strings.TrimSpace(email.To) == "" {
		return "", &domain.ProviderError{Class: domain.ErrProviderRejected, Op: "send transactional", Message: "recipient is empty"}
	}

	payload := transactionalRequest{
		Sender:      c.sender(),
		To:          []recipient{{Email: email.To, Name: email.ToName}},
		Subject:     email.Subject,
		HTMLContent: email.HTML,
	}
	if email.ReplyTo != "" {
		name := email.ReplyToName
		if name == "" {
			name = email.ReplyTo
		}
		payload.ReplyTo = &recipient{Email: email.ReplyTo, Name: name}
	}

	var resp struct {
		MessageID string `json:"messageId"`
	}
	if err := c.post(ctx, "send transactional", "/smtp/email", payload, &resp); err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

func (c *Client) ready(op string) error {
	if c == nil || c.httpClient == nil {
		return &domain.ProviderError{Class: domain.ErrProviderUnavailable, Op: op, Message: "client is nil"}
	}
	if c.apiKey == "" {
		return &domain.ProviderError{Class: domain.ErrProviderRejected, Op: op, Message: "api key is not configured"}
	}
	return nil
}

func (c *Client) sender() sender {
	return sender{Name: c.senderName, Email: c.senderEmail}
}

func (c *Client) post(ctx context.Context, op, path string, payload any, v any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &domain.ProviderError{Class: domain.ErrProviderRejected, Op: op, Message: "marshal payload: " + err.Error()}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return &domain.ProviderError{Class: domain.ErrProviderRejected, Op: op, Message: "new request: " + err.Error()}
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// timeouts, refused connections and cancelled contexts alike
		return &domain.ProviderError{Class: domain.ErrProviderUnavailable, Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		class := domain.ErrProviderRejected
		if resp.StatusCode >= http.StatusInternalServerError {
			class = domain.ErrProviderServerError
		}
		return &domain.ProviderError{
			Class:      class,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
	}

	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &domain.ProviderError{
			Class:      domain.ErrProviderServerError,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    "decode response: " + err.Error(),
		}
	}
	return nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
