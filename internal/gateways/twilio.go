package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dakar-humidity/alert-gateway/internal/model"
	"github.com/dakar-humidity/alert-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const DefaultTwilioBaseURL = "https://api.twilio.com"

type TwilioConfig struct {
	AccountSID    string
	AuthToken     string
	FromNumber    string
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64 // <= 0 disables client-side throttling
}

// TwilioChannel sends SMS through the Twilio Messages API.
type TwilioChannel struct {
	config  TwilioConfig
	client  *fasthttp.Client
	limiter *rate.Limiter
	metrics *ProviderMetrics
}

type TwilioOption func(*TwilioChannel)

// WithHTTPClient replaces the default fasthttp client.
func WithHTTPClient(c *fasthttp.Client) TwilioOption {
	return func(t *TwilioChannel) { t.client = c }
}

func NewTwilioChannel(config TwilioConfig, opts ...TwilioOption) *TwilioChannel {
	if config.BaseURL == "" {
		config.BaseURL = DefaultTwilioBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}

	ch := &TwilioChannel{
		config: config,
		client: &fasthttp.Client{
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
		metrics: NewProviderMetrics(),
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

func (t *TwilioChannel) Type() model.NotificationType { return model.NotificationTypeSMS }

func (t *TwilioChannel) Validate() error {
	var missing []string
	if t.config.AccountSID == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}
	if t.config.AuthToken == "" {
		missing = append(missing, "TWILIO_AUTH_TOKEN")
	}
	if t.config.FromNumber == "" {
		missing = append(missing, "TWILIO_FROM_NUMBER")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", model.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

func (t *TwilioChannel) Stats() ProviderStats { return t.metrics.Snapshot("twilio") }

type twilioMessage struct {
	SID          string  `json:"sid"`
	Status       string  `json:"status"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// Send performs a single POST to the Messages resource. It never retries.
func (t *TwilioChannel) Send(ctx context.Context, body, recipient string) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	if err := t.limiter.Wait(ctx); err != nil {
		// Wait fails early when the deadline cannot cover the reservation
		if _, hasDeadline := ctx.Deadline(); hasDeadline || ctx.Err() != nil {
			return "", model.NewDeliveryTimeout(err)
		}
		return "", model.NewDeliveryError("rate limiter rejected request", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.config.BaseURL, t.config.AccountSID))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+basicAuth(t.config.AccountSID, t.config.AuthToken))

	args := req.PostArgs()
	args.Set("To", recipient)
	args.Set("From", t.config.FromNumber)
	args.Set("Body", body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.config.Timeout)
	}

	start := time.Now()
	err := t.client.DoDeadline(req, resp, deadline)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		t.metrics.RecordFailure(latency)
		if isTimeout(err) {
			return "", model.NewDeliveryTimeout(err)
		}
		return "", model.NewDeliveryError("request failed", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		t.metrics.RecordFailure(latency)
		return "", providerError(status, resp.Body())
	}

	var msg twilioMessage
	if err := json.Unmarshal(resp.Body(), &msg); err != nil {
		t.metrics.RecordFailure(latency)
		return "", model.NewDeliveryError("invalid provider response", err)
	}
	if msg.SID == "" {
		t.metrics.RecordFailure(latency)
		return "", model.NewDeliveryError("provider response missing sid", nil)
	}
	if msg.Status == "failed" || msg.Status == "undelivered" {
		t.metrics.RecordFailure(latency)
		detail := "message " + msg.Status
		if msg.ErrorMessage != nil {
			detail = *msg.ErrorMessage
		}
		de := model.NewDeliveryError(detail, nil)
		if msg.ErrorCode != nil {
			de.Code = strconv.Itoa(*msg.ErrorCode)
		}
		de.Status = status
		return "", de
	}

	t.metrics.RecordSuccess(latency)
	logger.Info("SMS accepted by provider", "sid", msg.SID, "status", msg.Status, "latency_ms", latency)

	return msg.SID, nil
}

func providerError(status int, body []byte) *model.DeliveryError {
	var te twilioError
	detail := fmt.Sprintf("unexpected status code: %d", status)
	if err := json.Unmarshal(body, &te); err == nil && te.Message != "" {
		detail = te.Message
	}
	de := model.NewDeliveryError(detail, nil)
	de.Status = status
	if te.Code != 0 {
		de.Code = strconv.Itoa(te.Code)
	}
	return de
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

func isTimeout(err error) bool {
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
