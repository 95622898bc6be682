package fasign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opendigger/pointgate/internal/domain/model"
)

// ProviderError classifies a failed provider call. Callers retry only when
// Retryable is set.
type ProviderError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("signing provider error (%s, status %d): %s", kind, e.StatusCode, e.Message)
}

// IsRetryable reports whether the error is a transient provider failure.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// Client exposes the signing provider operations needed by the withdrawal flow.
type Client interface {
	AccessToken(ctx context.Context) (string, error)
	SignWithTemplate(ctx context.Context, pii model.PIISnapshot, correlator string) (string, error)
}

// Config carries the provider credentials and timeouts.
type Config struct {
	APIHost    string
	AppID      string
	AppSecret  string
	TemplateID string
	Timeout    time.Duration
	TokenTTL   time.Duration
	TokenGrace time.Duration
}

// HTTPClient implements Client against the provider OpenAPI.
type HTTPClient struct {
	baseURL    *url.URL
	appID      string
	appSecret  string
	templateID string
	tokenTTL   time.Duration
	httpClient *http.Client
	tokens     *TokenCache
	logger     *slog.Logger
}

// NewHTTPClient creates a provider client with an empty token cache.
func NewHTTPClient(cfg Config, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(cfg.APIHost, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("provider url must be absolute")
	}
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, fmt.Errorf("provider app id and app secret must be set")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = 50 * time.Minute
	}
	return &HTTPClient{
		baseURL:    parsed,
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		templateID: cfg.TemplateID,
		tokenTTL:   tokenTTL,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     NewTokenCache(cfg.TokenGrace),
		logger:     logger,
	}, nil
}

// BuildSignedHeaders assembles the signed header set for one request.
// bizContent participates in the signature but is sent in the body.
func (c *HTTPClient) BuildSignedHeaders(accessToken, bizContent string, extra map[string]string) (map[string]string, error) {
	params := map[string]string{
		HeaderAppID:      c.appID,
		HeaderSignType:   SignType,
		HeaderTimestamp:  nowMillis(),
		HeaderNonce:      newNonce(),
		HeaderSubVersion: APISubVersion,
	}
	if accessToken != "" {
		params[HeaderAccessToken] = accessToken
	}
	if bizContent != "" {
		params[paramBizContent] = bizContent
	}
	for key, value := range extra {
		params[key] = value
	}

	signature, err := Sign(c.appSecret, params)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(params))
	for key, value := range params {
		if key == paramBizContent {
			continue
		}
		headers[key] = value
	}
	headers[HeaderSign] = signature
	return headers, nil
}

type tokenResponse struct {
	Data struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int64  `json:"expiresIn"`
	} `json:"data"`
}

// AccessToken returns a cached token, refreshing under a single-flight guard.
func (c *HTTPClient) AccessToken(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx, c.fetchToken)
}

func (c *HTTPClient) fetchToken(ctx context.Context) (string, time.Time, error) {
	headers, err := c.BuildSignedHeaders("", "", map[string]string{
		HeaderGrantType: "client_credential",
	})
	if err != nil {
		return "", time.Time{}, err
	}

	body, status, err := c.post(ctx, "service/get-access-token", headers, "")
	if err != nil {
		return "", time.Time{}, err
	}
	if status != http.StatusOK {
		return "", time.Time{}, classifyStatus(status, "token request rejected")
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Data.AccessToken == "" {
		return "", time.Time{}, &ProviderError{StatusCode: status, Message: "unexpected access token response", Retryable: false}
	}

	ttl := c.tokenTTL
	if resp.Data.ExpiresIn > 0 {
		ttl = time.Duration(resp.Data.ExpiresIn) * time.Second
	}
	return resp.Data.AccessToken, time.Now().Add(ttl), nil
}

type signTaskRequest struct {
	TemplateID       string `json:"templateId"`
	TransReferenceID string `json:"transReferenceId"`
	Signer           struct {
		Name     string `json:"name"`
		IDNumber string `json:"idNumber"`
		Phone    string `json:"phone"`
	} `json:"signer"`
	BankAccount struct {
		BankName string `json:"bankName"`
		Account  string `json:"account"`
	} `json:"bankAccount"`
}

type signTaskResponse struct {
	Data struct {
		SignTaskID string `json:"signTaskId"`
	} `json:"data"`
}

// SignWithTemplate initiates template-based signing for the PII snapshot,
// embedding the correlator so the callback can be routed back. Returns the
// provider's order reference.
func (c *HTTPClient) SignWithTemplate(ctx context.Context, pii model.PIISnapshot, correlator string) (string, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	var payload signTaskRequest
	payload.TemplateID = c.templateID
	payload.TransReferenceID = correlator
	payload.Signer.Name = pii.RealName
	payload.Signer.IDNumber = pii.IDNumber
	payload.Signer.Phone = pii.Phone
	payload.BankAccount.BankName = pii.BankName
	payload.BankAccount.Account = pii.BankAccount

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	bizContent := string(raw)

	headers, err := c.BuildSignedHeaders(token, bizContent, nil)
	if err != nil {
		return "", err
	}

	body, status, err := c.post(ctx, "sign-task/create-with-template", headers, bizContent)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		c.logger.Error("sign task rejected", slog.Int("status", status), slog.String("correlator", correlator))
		return "", classifyStatus(status, "sign task rejected")
	}

	var resp signTaskResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Data.SignTaskID == "" {
		return "", &ProviderError{StatusCode: status, Message: "unexpected sign task response", Retryable: false}
	}
	return resp.Data.SignTaskID, nil
}

func (c *HTTPClient) post(ctx context.Context, apiPath string, headers map[string]string, bizContent string) ([]byte, int, error) {
	endpoint := c.baseURL.JoinPath(apiPath)

	var reader io.Reader
	if bizContent != "" {
		form := url.Values{paramBizContent: {bizContent}}
		reader = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), reader)
	if err != nil {
		return nil, 0, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if bizContent != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// timeouts and transport failures are worth retrying
		return nil, 0, &ProviderError{Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &ProviderError{StatusCode: resp.StatusCode, Message: err.Error(), Retryable: true}
	}
	return body, resp.StatusCode, nil
}

func classifyStatus(status int, message string) *ProviderError {
	retryable := status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
	return &ProviderError{StatusCode: status, Message: message, Retryable: retryable}
}
