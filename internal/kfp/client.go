package kfp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kapu/kfp-startpage/internal/constants"
	"github.com/kapu/kfp-startpage/internal/domain"
	"github.com/kapu/kfp-startpage/internal/util"
	"github.com/kapu/kfp-startpage/pkg/errors"
	"go.uber.org/zap"
)

// PipelineLister is the listing capability the resolver depends on.
type PipelineLister interface {
	ListPipelines(ctx context.Context, req ListPipelinesRequest) (*domain.PipelineList, error)
}

type ListPipelinesRequest struct {
	Namespace string
	PageToken string
	PageSize  int
	SortBy    string
	Filter    *domain.Filter
}

type ClientConfig struct {
	BaseURL   string
	Namespace string
	AuthToken string
	Timeout   time.Duration
}

// Client talks to the Pipelines v2beta1 REST API.
type Client struct {
	baseURL    string
	namespace  string
	authToken  string
	httpClient *http.Client
	breaker    *util.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.APIConfig.DefaultTimeout
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		namespace: cfg.Namespace,
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// WithCircuitBreaker guards ListPipelines with cb. Healthz is never guarded so
// it can be used as the breaker's recovery probe.
func (c *Client) WithCircuitBreaker(cb *util.CircuitBreaker) *Client {
	c.breaker = cb
	return c
}

func (c *Client) CircuitStatus() *util.CircuitBreakerStatus {
	if c.breaker == nil {
		return nil
	}
	status := c.breaker.GetStatus()
	return &status
}

func (c *Client) ListPipelines(ctx context.Context, req ListPipelinesRequest) (*domain.PipelineList, error) {
	params := url.Values{}
	namespace := req.Namespace
	if namespace == "" {
		namespace = c.namespace
	}
	if namespace != "" {
		params.Set("namespace", namespace)
	}
	if req.PageToken != "" {
		params.Set("page_token", req.PageToken)
	}
	if req.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.SortBy != "" {
		params.Set("sort_by", req.SortBy)
	}
	if req.Filter != nil {
		encoded, err := EncodeFilter(*req.Filter)
		if err != nil {
			return nil, errors.NewAPIError("failed to encode filter", 400, nil).WithCause(err)
		}
		params.Set("filter", encoded)
	}

	if c.breaker != nil && !c.breaker.CanExecute() {
		return nil, errors.NewAPIError("pipelines API circuit open", 503, map[string]any{
			"path": constants.APIConfig.PipelinesPath,
		})
	}

	var list domain.PipelineList
	err := c.doRequest(ctx, http.MethodGet, constants.APIConfig.PipelinesPath, params, &list)
	c.record(err)
	if err != nil {
		c.logger.Debug("List pipelines failed", zap.Error(err))
		return nil, err
	}
	return &list, nil
}

// Healthz reports whether the API server answers its health endpoint.
func (c *Client) Healthz(ctx context.Context) bool {
	return c.doRequest(ctx, http.MethodGet, constants.APIConfig.HealthzPath, nil, nil) == nil
}

// record feeds the breaker. Only transport failures and 5xx responses count;
// a 4xx means the backend is up.
func (c *Client) record(err error) {
	if c.breaker == nil {
		return
	}
	if err == nil {
		c.breaker.RecordSuccess()
		return
	}
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		c.breaker.RecordSuccess()
		return
	}
	c.breaker.RecordFailure()
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, respBody any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return errors.NewAPIError("failed to create request", 500, map[string]any{
			"url": reqURL,
		}).WithCause(err)
	}

	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewAPIError("request failed", 502, map[string]any{
			"url": reqURL,
		}).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, int64(constants.APIConfig.MaxErrorBodyLen)))
		return errors.NewAPIError(
			fmt.Sprintf("pipelines API error: %s", resp.Status),
			resp.StatusCode,
			map[string]any{
				"url":  reqURL,
				"body": string(bodyBytes),
			},
		)
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return errors.NewAPIError("failed to decode response", 502, map[string]any{
				"url": reqURL,
			}).WithCause(err)
		}
	}

	return nil
}
