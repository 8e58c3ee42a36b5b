package api

import (
	"context"
	"fmt"
	"time"

	"recycling-tracker/internal/analytics"
	"recycling-tracker/internal/constants"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// PolicyClient fetches impact policy documents (conversion factors and
// milestone tiers) published over HTTP.
type PolicyClient struct {
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewPolicyClient(logger zerolog.Logger) *PolicyClient {
	return &PolicyClient{
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         constants.PolicyFetchTimeout,
			WriteTimeout:        constants.PolicyFetchTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *PolicyClient) FetchPolicy(ctx context.Context, url string) (analytics.Policy, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.PolicyFetchTimeout)
	defer cancel()

	body, err := doRequest(ctx, c.client, url)
	if err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("failed to fetch impact policy")
		return analytics.Policy{}, fmt.Errorf("failed to fetch impact policy: %w", err)
	}

	policy, err := analytics.ParsePolicy(body)
	if err != nil {
		return analytics.Policy{}, err
	}

	c.logger.Info().
		Str("url", url).
		Int("factors", len(policy.Factors)).
		Int("milestones", len(policy.Milestones)).
		Msg("impact policy fetched")
	return policy, nil
}

func doRequest(ctx context.Context, client *fasthttp.Client, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/yaml, application/json")

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}

	// the body buffer is released with resp
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
