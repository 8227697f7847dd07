// Package roster consumes the enrollment collaborator: who belongs to a
// scope and which evaluations it defines. Responses are canonicalized through
// the normalization layer before they reach the pipeline.
package roster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"grade-import-service/internal/config"
	"grade-import-service/internal/logger"
	"grade-import-service/internal/model"
	"grade-import-service/internal/normalize"

	"github.com/rs/zerolog"
)

// Provider resolves a scope's roster and evaluation definitions.
type Provider interface {
	Students(ctx context.Context, scope model.Scope) ([]model.Student, error)
	Evaluations(ctx context.Context, scope model.Scope) ([]model.Evaluation, error)
}

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	auth       *AuthManager
	log        zerolog.Logger
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RosterAPI.Timeout,
		},
		auth: NewAuthManager(cfg),
		log:  logger.Get(),
	}
}

func (c *Client) Students(ctx context.Context, scope model.Scope) ([]model.Student, error) {
	payload, err := c.get(ctx, c.cfg.RosterAPI.StudentsEndpoint, scope)
	if err != nil {
		return nil, err
	}
	return normalize.Students(payload)
}

func (c *Client) Evaluations(ctx context.Context, scope model.Scope) ([]model.Evaluation, error) {
	payload, err := c.get(ctx, c.cfg.RosterAPI.EvaluationsEndpoint, scope)
	if err != nil {
		return nil, err
	}
	return normalize.Evaluations(payload)
}

func (c *Client) get(ctx context.Context, endpoint string, scope model.Scope) ([]byte, error) {
	token, err := c.auth.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth token: %w", err)
	}

	query := url.Values{}
	query.Set("period_id", strconv.FormatInt(scope.PeriodID, 10))
	query.Set("subject_id", strconv.FormatInt(scope.SubjectID, 10))
	query.Set("course_id", strconv.FormatInt(scope.CourseID, 10))
	if scope.ParallelID != nil {
		query.Set("parallel_id", strconv.FormatInt(*scope.ParallelID, 10))
	}

	reqURL := c.cfg.RosterAPI.BaseURL + endpoint + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster response: %w", err)
	}

	c.log.Debug().Str("endpoint", endpoint).Int("bytes", len(body)).Msg("Roster lookup completed")
	return body, nil
}
