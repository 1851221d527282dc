package prisonapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jakechorley/keyworker-allocation/internal/config"
	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

// Client reads keyworker staff details from the prison API
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates a prison API client that authenticates with the client credentials grant.
// Tokens are fetched on first use and refreshed when they expire.
func NewClient(ctx context.Context, cfg *config.PrisonAPIConfig, logger *zap.Logger) *Client {
	credentials := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	httpClient := credentials.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	return newClient(httpClient, cfg.BaseURL, logger)
}

func newClient(httpClient *http.Client, baseURL string, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// staffMember is the prison API's keyworker representation
type staffMember struct {
	StaffID               int64  `json:"staffId"`
	FirstName             string `json:"firstName"`
	LastName              string `json:"lastName"`
	Capacity              int    `json:"capacity"`
	Status                string `json:"status"`
	AutoAllocationAllowed bool   `json:"autoAllocationAllowed"`
}

func (s staffMember) toModel() model.Keyworker {
	return model.Keyworker{
		StaffID:               s.StaffID,
		FirstName:             s.FirstName,
		LastName:              s.LastName,
		Capacity:              s.Capacity,
		Status:                model.KeyworkerStatus(s.Status),
		AutoAllocationAllowed: s.AutoAllocationAllowed,
	}
}

// AvailableKeyworkers lists the keyworkers registered at a prison.
// Allocation counts are not populated; they come from the local allocation store.
func (c *Client) AvailableKeyworkers(ctx context.Context, prisonID string) ([]model.Keyworker, error) {
	var members []staffMember
	path := fmt.Sprintf("/key-worker/%s/members", url.PathEscape(prisonID))
	if err := c.get(ctx, path, &members); err != nil {
		return nil, fmt.Errorf("failed to list keyworkers for prison %s: %w", prisonID, err)
	}

	keyworkers := make([]model.Keyworker, 0, len(members))
	for _, member := range members {
		keyworkers = append(keyworkers, member.toModel())
	}

	c.logger.Debug("Fetched keyworkers from prison API",
		zap.String("prison_id", prisonID),
		zap.Int("count", len(keyworkers)))

	return keyworkers, nil
}

// KeyworkerDetail fetches a single keyworker
func (c *Client) KeyworkerDetail(ctx context.Context, prisonID string, staffID int64) (model.Keyworker, error) {
	var member staffMember
	path := fmt.Sprintf("/key-worker/%s/members/%d", url.PathEscape(prisonID), staffID)
	if err := c.get(ctx, path, &member); err != nil {
		return model.Keyworker{}, fmt.Errorf("failed to fetch keyworker %d in prison %s: %w", staffID, prisonID, err)
	}
	return member.toModel(), nil
}

// StatusError is returned when the prison API responds with a non-2xx status
type StatusError struct {
	StatusCode int
	Path       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prison API returned %d for %s", e.StatusCode, e.Path)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Path: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
