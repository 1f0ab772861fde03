package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qnit18/genzf/internal/core/domain"
	"github.com/qnit18/genzf/internal/core/port"
	"github.com/qnit18/genzf/internal/resilience"
)

// errTransient marks failures worth retrying: network errors and 5xx
// responses from the identity provider.
var errTransient = errors.New("transient identity provider failure")

// AuthServiceClient calls the identity provider on behalf of downstream
// services. Every call runs through the circuit breaker, which wraps the
// retry loop so one logical operation counts as a single outcome in the
// breaker's sliding window however many attempts it took.
type AuthServiceClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	retry      *resilience.Retry
	logger     *zap.Logger
}

// Config carries the client's connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewAuthServiceClient constructs the resilient identity provider client.
// The breaker instance is owned by the caller and may be shared across
// call sites; this client never reaches for a global registry.
func NewAuthServiceClient(cfg Config, breaker *resilience.CircuitBreaker, retry *resilience.Retry, logger *zap.Logger) (*AuthServiceClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("auth service base url is required")
	}
	if breaker == nil {
		return nil, fmt.Errorf("circuit breaker is required")
	}
	if retry == nil {
		return nil, fmt.Errorf("retry policy is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &AuthServiceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		retry:      retry,
		logger:     logger,
	}, nil
}

// Retryable classifies failures worth another attempt inside the retry
// loop. Application errors such as an unknown user pass through untouched.
func Retryable(err error) bool {
	return errors.Is(err, errTransient)
}

// GetUser fetches the full user record for the given id.
func (c *AuthServiceClient) GetUser(ctx context.Context, id string) (*domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrInvalidRequest)
	}

	var user *domain.User

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retry.Do(ctx, func(ctx context.Context) error {
			fetched, err := c.fetchUser(ctx, id)
			if err != nil {
				return err
			}
			user = fetched
			return nil
		})
	})
	if err != nil {
		return nil, c.translate(id, err)
	}

	return user, nil
}

// ValidateUser reports whether the user exists, swallowing NotFound.
func (c *AuthServiceClient) ValidateUser(ctx context.Context, id string) (bool, error) {
	if _, err := c.GetUser(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *AuthServiceClient) fetchUser(ctx context.Context, id string) (*domain.User, error) {
	endpoint := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call auth service: %v: %w", err, errTransient)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Decoded below.
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("auth service returned %d: %w", resp.StatusCode, errTransient)
	default:
		return nil, fmt.Errorf("auth service returned unexpected status %d", resp.StatusCode)
	}

	var payload userResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}

	return payload.toDomain(), nil
}

// translate maps the final failure onto the shared taxonomy. NotFound and
// other application errors pass through unchanged; open-breaker rejections
// and exhausted transient failures surface as Unavailable.
func (c *AuthServiceClient) translate(id string, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		return err
	case errors.Is(err, domain.ErrNotFound):
		return err
	case errors.Is(err, errTransient):
		c.logger.Error("auth service unavailable after retries",
			zap.String("user_id", id),
			zap.Error(err),
		)
		return fmt.Errorf("auth service exhausted retries: %w", domain.ErrUnavailable)
	default:
		return err
	}
}

type userResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func (r userResponse) toDomain() *domain.User {
	return &domain.User{
		ID:          r.ID,
		Username:    r.Username,
		Email:       r.Email,
		Roles:       r.Roles,
		Permissions: r.Permissions,
	}
}

var _ port.IdentityClient = (*AuthServiceClient)(nil)
