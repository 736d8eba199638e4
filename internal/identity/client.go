// Package identity implements the client for the external auth provider.
//
// The service never issues or stores credentials. Every request either comes
// back with a verified identity or is treated as unauthenticated. Provider
// outages are contained by a circuit breaker; profile lookups for the same
// user are collapsed with singleflight.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/Jzephh/whop-chat-app/internal/domain"
	"github.com/Jzephh/whop-chat-app/internal/metrics"
)

const (
	requestTimeout = 10 * time.Second

	breakerMaxFailures = 5
	breakerOpenFor     = 30 * time.Second
)

// VerificationCache stores successful credential checks. Optional (nil skips
// caching); failures inside the cache must degrade to a miss, not an error.
type VerificationCache interface {
	Get(ctx context.Context, credential string) *domain.Identity
	Put(ctx context.Context, credential string, identity *domain.Identity)
}

// Client talks to the auth provider over HTTP. Implements domain.IdentityVerifier.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group
	cache   VerificationCache
}

func NewClient(baseURL, apiKey string, cache VerificationCache) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "auth-provider",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		Timeout: breakerOpenFor,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Auth provider circuit state changed", "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
		breaker: breaker,
		cache:   cache,
	}
}

// verifyResult distinguishes a provider rejection from a provider failure so
// rejections do not trip the breaker.
type verifyResult struct {
	identity     *domain.Identity
	unauthorized bool
}

// Verify checks a credential with the provider. Returns domain.ErrUnauthorized
// for rejected or missing credentials; other errors mean the provider itself
// failed.
func (c *Client) Verify(ctx context.Context, credential string) (*domain.Identity, error) {
	if credential == "" {
		return nil, domain.ErrUnauthorized
	}

	if c.cache != nil {
		if identity := c.cache.Get(ctx, credential); identity != nil {
			return identity, nil
		}
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		return c.doVerify(ctx, credential)
	})
	metrics.IdentityVerifyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("auth provider verify failed: %w", err)
	}

	vr := result.(verifyResult)
	if vr.unauthorized {
		return nil, domain.ErrUnauthorized
	}

	if c.cache != nil {
		c.cache.Put(ctx, credential, vr.identity)
	}
	return vr.identity, nil
}

func (c *Client) doVerify(ctx context.Context, credential string) (verifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/verify", nil)
	if err != nil {
		return verifyResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return verifyResult{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var identity domain.Identity
		if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
			return verifyResult{}, fmt.Errorf("failed to decode verify response: %w", err)
		}
		if identity.UserID == "" {
			return verifyResult{unauthorized: true}, nil
		}
		return verifyResult{identity: &identity}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return verifyResult{unauthorized: true}, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return verifyResult{}, fmt.Errorf("auth provider returned status %d: %s", resp.StatusCode, body)
	}
}

// userResult distinguishes a missing user from a provider failure so a 404
// does not trip the breaker.
type userResult struct {
	profile  *domain.UserProfile
	notFound bool
}

// GetUser fetches display fields for a user. Returns domain.ErrUserNotFound
// when the provider has no such user. Concurrent lookups for the same user
// share one provider round trip.
func (c *Client) GetUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	result, err, _ := c.group.Do(userID, func() (any, error) {
		return c.breaker.Execute(func() (any, error) {
			return c.doGetUser(ctx, userID)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("auth provider user lookup failed: %w", err)
	}

	ur := result.(userResult)
	if ur.notFound {
		return nil, domain.ErrUserNotFound
	}
	return ur.profile, nil
}

func (c *Client) doGetUser(ctx context.Context, userID string) (userResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/users/"+userID, nil)
	if err != nil {
		return userResult{}, err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return userResult{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var profile domain.UserProfile
		if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
			return userResult{}, fmt.Errorf("failed to decode user response: %w", err)
		}
		return userResult{profile: &profile}, nil
	case resp.StatusCode == http.StatusNotFound:
		return userResult{notFound: true}, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return userResult{}, fmt.Errorf("auth provider returned status %d: %s", resp.StatusCode, body)
	}
}
