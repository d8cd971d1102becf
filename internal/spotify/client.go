// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/justestif/moodtune/internal/metrics"
)

var (
	// ErrUnauthorized is returned when Spotify rejects the access token.
	ErrUnauthorized = errors.New("spotify rejected the access token")

	// ErrRequestFailed is returned for any other failed catalog call.
	ErrRequestFailed = errors.New("spotify request failed")

	// ErrCreateFailed is returned when the playlist itself cannot be created.
	ErrCreateFailed = errors.New("creating playlist failed")

	// ErrProfileFailed is returned when the user profile cannot be fetched.
	ErrProfileFailed = errors.New("fetching user profile failed")

	// ErrInvalidTrackURI is returned for a URI that does not name a track.
	ErrInvalidTrackURI = errors.New("invalid track URI")
)

// Catalog creates per-user clients. It owns the transport settings shared by
// every request: base URL, timeout and the outbound rate limit.
type Catalog struct {
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewCatalog creates a Catalog. baseURL must end with a slash. timeout bounds
// each catalog call including any retries. rps bounds the number of Web API
// calls per second across all users.
func NewCatalog(baseURL string, timeout time.Duration, rps float64) *Catalog {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Catalog{
		baseURL: baseURL,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Client returns a client that calls the Web API with accessToken.
func (c *Catalog) Client(accessToken string) *Client {
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: accessToken,
				TokenType:   "Bearer",
			}),
		},
	}

	api := spotify.New(httpClient,
		spotify.WithBaseURL(c.baseURL),
		spotify.WithRetry(true),
	)
	return &Client{api: api, limiter: c.limiter, timeout: c.timeout}
}

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api     *spotify.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// CurrentUser returns the profile of the token's owner.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	err := c.call(ctx, "current_user", func(ctx context.Context) error {
		u, err := c.api.CurrentUser(ctx)
		if err != nil {
			return err
		}
		user = User{ID: u.ID, Name: u.DisplayName}
		return nil
	})
	if err != nil {
		return User{}, classify(err, ErrProfileFailed)
	}
	return user, nil
}

// call waits for the rate limiter, runs fn and records the outcome. The
// limiter wait and fn share one deadline of c.timeout, which also bounds the
// retries the Web API client makes on 429 and 5xx answers.
func (c *Client) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	err := c.limiter.Wait(ctx)
	if err == nil {
		err = fn(ctx)
	}
	metrics.CatalogCalls.WithLabelValues(operation, metrics.Outcome(err)).Inc()
	return err
}

// classify maps a Web API error onto ErrUnauthorized when Spotify answered
// 401 and onto fallback otherwise.
func classify(err error, fallback error) error {
	if statusOf(err) == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

func statusOf(err error) int {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Status
	}
	return 0
}
