// Package pokeapi fetches Pokémon records from the public PokeAPI and
// normalizes them into investigation.Record values.
package pokeapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pokemon-investigator/investigation"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://pokeapi.co/api/v2/pokemon"
	DefaultUserAgent = "pokemon-investigator"

	// Fallback for callers that pass a context without a deadline.
	defaultHTTPTimeout = 2 * time.Minute
	maxBodyBytes       = 8 << 20
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRateLimit paces outgoing requests of this client. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch GETs <baseURL>/<lower(name)> and validates the payload. Errors are
// *FetchError so retry policies can classify them.
func (c *Client) Fetch(ctx context.Context, name string) (investigation.Record, error) {
	u := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(strings.ToLower(name)))

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return investigation.Record{}, transportError(name, ctxErr)
			}
			// Wait fails early when the deadline would pass before a token frees up.
			return investigation.Record{}, &FetchError{Name: name, Kind: KindTimeout, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return investigation.Record{}, &FetchError{Name: name, Kind: KindValidation, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return investigation.Record{}, transportError(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return investigation.Record{}, &FetchError{Name: name, Kind: KindStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return investigation.Record{}, transportError(name, err)
	}
	if len(body) > maxBodyBytes {
		return investigation.Record{}, &FetchError{Name: name, Kind: KindValidation, Err: fmt.Errorf("response body exceeds %d bytes", maxBodyBytes)}
	}

	rec, err := decodeRecord(body)
	if err != nil {
		return investigation.Record{}, &FetchError{Name: name, Kind: KindValidation, Err: err}
	}
	log.Debug().Str("name", name).Int("id", rec.ID).Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("pokeapi: fetched record")
	return rec, nil
}

func transportError(name string, err error) *FetchError {
	if errors.Is(err, context.Canceled) {
		return &FetchError{Name: name, Kind: KindAborted, Err: err}
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &FetchError{Name: name, Kind: KindTimeout, Err: err}
	}
	return &FetchError{Name: name, Kind: KindNetwork, Err: err}
}
