package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/docsnatch/docsnatch/internal/cache"
	"github.com/docsnatch/docsnatch/internal/domain"
	"github.com/docsnatch/docsnatch/internal/utils"
)

// Client is a stealth HTTP client using tls-client. Every failure mode,
// transport errors and non-200 statuses alike, comes back as a *FetchError
// wrapping ErrUnavailable so callers can treat the target as absent and
// move on.
type Client struct {
	tlsClient    tls_client.HttpClient
	userAgent    string
	cache        domain.Cache
	cacheEnabled bool
	cacheTTL     time.Duration
	logger       *utils.Logger
}

// ClientOptions configures a Client
type ClientOptions struct {
	Timeout     time.Duration
	EnableCache bool
	CacheTTL    time.Duration
	Cache       domain.Cache
	UserAgent   string
	ProxyURL    string
	Logger      *utils.Logger
}

// DefaultClientOptions returns the starting options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:     60 * time.Second,
		EnableCache: false,
		CacheTTL:    15 * time.Minute,
		UserAgent:   "",
		ProxyURL:    "",
	}
}

// NewClient creates a new stealth HTTP client. Redirects are followed:
// export endpoints bounce through googleusercontent.com before the body
// arrives.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	tlsOpts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(opts.Timeout.Seconds())),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithRandomTLSExtensionOrder(),
	}

	if opts.ProxyURL != "" {
		tlsOpts = append(tlsOpts, tls_client.WithProxyUrl(opts.ProxyURL))
	}

	tlsClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), tlsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}

	return &Client{
		tlsClient:    tlsClient,
		userAgent:    opts.UserAgent,
		cache:        opts.Cache,
		cacheEnabled: opts.EnableCache,
		cacheTTL:     opts.CacheTTL,
		logger:       opts.Logger.WithComponent("fetcher"),
	}, nil
}

// Get fetches a URL with the standard browser headers
func (c *Client) Get(ctx context.Context, url string) (*domain.Response, error) {
	return c.GetWithHeaders(ctx, url, nil)
}

// GetWithHeaders fetches content with custom headers. One attempt only; a
// failed fetch is final for the current request.
func (c *Client) GetWithHeaders(ctx context.Context, url string, extraHeaders map[string]string) (*domain.Response, error) {
	logger := c.logger.WithURL(url)

	if c.cacheEnabled && c.cache != nil {
		cached, err := c.getFromCache(ctx, url)
		if err == nil && cached != nil {
			logger.Debug().Msg("cache hit")
			return cached, nil
		}
	}

	resp, err := c.doRequest(ctx, url, extraHeaders)
	if err != nil {
		logger.Debug().Err(err).Msg("fetch failed")
		return nil, err
	}

	// Keep the body for next time
	if c.cacheEnabled && c.cache != nil {
		_ = c.saveToCache(ctx, url, resp)
	}

	return resp, nil
}

// doRequest performs one GET against the target
func (c *Client) doRequest(ctx context.Context, targetURL string, extraHeaders map[string]string) (*domain.Response, error) {
	// tls-client takes its own request type
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Browser headers first, caller overrides after
	headers := StealthHeaders(c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.tlsClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{
			URL: targetURL,
			Err: fmt.Errorf("%w: %v", domain.ErrUnavailable, err),
		}
	}
	defer resp.Body.Close()

	// Anything but 200 counts as absent. Redirects were already followed
	// by the client, so a 3xx here means the chain went nowhere useful.
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &domain.FetchError{
			URL:        targetURL,
			StatusCode: resp.StatusCode,
			Err:        domain.ErrUnavailable,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{
			URL: targetURL,
			Err: fmt.Errorf("%w: reading body: %v", domain.ErrUnavailable, err),
		}
	}

	// Callers see net/http types, not fhttp
	httpHeaders := make(http.Header)
	for k, v := range resp.Header {
		httpHeaders[k] = v
	}

	return &domain.Response{
		StatusCode:  resp.StatusCode,
		Body:        body,
		Headers:     httpHeaders,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         targetURL,
		FetchedAt:   time.Now(),
		FromCache:   false,
	}, nil
}

// Close releases client resources. The underlying TLS client holds none
// that outlive its idle connections.
func (c *Client) Close() error {
	return nil
}

// getFromCache rebuilds a Response from a stored entry
func (c *Client) getFromCache(ctx context.Context, url string) (*domain.Response, error) {
	if c.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	data, err := c.cache.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	var entry cache.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt entry, drop it and refetch
		_ = c.cache.Delete(ctx, url)
		return nil, domain.ErrCacheMiss
	}

	return &domain.Response{
		StatusCode:  http.StatusOK,
		Body:        entry.Content,
		ContentType: entry.ContentType,
		URL:         entry.URL,
		FetchedAt:   entry.FetchedAt,
		FromCache:   true,
	}, nil
}

// saveToCache stores the body and content type under the URL key
func (c *Client) saveToCache(ctx context.Context, url string, resp *domain.Response) error {
	if c.cache == nil {
		return nil
	}

	entry := cache.Entry{
		URL:         url,
		Content:     resp.Body,
		ContentType: resp.ContentType,
		FetchedAt:   resp.FetchedAt,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return c.cache.Set(ctx, url, data, c.cacheTTL)
}

var _ domain.Fetcher = (*Client)(nil)
