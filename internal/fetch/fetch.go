/*
Package fetch is the outbound HTTP client behind network-touching rule
expressions. Results are not memoized here; callers that want persistence
go through the cache with their own category.
*/
package fetch

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/urlwash/urlwash/internal/types"
)

// ErrTooManyRedirects indicates a redirect chain exceeded the configured
// limit.
var ErrTooManyRedirects = errors.New("too many redirects")

// maxBodySize caps response bodies read into memory.
const maxBodySize = 10 << 20

// Client issues GET requests with the run's HTTP settings.
type Client struct {
	http      *http.Client
	userAgent string
}

// New builds a client from the run's HTTP configuration.
func New(cfg types.HTTPConfig) *Client {
	limit := cfg.MaxRedirects
	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= limit {
					return ErrTooManyRedirects
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
	}
}

func (c *Client) get(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	log.Debug().Str("url", url).Msg("outbound request")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Get fetches the URL and returns the response body. Non-2xx statuses are
// errors.
func (c *Client) Get(url string) (string, error) {
	resp, err := c.get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FinalURL fetches the URL, follows redirects, and returns where the chain
// landed. The body is discarded.
func (c *Client) FinalURL(url string) (string, error) {
	resp, err := c.get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	final := resp.Request.URL.String()
	if final != url {
		log.Debug().Str("from", url).Str("to", final).Msg("followed redirect chain")
	}
	return final, nil
}
