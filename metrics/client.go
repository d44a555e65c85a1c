// Package metrics appends OpenAlex author metrics (h-index, i10-index, works
// and citation counts) to a roster file.
package metrics

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	segjson "github.com/segmentio/encoding/json"
	"github.com/sethgrid/pester"

	vetmic "github.com/ResonanceResearch/WCVM-VetMic"
	"github.com/ResonanceResearch/WCVM-VetMic/config"
	"github.com/ResonanceResearch/WCVM-VetMic/ident"
	"github.com/ResonanceResearch/WCVM-VetMic/schema/openalex"
)

// ErrEmptyID marks an identifier that normalized to nothing; callers skip
// the row.
var ErrEmptyID = errors.New("empty author id")

// Client looks up single author records. Retries with exponential backoff on
// 429/5xx and transport errors are handled by the underlying pester client.
type Client struct {
	HTTP      harvesterDoer
	BaseURL   string // override of the canonical API root, for tests
	Mailto    string
	UserAgent string
}

type harvesterDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// NewClient builds a client from the configuration.
func NewClient(cfg config.Config) *Client {
	p := pester.New()
	p.MaxRetries = cfg.MaxRetries
	p.RetryOnHTTP429 = true
	p.Timeout = cfg.Timeout
	base := cfg.BackoffBase
	p.Backoff = func(retry int) time.Duration {
		return time.Duration(math.Pow(base, float64(retry-1)) * float64(time.Second))
	}
	return &Client{
		HTTP:      p,
		BaseURL:   cfg.BaseURL,
		Mailto:    cfg.Mailto,
		UserAgent: vetmic.UserAgent("wcvm-metrics", cfg.Mailto),
	}
}

// FetchAuthor fetches the author record behind any accepted id token.
func (c *Client) FetchAuthor(token string) (*openalex.Author, error) {
	endpoint := ident.AuthorEndpoint(token)
	if endpoint == "" {
		return nil, ErrEmptyID
	}
	return c.get(endpoint)
}

// FetchByORCID fetches an author record via the /authors/orcid:<id> path
// form.
func (c *Client) FetchByORCID(orcid string) (*openalex.Author, error) {
	endpoint := ident.OrcidEndpoint(orcid)
	if endpoint == "" {
		return nil, ErrEmptyID
	}
	return c.get(endpoint)
}

func (c *Client) get(endpoint string) (*openalex.Author, error) {
	if c.BaseURL != "" && c.BaseURL != ident.APIBase {
		endpoint = c.BaseURL + strings.TrimPrefix(endpoint, ident.APIBase)
	}
	vs := url.Values{}
	vs.Set("select", openalex.AuthorSelect)
	if c.Mailto != "" {
		vs.Set("mailto", c.Mailto)
	}
	req, err := http.NewRequest("GET", fmt.Sprintf("%s?%s", endpoint, vs.Encode()), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metrics: HTTP %d from %s", resp.StatusCode, endpoint)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var author openalex.Author
	if err := segjson.Unmarshal(body, &author); err != nil {
		return nil, fmt.Errorf("metrics: decode %s: %w", endpoint, err)
	}
	return &author, nil
}
