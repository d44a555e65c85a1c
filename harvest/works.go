// Package harvest fetches the full works list of an author from the OpenAlex
// API via cursor pagination, with bounded retry and exponential backoff on
// transient failures.
package harvest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/jinzhu/now"
	segjson "github.com/segmentio/encoding/json"
	"github.com/sirupsen/logrus"

	"github.com/ResonanceResearch/WCVM-VetMic/config"
	"github.com/ResonanceResearch/WCVM-VetMic/ident"
	"github.com/ResonanceResearch/WCVM-VetMic/schema/openalex"
)

// Doer abstracts https://pkg.go.dev/net/http#Client.Do.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// ErrRetriesExceeded signals that the retry bound was hit for one page; the
// fetch for the current author stops, pages collected so far are kept.
var ErrRetriesExceeded = errors.New("max retries exceeded")

// retriable is the transient status class, retried with backoff.
var retriable = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// WorksHarvester pages through the works of one author at a time. Strictly
// sequential; the zero-value Sleep falls back to time.Sleep.
type WorksHarvester struct {
	Client      Doer
	Endpoint    string
	Mailto      string
	UserAgent   string
	PerPage     int
	MaxRetries  int
	BackoffBase float64
	Sleep       func(time.Duration)
	Archive     *PageArchive // optional raw page mirror
}

// New sets up a harvester from the configuration.
func New(cfg config.Config, userAgent string) *WorksHarvester {
	return &WorksHarvester{
		Client:      &http.Client{Timeout: cfg.Timeout},
		Endpoint:    cfg.WorksURL,
		Mailto:      cfg.Mailto,
		UserAgent:   userAgent,
		PerPage:     cfg.PerPage,
		MaxRetries:  cfg.MaxRetries,
		BackoffBase: cfg.BackoffBase,
	}
}

// Backoff returns the sleep before retry number attempt (zero based), an
// attempt-indexed exponent over the base.
func Backoff(base float64, attempt int) time.Duration {
	return time.Duration(math.Pow(base, float64(attempt)) * float64(time.Second))
}

// FetchAuthorWorks returns all raw work records matching the author URI. A
// positive yearsBack additionally applies a server-side publication date
// floor at January 1 of the first year inside the window; zero fetches the
// lifetime list.
//
// Pages already fetched are returned even when the fetch ends in an error,
// so a flaky tail page does not discard an author's record set.
func (h *WorksHarvester) FetchAuthorWorks(authorURI string, yearsBack int) ([]json.RawMessage, error) {
	filter := "author.id:" + authorURI
	if yearsBack > 0 {
		floor := now.With(time.Now().AddDate(-(yearsBack - 1), 0, 0)).BeginningOfYear()
		filter += ",from_publication_date:" + floor.Format("2006-01-02")
	}
	vs := url.Values{}
	vs.Set("filter", filter)
	vs.Set("per-page", fmt.Sprintf("%d", h.PerPage))
	vs.Set("cursor", "*")
	if h.Mailto != "" {
		vs.Set("mailto", h.Mailto)
	}
	var (
		works   []json.RawMessage
		retries int
		pages   int
		archive = h.openArchive(authorURI)
	)
	if archive != nil {
		defer archive.Close()
	}
	logrus.Infof("openalex: fetch for %s (filter=%s)", authorURI, filter)
	for {
		body, status, err := h.getPage(vs)
		switch {
		case err != nil || retriable[status]:
			if err != nil {
				logrus.Warnf("openalex: request failed at cursor %q: %v", vs.Get("cursor"), err)
			} else {
				logrus.Warnf("openalex: HTTP %d at cursor %q; retry %d/%d",
					status, vs.Get("cursor"), retries+1, h.MaxRetries)
			}
			if retries >= h.MaxRetries {
				logrus.Error("openalex: max retries exceeded; aborting fetch for this author")
				return works, fmt.Errorf("fetch %s: %w", authorURI, ErrRetriesExceeded)
			}
			h.sleep(Backoff(h.BackoffBase, retries))
			retries++
			continue
		case status != http.StatusOK:
			// non-retriable client errors end the fetch for this author
			return works, fmt.Errorf("fetch %s: HTTP %d", authorURI, status)
		}
		var wr openalex.WorksResponse
		if err := segjson.Unmarshal(body, &wr); err != nil {
			return works, fmt.Errorf("fetch %s: decode: %w", authorURI, err)
		}
		if archive != nil {
			if err := archive.WritePage(body); err != nil {
				logrus.Warnf("openalex: page archive write failed: %v", err)
				archive = nil
			}
		}
		works = append(works, wr.Results...)
		pages++
		logrus.Debugf("openalex: fetched %d results at cursor %q (total %d)",
			len(wr.Results), vs.Get("cursor"), len(works))
		if wr.IsLast() {
			break
		}
		vs.Set("cursor", wr.Meta.NextCursor)
		retries = 0 // backoff is per page attempt, not cumulative
	}
	logrus.Infof("openalex: fetched %d works over %d pages for %s", len(works), pages, authorURI)
	return works, nil
}

// getPage performs one GET returning the body and status. A transport level
// error yields err != nil and is treated as transient by the caller.
func (h *WorksHarvester) getPage(vs url.Values) ([]byte, int, error) {
	link := fmt.Sprintf("%s?%s", h.Endpoint, vs.Encode())
	req, err := http.NewRequest("GET", link, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", h.UserAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func (h *WorksHarvester) sleep(d time.Duration) {
	if h.Sleep != nil {
		h.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (h *WorksHarvester) openArchive(authorURI string) *PageWriter {
	if h.Archive == nil {
		return nil
	}
	pw, err := h.Archive.Open(ident.TailSegment(authorURI))
	if err != nil {
		logrus.Warnf("openalex: cannot open page archive: %v", err)
		return nil
	}
	return pw
}
