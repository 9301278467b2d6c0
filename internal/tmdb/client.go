// Package tmdb is a small client for The Movie Database v3 API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/telecopter/core/logger"
	"github.com/m3rciful/telecopter/core/telegram/netutil"
)

const component = "tmdb"

const (
	MediaMovie = "movie"
	MediaTV    = "tv"
)

const noOverview = "no synopsis available."

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("tmdb: api key not configured")

// ErrInvalidMediaType is returned for media types other than movie and tv.
var ErrInvalidMediaType = errors.New("tmdb: invalid media type")

// Result is one search hit.
type Result struct {
	TMDBID    int64  `json:"tmdb_id"`
	Title     string `json:"title"`
	Year      *int   `json:"year,omitempty"`
	MediaType string `json:"media_type"`
	Overview  string `json:"overview"`
	PosterURL string `json:"poster_url,omitempty"`
}

// Details extends Result with the fields of the details endpoint.
type Details struct {
	Result
	IMDBID  string   `json:"imdb_id,omitempty"`
	Genres  []string `json:"genres,omitempty"`
	Status  string   `json:"status,omitempty"`
	Tagline string   `json:"tagline,omitempty"`
}

// Client talks to TMDB over a retrying HTTP client.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a client; a nil httpClient gets a retrying default.
func New(cfg Config, httpClient *http.Client) *Client {
	cfg.Normalize()
	if httpClient == nil {
		httpClient = netutil.NewClient(netutil.ClientOptions{Timeout: cfg.Timeout, Retries: 2, Backoff: 500 * time.Millisecond})
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

type rawItem struct {
	ID            int64  `json:"id"`
	MediaType     string `json:"media_type"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	Name          string `json:"name"`
	OriginalName  string `json:"original_name"`
	ReleaseDate   string `json:"release_date"`
	FirstAirDate  string `json:"first_air_date"`
	Overview      string `json:"overview"`
	PosterPath    string `json:"poster_path"`
	IMDBID        string `json:"imdb_id"`
	Status        string `json:"status"`
	Tagline       string `json:"tagline"`
	Genres        []struct {
		Name string `json:"name"`
	} `json:"genres"`
	ExternalIDs *struct {
		IMDBID string `json:"imdb_id"`
	} `json:"external_ids"`
}

// Search runs a multi search and keeps the first movie and tv hits up to
// the configured limit.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("include_adult", "false")

	var page struct {
		Results []rawItem `json:"results"`
	}
	start := time.Now()
	err := c.get(ctx, "/search/multi", params, &page)
	logger.Debug(ctx, component, "tmdb.search",
		slog.String("status", logger.Status(err)),
		slog.Int("count", len(page.Results)),
		slog.Duration("duration", time.Since(start)),
		slog.Any("err", err),
	)
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, c.cfg.Limit)
	for _, item := range page.Results {
		r, ok := c.format(item, item.MediaType)
		if !ok {
			continue
		}
		out = append(out, r)
		if len(out) >= c.cfg.Limit {
			break
		}
	}
	return out, nil
}

// Details fetches one movie or show including external ids.
func (c *Client) Details(ctx context.Context, id int64, mediaType string) (*Details, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if mediaType != MediaMovie && mediaType != MediaTV {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMediaType, mediaType)
	}
	params := url.Values{}
	params.Set("append_to_response", "external_ids")

	var item rawItem
	path := "/" + mediaType + "/" + strconv.FormatInt(id, 10)
	if err := c.get(ctx, path, params, &item); err != nil {
		logger.Warn(ctx, component, "tmdb.details",
			slog.String("status", "fail"),
			slog.Int64("tmdb_id", id),
			slog.String("media_type", mediaType),
			slog.Any("err", err),
		)
		return nil, err
	}
	if item.ID == 0 {
		item.ID = id
	}
	base, ok := c.format(item, mediaType)
	if !ok {
		return nil, fmt.Errorf("tmdb: %s %d has no title", mediaType, id)
	}

	d := &Details{Result: base, Status: item.Status, Tagline: item.Tagline}
	if item.ExternalIDs != nil {
		d.IMDBID = item.ExternalIDs.IMDBID
	}
	if d.IMDBID == "" && mediaType == MediaMovie {
		d.IMDBID = item.IMDBID
	}
	for _, g := range item.Genres {
		d.Genres = append(d.Genres, g.Name)
	}
	return d, nil
}

func (c *Client) format(item rawItem, mediaType string) (Result, bool) {
	if item.ID == 0 {
		return Result{}, false
	}
	var title, date string
	switch mediaType {
	case MediaMovie:
		title, date = firstNonEmpty(item.Title, item.OriginalTitle), item.ReleaseDate
	case MediaTV:
		title, date = firstNonEmpty(item.Name, item.OriginalName), item.FirstAirDate
	default:
		return Result{}, false
	}
	if title == "" {
		return Result{}, false
	}
	r := Result{
		TMDBID:    item.ID,
		Title:     title,
		Year:      extractYear(date),
		MediaType: mediaType,
		Overview:  firstNonEmpty(item.Overview, noOverview),
	}
	if item.PosterPath != "" {
		r.PosterURL = c.cfg.ImageBaseURL + item.PosterPath
	}
	return r, true
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst any) error {
	params.Set("api_key", c.cfg.APIKey)
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb: %s: %w", path, hideKey(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("tmdb: %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("tmdb: %s: decode: %w", path, err)
	}
	return nil
}

// hideKey drops the api_key query parameter from the URL that net/http
// embeds in transport errors.
func hideKey(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = logger.Redact(uerr.URL)
	}
	return err
}

func extractYear(date string) *int {
	if len(date) < 4 {
		return nil
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &y
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
