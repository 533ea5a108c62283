package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CarlosIrineuCosta/boxiii/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "Boxiii/1.0"
)

// Mode selects how the provider is deployed.
type Mode string

const (
	// ModeAPI talks to the builder's REST API (data-wrapped envelopes,
	// single-item endpoints available).
	ModeAPI Mode = "api"

	// ModeStatic reads published flat JSON files (bare-array envelopes,
	// collection fetches only).
	ModeStatic Mode = "static"
)

// Client implements domain.ContentSource against a Boxiii provider.
// It fetches and normalizes; it never writes to the local store and never
// retries internally. Retry and fallback policy belong to the caller.
type Client struct {
	baseURL    string
	mode       Mode
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a content source client. A non-positive timeout uses the
// default; a timed-out request surfaces as an ordinary fetch failure so the
// caller treats it like any other unreachable provider.
func NewClient(baseURL string, mode Mode, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		mode:    mode,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SupportsItemLookup reports whether single-item endpoints exist. Static
// publishing has no per-record files; callers filter the full collection.
func (c *Client) SupportsItemLookup() bool {
	return c.mode == ModeAPI
}

// doRequest performs a GET and returns the raw body.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("source request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("source request failed", "url", reqURL, "error", err)
		return nil, domain.ErrSourceOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn("source request error", "url", reqURL, "status", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return body, nil
}

func (c *Client) collectionPath(name string) string {
	if c.mode == ModeStatic {
		return "/" + name + ".json"
	}
	return "/api/" + name
}

// FetchCreators returns all creators known to the provider.
func (c *Client) FetchCreators(ctx context.Context) ([]domain.Creator, error) {
	body, err := c.doRequest(ctx, c.collectionPath("creators"), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[domain.Creator](body), nil
}

// FetchBoxes returns all boxes (provider term: content sets).
func (c *Client) FetchBoxes(ctx context.Context) ([]domain.Box, error) {
	body, err := c.doRequest(ctx, c.collectionPath("sets"), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[domain.Box](body), nil
}

// FetchCards returns the cards of a box. The API filters server-side; static
// mode publishes one flat file, so the filter happens here.
func (c *Client) FetchCards(ctx context.Context, setID string) ([]domain.Card, error) {
	var query url.Values
	if c.mode == ModeAPI && setID != "" {
		query = url.Values{"set_id": []string{setID}}
	}

	body, err := c.doRequest(ctx, c.collectionPath("cards"), query)
	if err != nil {
		return nil, err
	}

	cards := decodeList[domain.Card](body)
	if c.mode == ModeStatic && setID != "" {
		filtered := cards[:0]
		for _, card := range cards {
			if card.SetID == setID {
				filtered = append(filtered, card)
			}
		}
		cards = filtered
	}
	return cards, nil
}

// FetchBox returns a single box by set id. API mode only.
func (c *Client) FetchBox(ctx context.Context, setID string) (*domain.Box, error) {
	if !c.SupportsItemLookup() {
		return nil, fmt.Errorf("single box lookup unsupported in %s mode", c.mode)
	}

	body, err := c.doRequest(ctx, "/api/sets/"+url.PathEscape(setID), nil)
	if err != nil {
		return nil, err
	}

	box, ok := decodeItem[domain.Box](body)
	if !ok || box.SetID == "" {
		return nil, domain.ErrNotFound
	}
	return &box, nil
}

// FetchCreator returns a single creator by id. API mode only.
func (c *Client) FetchCreator(ctx context.Context, creatorID string) (*domain.Creator, error) {
	if !c.SupportsItemLookup() {
		return nil, fmt.Errorf("single creator lookup unsupported in %s mode", c.mode)
	}

	body, err := c.doRequest(ctx, "/api/creators/"+url.PathEscape(creatorID), nil)
	if err != nil {
		return nil, err
	}

	creator, ok := decodeItem[domain.Creator](body)
	if !ok || creator.CreatorID == "" {
		return nil, domain.ErrNotFound
	}
	return &creator, nil
}
