// Package ratehawk is the provider adapter for the Ratehawk (WorldOta) B2B v3 API.
package ratehawk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/document"
	"github.com/kailas-cloud/hoteldex/internal/domain/dump"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/logger"
	"github.com/kailas-cloud/hoteldex/internal/provider"
)

// Name is the source name of this adapter.
const Name = "ratehawk"

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.worldota.net/api/"

const (
	pathHotelDump     = "b2b/v3/hotel/info/dump/"
	pathRegionDump    = "b2b/v3/hotel/region/dump/"
	pathMulticomplete = "b2b/v3/search/multicomplete/"
	pathRegionSearch  = "b2b/v3/search/region/"

	maxErrorBody = 1024
)

// Config holds API credentials and defaults.
type Config struct {
	BaseURL   string
	KeyID     string
	APIKey    string
	Timeout   time.Duration
	Language  string
	Inventory string
}

// Client calls the Ratehawk API with HTTP basic auth.
type Client struct {
	baseURL    string
	keyID      string
	apiKey     string
	language   string
	inventory  string
	httpClient *http.Client
}

var _ provider.Adapter = (*Client)(nil)

// New creates a Ratehawk client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Inventory == "" {
		cfg.Inventory = "all"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/",
		keyID:      cfg.KeyID,
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		inventory:  cfg.Inventory,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the source name.
func (c *Client) Name() string { return Name }

// Capabilities lists what the adapter implements.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		provider.CapHotelDump:     true,
		provider.CapRegionDump:    true,
		provider.CapLiveHotelName: true,
		provider.CapLiveRegion:    true,
		provider.CapLiveProvince:  true,
	}
}

// Configured reports whether credentials are set.
func (c *Client) Configured() bool { return c.keyID != "" && c.apiKey != "" }

type dumpRequest struct {
	Inventory    string   `json:"inventory"`
	Language     string   `json:"language"`
	CountryCodes []string `json:"country_codes,omitempty"`
}

type dumpData struct {
	URL        string `json:"url"`
	LastUpdate string `json:"last_update"`
}

// DumpURL asks for the current hotel (POST) or region (GET) dump and returns
// data.url.
func (c *Client) DumpURL(ctx context.Context, req provider.DumpRequest) (string, error) {
	lang := req.Language
	if lang == "" {
		lang = c.language
	}

	var data dumpData
	switch req.Kind {
	case job.KindHotel:
		body := dumpRequest{Inventory: c.inventory, Language: lang}
		if req.Country != "" {
			body.CountryCodes = []string{strings.ToUpper(req.Country)}
		}
		if err := c.call(ctx, http.MethodPost, pathHotelDump, nil, body, &data); err != nil {
			return "", err
		}
	case job.KindRegion:
		q := url.Values{"language": {lang}}
		if err := c.call(ctx, http.MethodGet, pathRegionDump, q, nil, &data); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: unknown dump kind %q", domain.ErrInvalidRequest, req.Kind)
	}

	if data.URL == "" {
		return "", fmt.Errorf("%w: %s dump response has no url", domain.ErrProvider, req.Kind)
	}
	logger.FromContext(ctx).Info("dump url resolved",
		zap.String("kind", string(req.Kind)),
		zap.String("last_update", data.LastUpdate),
	)
	return data.URL, nil
}

type multicompleteRequest struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

type multicompleteHotel struct {
	ID       dump.ID `json:"id"`
	Name     string  `json:"name"`
	RegionID dump.ID `json:"region_id"`
}

type multicompleteRegion struct {
	ID          dump.ID `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	CountryCode string  `json:"country_code"`
}

type multicompleteData struct {
	Hotels  []multicompleteHotel  `json:"hotels"`
	Regions []multicompleteRegion `json:"regions"`
}

// HotelsByName runs the multicomplete suggest and keeps the hotel part.
func (c *Client) HotelsByName(ctx context.Context, name, language string, limit int) ([]document.Document, error) {
	data, err := c.multicomplete(ctx, name, language)
	if err != nil {
		return nil, err
	}

	docs := make([]document.Document, 0, len(data.Hotels))
	for _, h := range data.Hotels {
		if h.ID == "" || h.Name == "" {
			continue
		}
		d := document.Document{ID: string(h.ID), Name: h.Name, NameExact: strings.ToLower(h.Name)}
		if h.RegionID != "" {
			d.Region = &document.Region{ID: string(h.RegionID)}
		}
		docs = append(docs, d)
		if limit > 0 && len(docs) == limit {
			break
		}
	}
	return docs, nil
}

type regionSearchData struct {
	Hotels []json.RawMessage `json:"hotels"`
	Region dump.RegionRef    `json:"region"`
}

// HotelsByRegion runs the region search. Hotels come back in dump record
// shape; records that cannot be projected are skipped. A hotel without a
// region reference is attributed to the requested region.
func (c *Client) HotelsByRegion(ctx context.Context, regionID string, limit int) ([]document.Document, error) {
	q := url.Values{
		"region_id": {regionID},
		"language":  {c.language},
	}
	if limit > 0 {
		q.Set("hotels_count", strconv.Itoa(limit))
	}

	var data regionSearchData
	if err := c.call(ctx, http.MethodGet, pathRegionSearch, q, nil, &data); err != nil {
		return nil, err
	}

	regionName := data.Region.Name.In(c.language)
	docs := make([]document.Document, 0, len(data.Hotels))
	skipped := 0
	for _, raw := range data.Hotels {
		rec, err := dump.Parse(raw)
		if err != nil {
			skipped++
			continue
		}
		d, err := document.Project(job.KindHotel, rec, c.language)
		if err != nil {
			skipped++
			continue
		}
		if d.Region == nil {
			d.Region = &document.Region{ID: regionID, Name: regionName}
		}
		docs = append(docs, d)
		if limit > 0 && len(docs) == limit {
			break
		}
	}
	if skipped > 0 {
		logger.FromContext(ctx).Debug("region search skipped hotels",
			zap.String("region_id", regionID),
			zap.Int("skipped", skipped),
		)
	}
	return docs, nil
}

// Provinces runs the multicomplete suggest and keeps state and city regions.
func (c *Client) Provinces(ctx context.Context, name, language string, limit int) ([]document.Document, error) {
	data, err := c.multicomplete(ctx, name, language)
	if err != nil {
		return nil, err
	}

	docs := make([]document.Document, 0, len(data.Regions))
	for _, r := range data.Regions {
		typ := document.NormalizeType(r.Type)
		if typ != "state" && typ != "city" {
			continue
		}
		docs = append(docs, document.Document{
			ID:        string(r.ID),
			Name:      r.Name,
			NameExact: strings.ToLower(r.Name),
			Country:   document.Country{Code: strings.ToUpper(r.CountryCode)},
			Type:      typ,
		})
		if limit > 0 && len(docs) == limit {
			break
		}
	}
	return docs, nil
}

func (c *Client) multicomplete(ctx context.Context, query, language string) (multicompleteData, error) {
	if language == "" {
		language = c.language
	}
	var data multicompleteData
	err := c.call(ctx, http.MethodPost, pathMulticomplete, nil, multicompleteRequest{Query: query, Language: language}, &data)
	return data, err
}

// envelope is the common response wrapper of the v3 API.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Status string          `json:"status"`
	Error  *string         `json:"error"`
}

// call performs one authenticated request and decodes envelope.data into out.
// Every failure wraps domain.ErrProvider.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal request: %w", domain.ErrProvider, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("%w: new request: %w", domain.ErrProvider, err)
	}
	req.SetBasicAuth(c.keyID, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrProvider, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s %s: status %d: %s", domain.ErrProvider, method, path, resp.StatusCode, string(msg))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrProvider, path, err)
	}
	if env.Status != "ok" || (env.Error != nil && *env.Error != "") {
		reason := env.Status
		if env.Error != nil {
			reason = *env.Error
		}
		return fmt.Errorf("%w: %s: %s", domain.ErrProvider, path, reason)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode %s data: %w", domain.ErrProvider, path, err)
	}
	return nil
}
