// Package remote talks to the file processing service: upload, operation dispatch,
// artifact download, metadata probes and status checks.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

const (
	DefaultInfoTTL   = 5 * time.Minute
	DefaultStatusTTL = 30 * time.Second

	maxErrorBody = 64 * 1024
)

// Config is everything a Client needs; nothing is read from global state.
type Config struct {
	BaseURL       string
	Timeout       time.Duration // per request, 0 uses tool.DefaultTimeout
	StatusTimeout time.Duration // bound for CheckStatus, 0 uses tool.DefaultStatusTimeout
	DownloadDir   string        // where artifacts land, "" uses <tmp>/filetool-downloads
	DownloadRate  float64       // downloads per second, 0 disables pacing
	HTTPClient    *http.Client  // optional, replaces the client built from Timeout
}

// Client is the Remote Processing Client.
type Client struct {
	mu      sync.RWMutex
	baseURL string

	httpClient    *http.Client
	statusTimeout time.Duration
	downloadDir   string
	limiter       *rate.Limiter
	pathMu        sync.Mutex

	infoCache   *ttlworker.Cache[string, types.InfoResult]
	statusCache *ttlworker.Cache[string, *types.ServerStatus]
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = tool.NewHTTPClient(cfg.Timeout)
	}
	statusTimeout := cfg.StatusTimeout
	if statusTimeout <= 0 {
		statusTimeout = tool.DefaultStatusTimeout
	}
	downloadDir := cfg.DownloadDir
	if downloadDir == "" {
		downloadDir = filepath.Join(os.TempDir(), "filetool-downloads")
	}
	var limiter *rate.Limiter
	if cfg.DownloadRate > 0 {
		burst := int(cfg.DownloadRate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.DownloadRate), burst)
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    httpClient,
		statusTimeout: statusTimeout,
		downloadDir:   downloadDir,
		limiter:       limiter,
		infoCache:     ttlworker.NewCache[string, types.InfoResult](DefaultInfoTTL),
		statusCache:   ttlworker.NewCache[string, *types.ServerStatus](DefaultStatusTTL),
	}
}

// BaseURL returns the service base URL currently in use.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points the client at another service. Cached probe results are dropped.
func (c *Client) SetBaseURL(baseURL string) {
	baseURL = strings.TrimRight(baseURL, "/")
	c.mu.Lock()
	changed := c.baseURL != baseURL
	c.baseURL = baseURL
	c.mu.Unlock()
	if changed {
		c.statusCache.Delete(statusCacheKey)
		tool.DefaultLogger.Infof("Processing service base url set to %s", baseURL)
	}
}

// DownloadDir returns the folder downloaded artifacts are written to.
func (c *Client) DownloadDir() string {
	return c.downloadDir
}

// postJSON posts payload to endpoint and returns the envelope's data.
// Failures are *Error with CodeNetwork or the given failure code.
func (c *Client) postJSON(ctx context.Context, op, endpoint string, failCode Code, payload any) (json.RawMessage, error) {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
	}
	url := tool.BuildEndpointURL(c.BaseURL(), endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(CodeNetwork, op, 0, "", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()

	return readEnvelope(resp, op, failCode)
}

// readEnvelope reads a {message, data} response. Non-200, unparsable bodies,
// explicit success=false and absent data are all failures carrying failCode.
func readEnvelope(resp *http.Response, op string, failCode Code) (json.RawMessage, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(CodeNetwork, op, 0, "", fmt.Errorf("failed to read response body: %w", err))
	}
	if len(raw) > 0 {
		tool.DefaultLogger.Debugf("%s response (%d): %s", op, resp.StatusCode, truncate(raw))
	}

	var env types.Envelope
	parseErr := sonic.Unmarshal(raw, &env)
	message := env.Message
	if message == "" {
		message = env.Error
	}

	if resp.StatusCode != http.StatusOK {
		if message == "" {
			message = strings.TrimSpace(string(truncate(raw)))
		}
		return nil, newError(failCode, op, resp.StatusCode, message, nil)
	}
	if parseErr != nil {
		return nil, newError(failCode, op, resp.StatusCode, "invalid response body", parseErr)
	}
	if env.Success != nil && !*env.Success {
		if message == "" {
			message = "server reported failure"
		}
		return nil, newError(failCode, op, resp.StatusCode, message, nil)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		if message == "" {
			message = "response missing data"
		}
		return nil, newError(failCode, op, resp.StatusCode, message, nil)
	}
	return env.Data, nil
}

func truncate(raw []byte) []byte {
	if len(raw) > maxErrorBody {
		return raw[:maxErrorBody]
	}
	return raw
}
