package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	probing "github.com/prometheus-community/pro-bing"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

const statusCacheKey = "status"

// CheckStatus queries GET /status within the status timeout. Any failure is an
// ErrAPIUnavailable.
func (c *Client) CheckStatus(ctx context.Context) (*types.ServerStatus, error) {
	const op = "status"

	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	url := tool.BuildEndpointURL(c.BaseURL(), "/status")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newError(CodeAPIUnavailable, op, 0, "invalid status url", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(CodeAPIUnavailable, op, 0, "", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()

	data, err := readEnvelope(resp, op, CodeAPIUnavailable)
	if err != nil {
		if re, ok := err.(*Error); ok {
			re.Code = CodeAPIUnavailable
		}
		return nil, err
	}
	var status types.ServerStatus
	if err := sonic.Unmarshal(data, &status); err != nil {
		return nil, newError(CodeAPIUnavailable, op, resp.StatusCode, "invalid status response", err)
	}
	c.statusCache.Set(statusCacheKey, &status)
	return &status, nil
}

// LastStatus returns the last successful CheckStatus result if it is still fresh.
func (c *Client) LastStatus() *types.ServerStatus {
	return c.statusCache.Get(statusCacheKey)
}

// PingResult summarizes an ICMP probe of the service host.
type PingResult struct {
	Host        string        `json:"host"`
	PacketsSent int           `json:"packetsSent"`
	PacketsRecv int           `json:"packetsRecv"`
	PacketLoss  float64       `json:"packetLoss"`
	AvgRtt      time.Duration `json:"avgRtt"`
}

// Ping sends a few unprivileged ICMP echoes to the host of the base URL. It is a
// diagnostic only and never decides availability.
func (c *Client) Ping(ctx context.Context, count int) (PingResult, error) {
	host := tool.HostOf(c.BaseURL())
	if host == "" {
		return PingResult{}, fmt.Errorf("base url %q has no host", c.BaseURL())
	}
	if count <= 0 {
		count = 3
	}
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return PingResult{Host: host}, fmt.Errorf("failed to create pinger: %w", err)
	}
	pinger.SetPrivileged(false)
	pinger.Count = count
	pinger.Interval = 200 * time.Millisecond
	pinger.Timeout = time.Duration(count)*pinger.Interval + time.Second

	if err := pinger.RunWithContext(ctx); err != nil {
		return PingResult{Host: host}, fmt.Errorf("ping %s: %w", host, err)
	}
	stats := pinger.Statistics()
	return PingResult{
		Host:        host,
		PacketsSent: stats.PacketsSent,
		PacketsRecv: stats.PacketsRecv,
		PacketLoss:  stats.PacketLoss,
		AvgRtt:      stats.AvgRtt,
	}, nil
}
