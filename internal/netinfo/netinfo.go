// Package netinfo discovers the public IPv4 address the process egresses from.
// api-fns.ru keys are bound to whitelisted addresses, so the tax service logs it at startup.
package netinfo

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/finmcp/finmcp/internal/upstream"
)

var (
	DefaultMetadataURLs = []string{
		"http://169.254.169.254/latest/meta-data/public-ipv4",
		"http://169.254.169.254/latest/meta-data/instance-network-interface/0/ip-address",
	}
	DefaultPublicURLs = []string{
		"https://api.ipify.org",
		"https://ifconfig.me/ip",
		"https://icanhazip.com",
		"https://myexternalip.com/raw",
	}
)

type Detector struct {
	MetadataURLs []string
	PublicURLs   []string
	// Budget bounds the whole detection.
	Budget time.Duration
	client *upstream.Client
}

func NewDetector(logger *slog.Logger, httpClient *http.Client) *Detector {
	return &Detector{
		MetadataURLs: DefaultMetadataURLs,
		PublicURLs:   DefaultPublicURLs,
		Budget:       6 * time.Second,
		client: upstream.New(upstream.Options{
			Service:    "netinfo",
			Timeout:    1500 * time.Millisecond,
			HTTPClient: httpClient,
			Logger:     logger,
		}),
	}
}

// Detect tries the cloud metadata endpoints first, then the public echo services.
// Private, loopback and malformed answers are skipped. ok is false when nothing answered.
func (d *Detector) Detect(ctx context.Context) (ip netip.Addr, source string, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, d.Budget)
	defer cancel()

	for _, u := range d.MetadataURLs {
		if ip, ok := d.try(ctx, u, time.Second); ok {
			return ip, u, true
		}
	}
	for _, u := range d.PublicURLs {
		if ip, ok := d.try(ctx, u, 0); ok {
			return ip, u, true
		}
	}
	return netip.Addr{}, "", false
}

func (d *Detector) try(ctx context.Context, u string, timeout time.Duration) (netip.Addr, bool) {
	if ctx.Err() != nil {
		return netip.Addr{}, false
	}
	body, err := d.client.Do(ctx, "detect_ip", upstream.Request{Method: http.MethodGet, URL: u, Timeout: timeout})
	if err != nil {
		return netip.Addr{}, false
	}
	return parsePublicIPv4(string(body))
}

func parsePublicIPv4(s string) (netip.Addr, bool) {
	ip, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !ip.Is4() {
		return netip.Addr{}, false
	}
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return netip.Addr{}, false
	}
	return ip, true
}

// LogExternalIP runs detection and logs the outcome. It never fails startup.
func LogExternalIP(ctx context.Context, logger *slog.Logger, d *Detector) {
	ip, source, ok := d.Detect(ctx)
	if !ok {
		logger.ErrorContext(ctx, "external ip not detected", "consequence", "api-fns.ru will reject requests from a non-whitelisted address")
		return
	}
	logger.InfoContext(ctx, "startup external ip", "external_ip", ip.String(), "source", source, "action", "whitelist_in_fns")
}
