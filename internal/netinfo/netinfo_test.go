package netinfo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// fakeClient answers by URL; unknown URLs fail like an unreachable host.
func fakeClient(answers map[string]string, seen *[]string) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		*seen = append(*seen, r.URL.String())
		body, ok := answers[r.URL.String()]
		if !ok {
			return nil, errors.New("no route to host")
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}, nil
	})}
}

func detector(answers map[string]string, seen *[]string) *Detector {
	d := NewDetector(slog.New(slog.NewTextHandler(io.Discard, nil)), fakeClient(answers, seen))
	d.MetadataURLs = []string{"http://meta/a", "http://meta/b"}
	d.PublicURLs = []string{"https://echo/1", "https://echo/2"}
	return d
}

func TestDetectPrefersMetadata(t *testing.T) {
	var seen []string
	d := detector(map[string]string{"http://meta/a": "203.0.113.7\n", "https://echo/1": "198.51.100.1"}, &seen)
	ip, source, ok := d.Detect(context.Background())
	require.True(t, ok)
	assert.Equal(t, "203.0.113.7", ip.String())
	assert.Equal(t, "http://meta/a", source)
	assert.Equal(t, []string{"http://meta/a"}, seen)
}

func TestDetectSkipsPrivateAndGarbage(t *testing.T) {
	var seen []string
	d := detector(map[string]string{
		"http://meta/a":  "10.0.0.5",
		"http://meta/b":  "<html>",
		"https://echo/1": "127.0.0.1",
		"https://echo/2": " 198.51.100.1 ",
	}, &seen)
	ip, source, ok := d.Detect(context.Background())
	require.True(t, ok)
	assert.Equal(t, "198.51.100.1", ip.String())
	assert.Equal(t, "https://echo/2", source)
	assert.Len(t, seen, 4)
}

func TestDetectNothing(t *testing.T) {
	var seen []string
	_, _, ok := detector(nil, &seen).Detect(context.Background())
	assert.False(t, ok)
}

func TestParsePublicIPv4(t *testing.T) {
	for in, want := range map[string]bool{
		"8.8.8.8":       true,
		"192.168.1.1":   false,
		"172.16.0.1":    false,
		"169.254.1.1":   false,
		"::1":           false,
		"2001:db8::1":   false,
		"not-an-ip":     false,
		"1.2.3":         false,
		"93.184.216.34": true,
	} {
		_, ok := parsePublicIPv4(in)
		assert.Equal(t, want, ok, in)
	}
}

func TestLogExternalIP(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	var seen []string
	LogExternalIP(context.Background(), logger, detector(map[string]string{"https://echo/1": "198.51.100.9"}, &seen))
	assert.Contains(t, buf.String(), "startup external ip")
	assert.Contains(t, buf.String(), "external_ip=198.51.100.9")
	assert.Contains(t, buf.String(), "action=whitelist_in_fns")
}
