// Package proxyfwd reverse-proxies unmatched requests to the active
// profile's baseUrl.
package proxyfwd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eeu479/proxyman-helper/internal/model"
	"github.com/eeu479/proxyman-helper/internal/respond"
)

var hopByHopRequest = map[string]bool{
	"host":                true,
	"content-length":      true,
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

var hopByHopResponse = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

// Client is a shared, thread-safe HTTP client for upstream calls.
var Client = &http.Client{Timeout: 30 * time.Second}

// Forwarder forwards unmatched requests to an active profile's baseUrl.
type Forwarder struct {
	client *http.Client
}

// New creates a Forwarder using the shared Client.
func New() *Forwarder {
	return &Forwarder{client: Client}
}

// ResolveActiveProfile returns the named active profile if present, else the
// first profile, else false.
func ResolveActiveProfile(store model.Store, activeProfile string) (model.Profile, bool) {
	if activeProfile != "" {
		for _, p := range store.Profiles {
			if p.Name == activeProfile {
				return p, true
			}
		}
	}
	if len(store.Profiles) > 0 {
		return store.Profiles[0], true
	}
	return model.Profile{}, false
}

func buildProxyURL(baseURL, path, rawQuery string) string {
	base := strings.TrimSuffix(baseURL, "/")
	var full string
	if strings.HasPrefix(path, "/") {
		full = base + path
	} else {
		full = base + "/" + path
	}
	if rawQuery != "" {
		full += "?" + rawQuery
	}
	return full
}

func buildProxyRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for name, values := range src {
		if hopByHopRequest[strings.ToLower(name)] {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
	dst.Set("x-bypass-proxyman", "true")
	return dst
}

func filterResponseHeaders(src http.Header) map[string]string {
	dst := make(map[string]string, len(src))
	for name, values := range src {
		if hopByHopResponse[strings.ToLower(name)] {
			continue
		}
		if len(values) > 0 {
			dst[name] = values[0]
		}
	}
	return dst
}

// Forward builds the upstream request and relays its response, or returns a
// synthesized error response on misconfiguration/upstream failure.
func (f *Forwarder) Forward(store model.Store, activeProfile, method, path, rawQuery string, headers http.Header, body []byte) (respond.Rendered, respond.Logged) {
	profile, ok := ResolveActiveProfile(store, activeProfile)
	if !ok {
		return respond.JSONError(http.StatusNotFound, "No active profile available for proxying")
	}
	if strings.TrimSpace(profile.BaseURL) == "" {
		return respond.JSONError(http.StatusBadRequest, "Active profile does not define a baseUrl")
	}

	url := buildProxyURL(profile.BaseURL, path, rawQuery)
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return respond.JSONError(http.StatusBadGateway, fmt.Sprintf("Proxy request failed: %v", err))
	}
	req.Header = buildProxyRequestHeaders(headers)

	upstream, err := f.client.Do(req)
	if err != nil {
		return respond.JSONError(http.StatusBadGateway, fmt.Sprintf("Proxy request failed: %v", err))
	}
	defer upstream.Body.Close()

	respBody, err := io.ReadAll(upstream.Body)
	if err != nil {
		return respond.JSONError(http.StatusBadGateway, fmt.Sprintf("Unable to read proxy response: %v", err))
	}

	status := upstream.StatusCode
	if status < 100 || status > 599 {
		status = http.StatusBadGateway
	}
	respHeaders := filterResponseHeaders(upstream.Header)
	bodyText := string(respBody)

	return respond.Rendered{Status: status, Headers: respHeaders, Body: respBody},
		respond.Logged{Status: status, Headers: respHeaders, Body: &bodyText}
}
