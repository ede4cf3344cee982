// Package respond synthesizes HTTP responses from request rules and blocks.
package respond

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/eeu479/proxyman-helper/internal/model"
	"github.com/eeu479/proxyman-helper/internal/tmpl"
	"golang.org/x/net/http/httpguts"
)

// Logged is the loggable projection of a synthesized response: status, the
// headers actually installed, and a text rendering of the body.
type Logged struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    *string           `json:"body,omitempty"`
}

// Rendered is a response ready to be written to the wire.
type Rendered struct {
	Status      int
	Headers     map[string]string
	Body        []byte
	ContentType string
}

func installHeader(headers map[string]string, name, value string) {
	if httpguts.ValidHeaderFieldName(name) && httpguts.ValidHeaderFieldValue(value) {
		headers[name] = value
	}
}

// BuildResponse synthesizes the response for a matched request rule.
func BuildResponse(match model.MatchResult, path string, query map[string]string) (Rendered, Logged) {
	status := http.StatusOK
	var bodyValue interface{}
	headers := map[string]string{}

	if match.Request.Response != nil {
		if match.Request.Response.Status != nil {
			status = *match.Request.Response.Status
		}
		if len(match.Request.Response.Body) > 0 {
			_ = json.Unmarshal(match.Request.Response.Body, &bodyValue)
		}
		for k, v := range match.Request.Response.Headers {
			installHeader(headers, k, v)
		}
	}

	if bodyValue == nil && (match.Request.Response == nil || len(match.Request.Response.Body) == 0) {
		bodyValue = map[string]interface{}{
			"matched": map[string]interface{}{
				"profile":    match.Profile.Name,
				"subProfile": match.SubProfile.Name,
				"request":    match.Request.Name,
			},
			"path":   path,
			"query":  query,
			"params": match.ExtractedParams,
		}
	}

	bodyJSON, _ := json.Marshal(bodyValue)
	bodyPretty, _ := json.MarshalIndent(bodyValue, "", "  ")
	bodyText := string(bodyPretty)

	return Rendered{
			Status:      status,
			Headers:     headers,
			Body:        bodyJSON,
			ContentType: "application/json",
		}, Logged{
			Status:  status,
			Headers: headers,
			Body:    &bodyText,
		}
}

// BuildBlockResponse renders a block's response template and synthesizes the
// response.
func BuildBlockResponse(match model.BlockMatch) (Rendered, Logged) {
	values := tmpl.MergedValues(match)
	rendered := tmpl.Render(match.Block.ResponseTemplate, values)
	normalized := tmpl.NormalizeJSONQuotes(rendered)

	trimmed := strings.TrimSpace(rendered)
	var parsed interface{}
	hasJSON := false
	if trimmed != "" {
		if err := json.Unmarshal([]byte(rendered), &parsed); err == nil {
			hasJSON = true
		} else if err := json.Unmarshal([]byte(normalized), &parsed); err == nil {
			hasJSON = true
		}
	}

	headers := map[string]string{}
	for key, value := range match.Block.ResponseHeaders {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		renderedValue := tmpl.Render(value, values)
		installHeader(headers, trimmedKey, renderedValue)
	}

	var rendedResp Rendered
	var loggedBody *string

	switch {
	case trimmed == "":
		rendedResp = Rendered{Status: http.StatusOK, Headers: headers, Body: nil}
	case hasJSON:
		pretty, _ := json.MarshalIndent(parsed, "", "  ")
		compact, _ := json.Marshal(parsed)
		prettyStr := string(pretty)
		loggedBody = &prettyStr
		rendedResp = Rendered{Status: http.StatusOK, Headers: headers, Body: compact, ContentType: "application/json"}
	default:
		loggedBody = &normalized
		rendedResp = Rendered{Status: http.StatusOK, Headers: headers, Body: []byte(normalized), ContentType: "text/plain; charset=utf-8"}
	}

	return rendedResp, Logged{Status: http.StatusOK, Headers: headers, Body: loggedBody}
}

// JSONError builds an {"error": message} response with the given status.
func JSONError(status int, message string) (Rendered, Logged) {
	body := map[string]string{"error": message}
	payload, _ := json.Marshal(body)
	pretty, _ := json.MarshalIndent(body, "", "  ")
	prettyStr := string(pretty)
	return Rendered{Status: status, Headers: map[string]string{}, Body: payload, ContentType: "application/json"},
		Logged{Status: status, Headers: map[string]string{}, Body: &prettyStr}
}
