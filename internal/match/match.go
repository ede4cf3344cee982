// Package match implements path-template compilation with partial binding
// and the rule/block matchers.
package match

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/eeu479/proxyman-helper/internal/model"
)

var holeRegexp = regexp.MustCompile(`\{([^}]+)\}`)

type paramToken struct {
	name    string
	value   *string
	capture bool
}

// compiled is a path template compiled to an anchored regex with its
// ordered tokens, used to both match and extract parameters.
type compiled struct {
	re     *regexp.Regexp
	tokens []paramToken
}

// compilePathMatcher compiles template's {name} holes into an anchored
// regex. Holes present in bindings are replaced with their escaped literal
// value (a "bound token"); the rest become capture groups in source order.
func compilePathMatcher(template string, bindings map[string]string) compiled {
	var pattern strings.Builder
	var tokens []paramToken
	lastIndex := 0

	for _, loc := range holeRegexp.FindAllStringSubmatchIndex(template, -1) {
		start, end := loc[0], loc[1]
		nameStart, nameEnd := loc[2], loc[3]

		pattern.WriteString(regexp.QuoteMeta(template[lastIndex:start]))
		name := strings.TrimSpace(template[nameStart:nameEnd])

		if value, ok := bindings[name]; ok {
			pattern.WriteString(regexp.QuoteMeta(value))
			tokens = append(tokens, paramToken{name: name, value: &value})
		} else {
			pattern.WriteString(`([^/]+)`)
			tokens = append(tokens, paramToken{name: name, capture: true})
		}
		lastIndex = end
	}
	pattern.WriteString(regexp.QuoteMeta(template[lastIndex:]))

	re := regexp.MustCompile("^" + pattern.String() + "$")
	return compiled{re: re, tokens: tokens}
}

func extractParams(tokens []paramToken, match []string) map[string]string {
	values := make(map[string]string, len(tokens))
	captureIndex := 1
	for _, token := range tokens {
		if token.value != nil {
			values[token.name] = *token.value
		} else if token.capture {
			if captureIndex < len(match) {
				values[token.name] = match[captureIndex]
			}
			captureIndex++
		}
	}
	return values
}

func normalizePath(value string) string {
	if value == "" {
		return "/"
	}
	if strings.HasPrefix(value, "/") {
		return value
	}
	return "/" + value
}

func buildRequestPath(profile model.Profile, req model.RequestConfig) string {
	path := normalizePath(req.Path)
	if profile.BaseURL == "" {
		return path
	}
	base := normalizePath(profile.BaseURL)
	if strings.HasSuffix(base, "/") && strings.HasPrefix(path, "/") {
		return strings.TrimSuffix(base, "/") + path
	}
	return base + path
}

func methodMatches(configured string, method string) bool {
	if configured == "" || configured == "*" {
		return true
	}
	return strings.EqualFold(configured, method)
}

func headersMatch(expected map[string]string, actual http.Header) bool {
	for key, value := range expected {
		if actual.Get(key) != value {
			return false
		}
	}
	return true
}

func queryMatch(expected map[string]string, actual map[string]string) bool {
	for key, value := range expected {
		if got, ok := actual[key]; !ok || got != value {
			return false
		}
	}
	return true
}

// FindMatch requires an active profile; it iterates that profile's
// (subProfile, request) cross product in declared order and returns the
// first hit with its extracted path parameters.
func FindMatch(store model.Store, activeProfile string, method, path string, headers http.Header, query map[string]string) (*model.MatchResult, bool) {
	if activeProfile == "" {
		return nil, false
	}
	for _, profile := range store.Profiles {
		if profile.Name != activeProfile {
			continue
		}
		for _, sub := range profile.SubProfiles {
			for _, req := range profile.Requests {
				if !methodMatches(req.Method, method) {
					continue
				}
				if !headersMatch(req.Headers, headers) {
					continue
				}
				if !queryMatch(req.QueryParameters, query) {
					continue
				}

				bindings := make(map[string]string, len(sub.Params)+len(req.Params))
				for k, v := range sub.Params {
					bindings[k] = v
				}
				for k, v := range req.Params {
					bindings[k] = v
				}

				template := buildRequestPath(profile, req)
				c := compilePathMatcher(template, bindings)
				if m := c.re.FindStringSubmatch(path); m != nil {
					return &model.MatchResult{
						Profile:         profile,
						SubProfile:      sub,
						Request:         req,
						ExtractedParams: extractParams(c.tokens, m),
					}, true
				}
			}
		}
		break
	}
	return nil, false
}

// deriveBlockPath resolves a block's matchable path: the block's own Path if
// non-empty, else the right half of description split at the first space,
// iff that half starts with "/".
func deriveBlockPath(block model.Block) (string, bool) {
	if block.Path != "" {
		return block.Path, true
	}
	trimmed := strings.TrimSpace(block.Description)
	idx := strings.IndexByte(trimmed, ' ')
	if idx < 0 {
		return "", false
	}
	rest := trimmed[idx+1:]
	if strings.HasPrefix(rest, "/") {
		return rest, true
	}
	return "", false
}

// FindBlockMatch requires an active profile; it iterates
// profile.ActiveBlocks in declared order and returns the first hit.
func FindBlockMatch(store model.Store, activeProfile string, method, path string) (*model.BlockMatch, bool) {
	if activeProfile == "" {
		return nil, false
	}
	var profile model.Profile
	found := false
	for _, p := range store.Profiles {
		if p.Name == activeProfile {
			profile = p
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	for _, block := range profile.ActiveBlocks {
		if !methodMatches(block.Method, method) {
			continue
		}
		blockPath, ok := deriveBlockPath(block)
		if !ok {
			continue
		}
		if !strings.Contains(blockPath, "{") {
			if blockPath == path {
				return &model.BlockMatch{Profile: profile, Block: block, ExtractedParams: map[string]string{}}, true
			}
			continue
		}
		c := compilePathMatcher(blockPath, map[string]string{})
		if m := c.re.FindStringSubmatch(path); m != nil {
			return &model.BlockMatch{Profile: profile, Block: block, ExtractedParams: extractParams(c.tokens, m)}, true
		}
	}
	return nil, false
}
