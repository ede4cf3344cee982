// Package dispatch implements the top-level per-request pipeline: Block ->
// Rule -> Proxy.
package dispatch

import (
	"io"
	"net/http"
	"net/url"

	"github.com/eeu479/proxyman-helper/internal/appstate"
	"github.com/eeu479/proxyman-helper/internal/match"
	"github.com/eeu479/proxyman-helper/internal/respond"
	"github.com/sirupsen/logrus"
)

// Dispatcher ties the Matcher to the Responder/ProxyForwarder and records
// every outcome in the LogRing. It never mutates the Store.
type Dispatcher struct {
	state *appstate.State
	log   *logrus.Entry
}

// New creates a Dispatcher over the given shared state.
func New(state *appstate.State) *Dispatcher {
	return &Dispatcher{state: state, log: logrus.WithField("component", "dispatch")}
}

func flattenQuery(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func ptr(s string) *string { return &s }

// Handle runs one request through Block -> Rule -> Proxy and writes the
// result to w.
func (d *Dispatcher) Handle(w http.ResponseWriter, r *http.Request) {
	if !d.state.Ready.IsSet() {
		http.Error(w, `{"error":"gateway not ready"}`, http.StatusServiceUnavailable)
		return
	}

	doc := d.state.Store.Read()
	activeProfile := d.state.ActiveProfile()
	path := r.URL.Path
	query := flattenQuery(r.URL.Query())

	if blockMatch, ok := match.FindBlockMatch(doc, activeProfile, r.Method, path); ok {
		rendered, logged := respond.BuildBlockResponse(*blockMatch)
		d.state.Logs.Record(r.Method, path, query, ptr(blockMatch.Profile.Name), nil, nil, ptr(blockMatch.Block.Name), true, &logged)
		writeRendered(w, rendered)
		return
	}

	if ruleMatch, ok := match.FindMatch(doc, activeProfile, r.Method, path, r.Header, query); ok {
		rendered, logged := respond.BuildResponse(*ruleMatch, path, query)
		d.state.Logs.Record(r.Method, path, query, ptr(ruleMatch.Profile.Name), ptr(ruleMatch.SubProfile.Name), ptr(ruleMatch.Request.Name), nil, true, &logged)
		writeRendered(w, rendered)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		d.log.WithError(err).Warn("failed to read request body for proxying")
		body = nil
	}
	rendered, logged := d.state.Forwarder.Forward(doc, activeProfile, r.Method, path, r.URL.RawQuery, r.Header, body)
	d.state.Logs.Record(r.Method, path, query, nil, nil, nil, nil, false, &logged)
	writeRendered(w, rendered)
}

func writeRendered(w http.ResponseWriter, rendered respond.Rendered) {
	for name, value := range rendered.Headers {
		w.Header().Set(name, value)
	}
	if rendered.ContentType != "" {
		w.Header().Set("Content-Type", rendered.ContentType)
	}
	w.WriteHeader(rendered.Status)
	if rendered.Body != nil {
		_, _ = w.Write(rendered.Body)
	}
}
