// Package mux routes model invocations to a provider by model id prefix, so
// projects can mix agents across providers (for example "gpt-4o" next to
// "claude-sonnet-4-5") behind one model.Invoker.
package mux

import (
	"context"
	"sort"
	"strings"

	"github.com/parleyhq/parley/model"
)

// Options configure the mux.
type Options struct {
	// Routes maps a model id prefix to the invoker handling it. Longer
	// prefixes win over shorter ones.
	Routes map[string]model.Invoker
}

// Invoker dispatches by model id prefix with a fallback for unmatched ids.
type Invoker struct {
	fallback model.Invoker
	routes   []route
}

type route struct {
	prefix  string
	invoker model.Invoker
}

var _ model.Invoker = (*Invoker)(nil)

// New creates a mux delegating unmatched model ids to fallback.
func New(fallback model.Invoker, optFns ...func(o *Options)) *Invoker {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	routes := make([]route, 0, len(opts.Routes))
	for prefix, invoker := range opts.Routes {
		routes = append(routes, route{prefix: prefix, invoker: invoker})
	}
	sort.Slice(routes, func(i, j int) bool { return len(routes[i].prefix) > len(routes[j].prefix) })
	return &Invoker{fallback: fallback, routes: routes}
}

func (m *Invoker) resolve(modelID string) model.Invoker {
	for _, r := range m.routes {
		if strings.HasPrefix(modelID, r.prefix) {
			return r.invoker
		}
	}
	return m.fallback
}

// Chat implements model.Invoker.
func (m *Invoker) Chat(ctx context.Context, messages []model.Message, modelID, apiKey string) (string, error) {
	return m.resolve(modelID).Chat(ctx, messages, modelID, apiKey)
}

// Summarize implements model.Invoker. Summaries have no per-call model id, so
// they always run on the fallback provider.
func (m *Invoker) Summarize(ctx context.Context, messages []model.Message, apiKey string) (string, error) {
	return m.fallback.Summarize(ctx, messages, apiKey)
}
