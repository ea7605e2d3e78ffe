// README: Runner builds a fresh simulator per request over shared inputs.
package sim

import (
	"taxisim/internal/modules/network"
	"taxisim/internal/modules/order"
)

// Runner holds the immutable inputs of a deployment (graph, order records,
// shared options) and executes independent runs over them. The graph is
// read-only so concurrent runs only contend on the optional shared cache.
type Runner struct {
	graph   *network.Graph
	records []order.Record
	opts    []Option
}

// NewRunner creates a runner. opts are applied to every run, before the
// per-run options.
func NewRunner(g *network.Graph, records []order.Record, opts ...Option) *Runner {
	return &Runner{graph: g, records: records, opts: opts}
}

// Graph exposes the shared road graph.
func (r *Runner) Graph() *network.Graph { return r.graph }

// New builds a simulator for one run.
func (r *Runner) New(cfg Config, opts ...Option) (*Simulator, error) {
	all := make([]Option, 0, len(r.opts)+len(opts))
	all = append(all, r.opts...)
	all = append(all, opts...)
	return New(cfg, r.graph, r.records, all...)
}
