package paramgraph

import "github.com/hashicorp/go-hclog"

// DependencyTracker propagates staleness between sources: when a graph changes
// in a way that needs a recompile, every tracked source whose graph reaches it
// through calls or emitters is marked desynchronized, transitively.
//
// Like graphs, a tracker is single-writer and must not be used concurrently.
type DependencyTracker struct {
	sources     []*Source
	cancels     map[*Source]func()
	propagating map[string]bool
	logger      hclog.Logger
}

// NewDependencyTracker creates an empty tracker. A nil logger discards output.
func NewDependencyTracker(logger hclog.Logger) *DependencyTracker {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &DependencyTracker{
		cancels:     make(map[*Source]func()),
		propagating: make(map[string]bool),
		logger:      logger,
	}
}

// Track starts watching src. Tracking the same source twice does nothing.
func (t *DependencyTracker) Track(src *Source) {
	if src == nil || src.Graph == nil {
		return
	}
	if _, ok := t.cancels[src]; ok {
		return
	}
	t.sources = append(t.sources, src)
	t.cancels[src] = src.Graph.OnChanged(t.onChanged)
}

// Untrack stops watching src.
func (t *DependencyTracker) Untrack(src *Source) {
	cancel, ok := t.cancels[src]
	if !ok {
		return
	}
	cancel()
	delete(t.cancels, src)
	for i, s := range t.sources {
		if s == src {
			t.sources = append(t.sources[:i], t.sources[i+1:]...)
			break
		}
	}
}

// Tracked returns the number of watched sources.
func (t *DependencyTracker) Tracked() int { return len(t.sources) }

// Close stops watching every source.
func (t *DependencyTracker) Close() {
	for _, cancel := range t.cancels {
		cancel()
	}
	t.sources = nil
	t.cancels = make(map[*Source]func())
}

func (t *DependencyTracker) onChanged(ev GraphChangedEvent) {
	if ev.Action != ActionNeedsRecompile || t.propagating[ev.Graph.ID] {
		return
	}
	t.propagating[ev.Graph.ID] = true
	defer delete(t.propagating, ev.Graph.ID)

	for _, src := range append([]*Source(nil), t.sources...) {
		if src.Graph == ev.Graph || t.propagating[src.Graph.ID] || !reaches(src.Graph, ev.Graph) {
			continue
		}
		t.logger.Debug("marking dependent source stale", "graph", src.Graph.ID, "changed", ev.Graph.ID)
		src.MarkDesynchronized()
	}
}

// reaches reports whether from references target through any chain of calls
// or emitters.
func reaches(from, target *Graph) bool {
	var graphs []*Graph
	collectGraphs(from, map[string]bool{}, &graphs)
	for _, g := range graphs[1:] {
		if g.ID == target.ID {
			return true
		}
	}
	return false
}
