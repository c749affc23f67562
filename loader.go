package paramgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// Loader reads graphs and scripts from a Store and resolves the references
// between them. Each graph and script is loaded once per Loader.
type Loader struct {
	store   Store
	logger  hclog.Logger
	scripts map[string]*Script
	sources map[string]*Source
}

// NewLoader creates a loader over store. A nil logger discards output.
func NewLoader(store Store, logger hclog.Logger) *Loader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Loader{
		store:   store,
		logger:  logger,
		scripts: make(map[string]*Script),
		sources: make(map[string]*Source),
	}
}

// Source loads the graph graphID and everything it references.
func (l *Loader) Source(ctx context.Context, graphID string) (*Source, error) {
	if src, ok := l.sources[graphID]; ok {
		return src, nil
	}
	g, err := l.store.GetGraph(ctx, graphID)
	if err != nil {
		return nil, fmt.Errorf("paramgraph: load graph %s: %w", graphID, err)
	}
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, graphID)
	}
	src := NewSourceFromGraph(g)
	l.sources[graphID] = src
	if err := l.resolve(ctx, g); err != nil {
		delete(l.sources, graphID)
		return nil, err
	}
	return src, nil
}

// Script loads the script id and its source.
func (l *Loader) Script(ctx context.Context, id string) (*Script, error) {
	if s, ok := l.scripts[id]; ok {
		return s, nil
	}
	rec, err := l.store.GetScript(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("paramgraph: load script %s: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, id)
	}
	src, err := l.Source(ctx, rec.GraphID)
	if err != nil {
		return nil, err
	}
	s := ScriptFromRecord(*rec, src)
	l.scripts[id] = s
	return s, nil
}

// Sources returns every source loaded so far.
func (l *Loader) Sources() []*Source {
	out := make([]*Source, 0, len(l.sources))
	for _, src := range l.sources {
		out = append(out, src)
	}
	return out
}

func (l *Loader) resolve(ctx context.Context, g *Graph) error {
	for _, n := range g.LiveNodes() {
		switch d := n.Data.(type) {
		case *FunctionCallData:
			if d.CalleeID == "" {
				continue
			}
			s, err := l.Script(ctx, d.CalleeID)
			if errors.Is(err, ErrScriptNotFound) {
				l.logger.Warn("function call callee is missing", "graph", g.ID, "node", n.ID, "callee", d.CalleeID)
				continue
			}
			if err != nil {
				return err
			}
			d.Callee = s
		case *AssignmentData:
			callee, err := d.GenerateScript()
			if err != nil {
				return fmt.Errorf("paramgraph: assignment node %d: %w", n.ID, err)
			}
			d.Call.CachedChangeID = callee.Graph().ChangeID
		case *EmitterData:
			src, err := l.Source(ctx, d.GraphID)
			if errors.Is(err, ErrGraphNotFound) {
				l.logger.Warn("emitter graph is missing", "graph", g.ID, "node", n.ID, "emitter", d.EmitterName)
				continue
			}
			if err != nil {
				return err
			}
			recs, err := l.store.ListScripts(ctx, d.GraphID)
			if err != nil {
				return fmt.Errorf("paramgraph: list emitter scripts: %w", err)
			}
			e := NewEmitter(d.EmitterName, src)
			for _, rec := range recs {
				s, ok := l.scripts[rec.ID]
				if !ok {
					s = ScriptFromRecord(rec, src)
					l.scripts[rec.ID] = s
				}
				e.Scripts = append(e.Scripts, s)
			}
			d.Emitter = e
		}
	}
	return nil
}
