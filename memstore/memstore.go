// Package memstore is an in-memory paramgraph.Store. Graphs are kept in their
// encoded form so every read returns an independent copy, as a database would.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/meikuraledutech/paramgraph"
)

// MemStore implements paramgraph.Store in memory. It is safe for concurrent use.
type MemStore struct {
	mu      sync.RWMutex
	graphs  map[string][]byte
	infos   map[string]paramgraph.GraphInfo
	scripts map[string]paramgraph.ScriptRecord
	order   []string
}

// New creates an empty store.
func New() *MemStore {
	return &MemStore{
		graphs:  make(map[string][]byte),
		infos:   make(map[string]paramgraph.GraphInfo),
		scripts: make(map[string]paramgraph.ScriptRecord),
	}
}

// CreateSchema is a no-op.
func (s *MemStore) CreateSchema(ctx context.Context) error { return nil }

// DropSchema removes everything.
func (s *MemStore) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs = make(map[string][]byte)
	s.infos = make(map[string]paramgraph.GraphInfo)
	s.scripts = make(map[string]paramgraph.ScriptRecord)
	s.order = nil
	return nil
}

// SaveGraph stores g, replacing any graph with the same ID.
func (s *MemStore) SaveGraph(ctx context.Context, g *paramgraph.Graph) error {
	b, err := paramgraph.MarshalGraph(g)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.ID] = b
	s.infos[g.ID] = paramgraph.GraphInfo{ID: g.ID, ChangeID: g.ChangeID, NodeCount: g.NodeCount()}
	return nil
}

// GetGraph returns a fresh copy of the graph, or nil, nil if not found.
func (s *MemStore) GetGraph(ctx context.Context, graphID string) (*paramgraph.Graph, error) {
	s.mu.RLock()
	b, ok := s.graphs[graphID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return paramgraph.UnmarshalGraph(b)
}

// DeleteGraph removes a graph and its scripts. No error if it doesn't exist.
func (s *MemStore) DeleteGraph(ctx context.Context, graphID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.graphs, graphID)
	delete(s.infos, graphID)
	for id, rec := range s.scripts {
		if rec.GraphID == graphID {
			delete(s.scripts, id)
		}
	}
	return nil
}

// ListGraphs returns every graph ordered by ID.
func (s *MemStore) ListGraphs(ctx context.Context) ([]paramgraph.GraphInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]paramgraph.GraphInfo, 0, len(s.infos))
	for _, info := range s.infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveScript inserts or updates a script record.
func (s *MemStore) SaveScript(ctx context.Context, rec *paramgraph.ScriptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scripts[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.scripts[rec.ID] = *rec
	return nil
}

// GetScript returns the script record, or nil, nil if not found.
func (s *MemStore) GetScript(ctx context.Context, scriptID string) (*paramgraph.ScriptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.scripts[scriptID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// ListScripts returns the scripts of a graph in insertion order.
func (s *MemStore) ListScripts(ctx context.Context, graphID string) ([]paramgraph.ScriptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []paramgraph.ScriptRecord{}
	for _, id := range s.order {
		if rec, ok := s.scripts[id]; ok && rec.GraphID == graphID {
			out = append(out, rec)
		}
	}
	return out, nil
}

var _ paramgraph.Store = (*MemStore)(nil)
