package paramgraph

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mitchellh/copystructure"
)

// Source owns the single Graph behind one or more Scripts.
type Source struct {
	Graph *Graph `json:"graph"`

	snapshot *Snapshot
}

// NewSource creates a source with a fresh empty graph.
func NewSource() *Source {
	return &Source{Graph: NewGraph()}
}

// NewSourceFromGraph wraps an existing graph.
func NewSourceFromGraph(g *Graph) *Source {
	return &Source{Graph: g}
}

// IsSynchronized reports whether candidate is the graph's current change id.
func (s *Source) IsSynchronized(candidate uuid.UUID) bool {
	return s.Graph != nil && s.Graph.ChangeID == candidate
}

// MarkDesynchronized forces every script compiled from this source to be
// considered stale. It is called when a graph referenced from this one changes.
func (s *Source) MarkDesynchronized() {
	s.Graph.NotifyGraphChanged(ActionNeedsRecompile)
}

// Snapshot is an isolated deep copy of a source graph, including every graph it
// references, taken for the duration of a compile pass.
type Snapshot struct {
	Graph     *Graph     `json:"graph"`
	Histories []*History `json:"histories"`
	// ChangeID is the live graph's change id when the copy was taken.
	ChangeID uuid.UUID `json:"change_id"`
}

// BeginPrecompile takes the snapshot and precomputes the histories of every
// Output node. Calling it again before EndPostcompile does nothing.
func (s *Source) BeginPrecompile() error {
	if s.snapshot != nil {
		return nil
	}
	c, err := copystructure.Copy(s.Graph)
	if err != nil {
		return fmt.Errorf("paramgraph: snapshot graph: %w", err)
	}
	g := c.(*Graph)
	s.snapshot = &Snapshot{
		Graph:     g,
		Histories: BuildParameterMaps(g, NoNode, false, ""),
		ChangeID:  s.Graph.ChangeID,
	}
	snapshotsActive.Inc()
	return nil
}

// Precompiled returns the active snapshot, or nil outside a compile pass.
func (s *Source) Precompiled() *Snapshot { return s.snapshot }

// PrecomputedHistories returns the snapshot's histories, or nil outside a compile pass.
func (s *Source) PrecomputedHistories() []*History {
	if s.snapshot == nil {
		return nil
	}
	return s.snapshot.Histories
}

// EndPostcompile releases the snapshot and its histories.
func (s *Source) EndPostcompile() {
	if s.snapshot != nil {
		snapshotsActive.Dec()
	}
	s.snapshot = nil
}

// Script is a compilable view of a Source for one usage. Several scripts can
// share a source; UniqueID tells them apart.
type Script struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Usage      ScriptUsage `json:"usage"`
	UsageIndex int         `json:"usage_index"`
	Source     *Source     `json:"-"`
	// ChangeID is the graph change id this script was last compiled against.
	ChangeID uuid.UUID `json:"change_id"`
	UniqueID uuid.UUID `json:"unique_id"`
}

// NewScript creates a script over src. It starts unsynchronized.
func NewScript(name string, usage ScriptUsage, src *Source) *Script {
	return &Script{
		ID:       uuid.NewString(),
		Name:     name,
		Usage:    usage,
		Source:   src,
		UniqueID: uuid.New(),
	}
}

// Graph returns the script's live graph, or nil.
func (s *Script) Graph() *Graph {
	if s == nil || s.Source == nil {
		return nil
	}
	return s.Source.Graph
}

// SetChangeID records the graph change id the script now matches and
// regenerates UniqueID.
func (s *Script) SetChangeID(id uuid.UUID) {
	s.ChangeID = id
	s.UniqueID = uuid.New()
}

// IsSynchronized reports whether the script matches its source graph.
func (s *Script) IsSynchronized() bool {
	return s.Source != nil && s.Source.IsSynchronized(s.ChangeID)
}

// ReferencedGraphs returns the script's own graph followed by every graph it
// reaches through FunctionCall, Assignment and Emitter nodes, without duplicates.
func (s *Script) ReferencedGraphs() []*Graph {
	g := s.Graph()
	if g == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []*Graph
	collectGraphs(g, seen, &out)
	return out
}

// References reports whether g is the script's graph or any graph it reaches.
func (s *Script) References(g *Graph) bool {
	for _, rg := range s.ReferencedGraphs() {
		if rg == g || rg.ID == g.ID {
			return true
		}
	}
	return false
}

func collectGraphs(g *Graph, seen map[string]bool, out *[]*Graph) {
	if g == nil || seen[g.ID] {
		return
	}
	seen[g.ID] = true
	*out = append(*out, g)
	for _, n := range g.LiveNodes() {
		for _, rg := range referencedFrom(n) {
			collectGraphs(rg, seen, out)
		}
	}
}

// referencedFrom lists the graphs a single node points at.
func referencedFrom(n *Node) []*Graph {
	switch d := n.Data.(type) {
	case *FunctionCallData:
		if g := d.Callee.Graph(); g != nil {
			return []*Graph{g}
		}
	case *AssignmentData:
		if g := d.Call.Callee.Graph(); g != nil {
			return []*Graph{g}
		}
	case *EmitterData:
		if d.Emitter != nil && d.Emitter.Source != nil {
			return []*Graph{d.Emitter.Source.Graph}
		}
	}
	return nil
}

// Record converts the script to its persisted form.
func (s *Script) Record() ScriptRecord {
	rec := ScriptRecord{
		ID:         s.ID,
		Name:       s.Name,
		Usage:      s.Usage,
		UsageIndex: s.UsageIndex,
		ChangeID:   s.ChangeID,
		UniqueID:   s.UniqueID,
	}
	if g := s.Graph(); g != nil {
		rec.GraphID = g.ID
	}
	return rec
}

// ScriptFromRecord rebuilds a script over an already loaded source.
func ScriptFromRecord(rec ScriptRecord, src *Source) *Script {
	return &Script{
		ID:         rec.ID,
		Name:       rec.Name,
		Usage:      rec.Usage,
		UsageIndex: rec.UsageIndex,
		Source:     src,
		ChangeID:   rec.ChangeID,
		UniqueID:   rec.UniqueID,
	}
}

// Emitter is a sub-context composed into system scripts through an Emitter node.
// Its scripts share one source graph holding an Output node per stage.
type Emitter struct {
	Name    string    `json:"name"`
	Source  *Source   `json:"-"`
	Scripts []*Script `json:"scripts"`
}

// NewEmitter creates an emitter over src.
func NewEmitter(name string, src *Source) *Emitter {
	return &Emitter{Name: name, Source: src}
}

// AddScript registers a script for one stage of the emitter.
func (e *Emitter) AddScript(usage ScriptUsage, usageIndex int) *Script {
	s := NewScript(e.Name+"."+usage.String(), usage, e.Source)
	s.UsageIndex = usageIndex
	e.Scripts = append(e.Scripts, s)
	return s
}

// Script returns the emitter's script for usage, or nil.
func (e *Emitter) Script(usage ScriptUsage, usageIndex int) *Script {
	for _, s := range e.Scripts {
		if s.Usage == usage && s.UsageIndex == usageIndex {
			return s
		}
	}
	return nil
}
