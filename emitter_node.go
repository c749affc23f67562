package paramgraph

import "fmt"

// emitterUsageOrder is the order in which an emitter's stages are merged into
// the system history.
var emitterUsageOrder = []ScriptUsage{
	UsageEmitterSpawn,
	UsageEmitterUpdate,
	UsageParticleSpawn,
	UsageParticleUpdate,
	UsageParticleEvent,
}

// EmitterData is the payload of an Emitter node, which composes an emitter's
// stage graphs into a system script.
type EmitterData struct {
	EmitterName string   `json:"emitter_name"`
	GraphID     string   `json:"graph_id"`
	Emitter     *Emitter `json:"-"`
}

func (*EmitterData) Kind() NodeKind { return KindEmitter }

// AddEmitter adds a composition node for e with a map input and a map output.
func (g *Graph) AddEmitter(e *Emitter) (*Node, error) {
	if e == nil || e.Source == nil || e.Source.Graph == nil {
		return nil, ErrMissingCallee
	}
	var reached []*Graph
	collectGraphs(e.Source.Graph, map[string]bool{}, &reached)
	for _, rg := range reached {
		if rg.ID == g.ID {
			return nil, fmt.Errorf("%w: emitter %s reaches graph %s", ErrRecursiveCall, e.Name, g.ID)
		}
	}
	n := g.newNode(e.Name, &EmitterData{EmitterName: e.Name, GraphID: e.Source.Graph.ID, Emitter: e})
	g.newPin(n, DirInput, PinNameMapIn, TypeParameterMap)
	g.newPin(n, DirOutput, PinNameMapOut, TypeParameterMap)
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return n, nil
}

func (d *EmitterData) buildHistory(b *HistoryBuilder, v *graphVisit, n *Node) {
	g := v.graph
	mapIn := g.MapInputPin(n)
	slot := b.slotFor(v, mapIn)
	if mapIn != nil {
		b.histories[slot].MapPinHistory = append(b.histories[slot].MapPinHistory, g.PinRef(mapIn))
	}
	if out := g.MapOutputPin(n); out != nil {
		v.slots[out.ID] = slot
	}
	if d.Emitter == nil || d.Emitter.Source == nil || d.Emitter.Source.Graph == nil {
		b.logger.Warn("emitter node has no emitter", "node", n.ID, "emitter", d.EmitterName)
		return
	}

	eg := d.Emitter.Source.Graph
	usage := b.usage
	b.enter(FrameEmitter, d.EmitterName)
	for _, u := range emitterUsageOrder {
		for _, out := range eg.FindOutputNodes(u) {
			b.usage = u
			child := b.history(b.buildGraph(eg, out.ID))
			if child != nil {
				b.histories[slot].Merge(child)
			}
		}
	}
	b.exit()
	b.usage = usage
}
