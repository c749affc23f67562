package paramgraph

// BuildTraversal walks the graph backwards from output along linked input pins
// and returns the visited nodes in post-order: every node appears after all of
// the nodes feeding its inputs. Unlinked inputs are skipped.
//
// Each node appears once. A link that closes a cycle is ignored, so graphs that
// bypass the edit-time recursion check still terminate.
func BuildTraversal(g *Graph, output NodeID) []NodeID {
	start := g.Node(output)
	if start == nil {
		return []NodeID{}
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[NodeID]int)
	order := []NodeID{}

	var visit func(n *Node)
	visit = func(n *Node) {
		state[n.ID] = visiting
		for _, pid := range n.Pins {
			p := g.Pin(pid)
			if p == nil || p.Direction != DirInput || !p.IsLinked() {
				continue
			}
			src := g.Pin(p.LinkedTo())
			if src == nil {
				continue
			}
			prev := g.Node(src.Node)
			if prev == nil {
				continue
			}
			if state[prev.ID] == unvisited {
				visit(prev)
			}
		}
		state[n.ID] = visited
		order = append(order, n.ID)
	}
	visit(start)

	return order
}

// TraversalNodes resolves the handles returned by BuildTraversal.
func TraversalNodes(g *Graph, order []NodeID) []*Node {
	out := make([]*Node, 0, len(order))
	for _, id := range order {
		if n := g.Node(id); n != nil {
			out = append(out, n)
		}
	}
	return out
}
