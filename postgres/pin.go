package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/paramgraph"
)

// insertPins writes the pins of every live node, keeping display order.
func insertPins(ctx context.Context, db dbtx, g *paramgraph.Graph) error {
	for _, n := range g.LiveNodes() {
		for pos, p := range g.NodePins(n) {
			if _, err := db.Exec(ctx,
				`INSERT INTO paramgraph_pins
				 (graph_id, id, node_id, position, direction, name, type_name, type_size, default_value, add_pin)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				g.ID, int32(p.ID), int32(n.ID), pos, int16(p.Direction), p.Name,
				p.Type.Name, p.Type.Size, p.Default, p.AddPin,
			); err != nil {
				return fmt.Errorf("paramgraph: insert pin %d: %w", p.ID, err)
			}
		}
	}
	return nil
}

// insertLinks writes each link once, from its output pin to its input pin.
func insertLinks(ctx context.Context, tx pgx.Tx, g *paramgraph.Graph) error {
	batch := &pgx.Batch{}
	for _, n := range g.LiveNodes() {
		for _, p := range g.NodePins(n, paramgraph.DirOutput) {
			for _, to := range p.Links {
				batch.Queue(
					`INSERT INTO paramgraph_links (graph_id, from_pin, to_pin) VALUES ($1, $2, $3)`,
					g.ID, int32(p.ID), int32(to),
				)
			}
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("paramgraph: insert links: %w", err)
	}
	return nil
}

// listPins returns all pins of a graph with their links, and fills in the pin
// order of nodes.
func listPins(ctx context.Context, db dbtx, graphID string, nodes []*paramgraph.Node) ([]*paramgraph.Pin, error) {
	rows, err := db.Query(ctx,
		`SELECT id, node_id, direction, name, type_name, type_size, default_value, add_pin
		 FROM paramgraph_pins WHERE graph_id = $1 ORDER BY node_id, position`, graphID)
	if err != nil {
		return nil, fmt.Errorf("paramgraph: list pins: %w", err)
	}
	defer rows.Close()

	byNode := make(map[paramgraph.NodeID]*paramgraph.Node, len(nodes))
	for _, n := range nodes {
		byNode[n.ID] = n
	}
	pins := []*paramgraph.Pin{}
	byID := make(map[paramgraph.PinID]*paramgraph.Pin)
	for rows.Next() {
		var (
			id, nodeID int32
			dir        int16
			p          paramgraph.Pin
		)
		if err := rows.Scan(&id, &nodeID, &dir, &p.Name, &p.Type.Name, &p.Type.Size, &p.Default, &p.AddPin); err != nil {
			return nil, fmt.Errorf("paramgraph: scan pin: %w", err)
		}
		p.ID = paramgraph.PinID(id)
		p.Node = paramgraph.NodeID(nodeID)
		p.Direction = paramgraph.Direction(dir)
		pins = append(pins, &p)
		byID[p.ID] = &p
		if n, ok := byNode[p.Node]; ok {
			n.Pins = append(n.Pins, p.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("paramgraph: rows pins: %w", err)
	}

	rows, err = db.Query(ctx,
		`SELECT from_pin, to_pin FROM paramgraph_links WHERE graph_id = $1 ORDER BY from_pin, to_pin`, graphID)
	if err != nil {
		return nil, fmt.Errorf("paramgraph: list links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var from, to int32
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("paramgraph: scan link: %w", err)
		}
		fp, tp := byID[paramgraph.PinID(from)], byID[paramgraph.PinID(to)]
		if fp == nil || tp == nil {
			return nil, fmt.Errorf("%w: link %d -> %d", paramgraph.ErrCorruptGraph, from, to)
		}
		fp.Links = append(fp.Links, tp.ID)
		tp.Links = append(tp.Links, fp.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("paramgraph: rows links: %w", err)
	}
	return pins, nil
}
