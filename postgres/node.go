package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/paramgraph"
)

// insertNodes writes every live node of g with its encoded payload.
func insertNodes(ctx context.Context, db dbtx, g *paramgraph.Graph) error {
	for _, n := range g.LiveNodes() {
		data, err := paramgraph.MarshalNodeData(n.Data)
		if err != nil {
			return err
		}
		if _, err := db.Exec(ctx,
			`INSERT INTO paramgraph_nodes (graph_id, id, name, kind, data) VALUES ($1, $2, $3, $4, $5)`,
			g.ID, int32(n.ID), n.Name, n.Kind().String(), data,
		); err != nil {
			return fmt.Errorf("paramgraph: insert node %d: %w", n.ID, err)
		}
	}
	return nil
}

// listNodes returns all nodes of a graph ordered by handle. Pin lists are
// filled in by listPins.
func listNodes(ctx context.Context, db dbtx, graphID string) ([]*paramgraph.Node, error) {
	rows, err := db.Query(ctx,
		`SELECT id, name, kind, data FROM paramgraph_nodes WHERE graph_id = $1 ORDER BY id`, graphID)
	if err != nil {
		return nil, fmt.Errorf("paramgraph: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []*paramgraph.Node{}
	for rows.Next() {
		var (
			id   int32
			name string
			kind string
			data []byte
		)
		if err := rows.Scan(&id, &name, &kind, &data); err != nil {
			return nil, fmt.Errorf("paramgraph: scan node: %w", err)
		}
		k, err := paramgraph.ParseNodeKind(kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", paramgraph.ErrCorruptGraph, err)
		}
		payload, err := paramgraph.UnmarshalNodeData(k, data)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &paramgraph.Node{ID: paramgraph.NodeID(id), Name: name, Data: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("paramgraph: rows nodes: %w", err)
	}
	return nodes, nil
}

// isNoRows checks if the error is a "no rows" error from pgx.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
