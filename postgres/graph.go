package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meikuraledutech/paramgraph"
)

// dbtx is satisfied by both the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SaveGraph saves a full graph (nodes, pins and links) in one transaction,
// replacing whatever was stored under the same ID.
func (s *PGStore) SaveGraph(ctx context.Context, g *paramgraph.Graph) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("paramgraph: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO paramgraph_graphs (id, change_id) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET change_id = EXCLUDED.change_id, updated_at = NOW()`,
		g.ID, g.ChangeID,
	); err != nil {
		return fmt.Errorf("paramgraph: upsert graph: %w", err)
	}

	// Pins and links cascade with their nodes.
	if _, err := tx.Exec(ctx, `DELETE FROM paramgraph_nodes WHERE graph_id = $1`, g.ID); err != nil {
		return fmt.Errorf("paramgraph: delete nodes: %w", err)
	}

	if err := insertNodes(ctx, tx, g); err != nil {
		return err
	}
	if err := insertPins(ctx, tx, g); err != nil {
		return err
	}
	if err := insertLinks(ctx, tx, g); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("paramgraph: commit: %w", err)
	}
	return nil
}

// GetGraph retrieves a full graph by its ID.
// Returns nil, nil if the graph doesn't exist.
func (s *PGStore) GetGraph(ctx context.Context, graphID string) (*paramgraph.Graph, error) {
	var changeID uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT change_id FROM paramgraph_graphs WHERE id = $1`, graphID,
	).Scan(&changeID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("paramgraph: get graph: %w", err)
	}

	nodes, err := listNodes(ctx, s.db, graphID)
	if err != nil {
		return nil, err
	}
	pins, err := listPins(ctx, s.db, graphID, nodes)
	if err != nil {
		return nil, err
	}
	return paramgraph.RestoreGraph(graphID, changeID, nodes, pins)
}

// DeleteGraph removes a graph with its nodes, pins, links and scripts.
// No error if the graph doesn't exist.
func (s *PGStore) DeleteGraph(ctx context.Context, graphID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM paramgraph_graphs WHERE id = $1`, graphID)
	if err != nil {
		return fmt.Errorf("paramgraph: delete graph: %w", err)
	}
	return nil
}

// ListGraphs returns a summary of every stored graph, ordered by ID.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListGraphs(ctx context.Context) ([]paramgraph.GraphInfo, error) {
	rows, err := s.db.Query(ctx,
		`SELECT g.id, g.change_id, COUNT(n.id)
		 FROM paramgraph_graphs g LEFT JOIN paramgraph_nodes n ON n.graph_id = g.id
		 GROUP BY g.id, g.change_id ORDER BY g.id`)
	if err != nil {
		return nil, fmt.Errorf("paramgraph: list graphs: %w", err)
	}
	defer rows.Close()

	graphs := []paramgraph.GraphInfo{}
	for rows.Next() {
		var info paramgraph.GraphInfo
		if err := rows.Scan(&info.ID, &info.ChangeID, &info.NodeCount); err != nil {
			return nil, fmt.Errorf("paramgraph: scan graph: %w", err)
		}
		graphs = append(graphs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("paramgraph: rows graphs: %w", err)
	}
	return graphs, nil
}
