package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/paramgraph"
)

// SaveScript inserts or updates a script record.
func (s *PGStore) SaveScript(ctx context.Context, rec *paramgraph.ScriptRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO paramgraph_scripts (id, graph_id, name, usage, usage_index, change_id, unique_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   graph_id = EXCLUDED.graph_id, name = EXCLUDED.name, usage = EXCLUDED.usage,
		   usage_index = EXCLUDED.usage_index, change_id = EXCLUDED.change_id, unique_id = EXCLUDED.unique_id`,
		rec.ID, rec.GraphID, rec.Name, rec.Usage.String(), rec.UsageIndex, rec.ChangeID, rec.UniqueID,
	)
	if err != nil {
		return fmt.Errorf("paramgraph: save script: %w", err)
	}
	return nil
}

// GetScript fetches a single script by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetScript(ctx context.Context, scriptID string) (*paramgraph.ScriptRecord, error) {
	var (
		rec   paramgraph.ScriptRecord
		usage string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, graph_id, name, usage, usage_index, change_id, unique_id
		 FROM paramgraph_scripts WHERE id = $1`, scriptID,
	).Scan(&rec.ID, &rec.GraphID, &rec.Name, &usage, &rec.UsageIndex, &rec.ChangeID, &rec.UniqueID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("paramgraph: get script: %w", err)
	}
	if rec.Usage, err = paramgraph.ParseScriptUsage(usage); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListScripts returns all scripts compiled from a graph, ordered by created_at.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListScripts(ctx context.Context, graphID string) ([]paramgraph.ScriptRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, graph_id, name, usage, usage_index, change_id, unique_id
		 FROM paramgraph_scripts WHERE graph_id = $1 ORDER BY created_at, id`, graphID)
	if err != nil {
		return nil, fmt.Errorf("paramgraph: list scripts: %w", err)
	}
	defer rows.Close()

	scripts := []paramgraph.ScriptRecord{}
	for rows.Next() {
		var (
			rec   paramgraph.ScriptRecord
			usage string
		)
		if err := rows.Scan(&rec.ID, &rec.GraphID, &rec.Name, &usage, &rec.UsageIndex, &rec.ChangeID, &rec.UniqueID); err != nil {
			return nil, fmt.Errorf("paramgraph: scan script: %w", err)
		}
		if rec.Usage, err = paramgraph.ParseScriptUsage(usage); err != nil {
			return nil, err
		}
		scripts = append(scripts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("paramgraph: rows scripts: %w", err)
	}
	return scripts, nil
}
