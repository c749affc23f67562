package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS paramgraph_graphs (
    id         TEXT PRIMARY KEY,
    change_id  UUID NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS paramgraph_nodes (
    graph_id TEXT NOT NULL REFERENCES paramgraph_graphs(id) ON DELETE CASCADE,
    id       INTEGER NOT NULL,
    name     TEXT NOT NULL DEFAULT '',
    kind     TEXT NOT NULL,
    data     JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (graph_id, id)
);

CREATE TABLE IF NOT EXISTS paramgraph_pins (
    graph_id  TEXT NOT NULL,
    id        INTEGER NOT NULL,
    node_id   INTEGER NOT NULL,
    position  INTEGER NOT NULL,
    direction SMALLINT NOT NULL,
    name      TEXT NOT NULL,
    type_name TEXT NOT NULL DEFAULT '',
    type_size INTEGER NOT NULL DEFAULT 0,
    default_value BYTEA,
    add_pin   BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (graph_id, id),
    FOREIGN KEY (graph_id, node_id) REFERENCES paramgraph_nodes(graph_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS paramgraph_links (
    graph_id TEXT NOT NULL,
    from_pin INTEGER NOT NULL,
    to_pin   INTEGER NOT NULL,
    PRIMARY KEY (graph_id, from_pin, to_pin),
    FOREIGN KEY (graph_id, from_pin) REFERENCES paramgraph_pins(graph_id, id) ON DELETE CASCADE,
    FOREIGN KEY (graph_id, to_pin)   REFERENCES paramgraph_pins(graph_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS paramgraph_scripts (
    id          TEXT PRIMARY KEY,
    graph_id    TEXT NOT NULL REFERENCES paramgraph_graphs(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    usage       TEXT NOT NULL,
    usage_index INTEGER NOT NULL DEFAULT 0,
    change_id   UUID NOT NULL,
    unique_id   UUID NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_paramgraph_scripts_graph_id ON paramgraph_scripts(graph_id);
`

// CreateSchema creates the paramgraph tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops every paramgraph table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS paramgraph_scripts, paramgraph_links, paramgraph_pins, paramgraph_nodes, paramgraph_graphs CASCADE;`)
	return err
}
