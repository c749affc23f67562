package paramgraph

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNodeNotFound    = errors.New("paramgraph: node not found")
	ErrPinNotFound     = errors.New("paramgraph: pin not found")
	ErrInvalidLink     = errors.New("paramgraph: invalid link")
	ErrTypeMismatch    = errors.New("paramgraph: pin types do not match")
	ErrWrongNodeKind   = errors.New("paramgraph: wrong node kind")
	ErrRecursiveCall   = errors.New("paramgraph: function call would recurse into its own graph")
	ErrMissingCallee   = errors.New("paramgraph: callee script is not available")
	ErrScriptNotFound  = errors.New("paramgraph: script not found")
	ErrGraphNotFound   = errors.New("paramgraph: graph not found")
	ErrCorruptGraph    = errors.New("paramgraph: corrupt graph data")
	ErrReservedPinName = errors.New("paramgraph: pin name is reserved")
)

// GraphInfo summarizes a persisted graph.
type GraphInfo struct {
	ID        string    `json:"id"`
	ChangeID  uuid.UUID `json:"change_id"`
	NodeCount int       `json:"node_count"`
}

// ScriptRecord is the persisted form of a Script. The script's graph is stored
// separately and referenced by GraphID.
type ScriptRecord struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Usage      ScriptUsage `json:"usage"`
	UsageIndex int         `json:"usage_index"`
	GraphID    string      `json:"graph_id"`
	ChangeID   uuid.UUID   `json:"change_id"`
	UniqueID   uuid.UUID   `json:"unique_id"`
}

// Store defines the contract for persisting and retrieving graphs and scripts.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Graphs (nodes, pins and links are saved and loaded as a unit)
	SaveGraph(ctx context.Context, g *Graph) error
	GetGraph(ctx context.Context, graphID string) (*Graph, error)
	DeleteGraph(ctx context.Context, graphID string) error
	ListGraphs(ctx context.Context) ([]GraphInfo, error)

	// Scripts
	SaveScript(ctx context.Context, rec *ScriptRecord) error
	GetScript(ctx context.Context, scriptID string) (*ScriptRecord, error)
	ListScripts(ctx context.Context, graphID string) ([]ScriptRecord, error)
}
