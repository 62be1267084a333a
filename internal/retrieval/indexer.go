package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
	"github.com/fyrsmithlabs/atlasd/internal/store"
)

// Indexer projects the occupancy database into grounding chunks and loads
// them into the vector store. It runs offline (the `atlasd index` command),
// never in the request path.
type Indexer struct {
	db     *store.Store
	vs     Store
	logger *zap.Logger
}

// NewIndexer wires an Indexer over the occupancy store and the vector store.
func NewIndexer(db *store.Store, vs Store, logger *zap.Logger) (*Indexer, error) {
	if db == nil || vs == nil {
		return nil, fmt.Errorf("%w: store and vector store are required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{db: db, vs: vs, logger: logger}, nil
}

// BuildIndex materializes one text chunk per projected row and indexes the
// lot. Chunk ids are "<source>-<n>" over the row order of the projection
// query, so rebuilding from the same database produces the same ids.
func (ix *Indexer) BuildIndex(ctx context.Context) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "Indexer.BuildIndex")
	defer span.End()

	var docs []Document
	for _, p := range ix.projections() {
		rs, err := p.fetch(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, fmt.Errorf("projecting %s: %w", p.source, err)
		}
		for i, row := range rs.Rows {
			docs = append(docs, Document{
				ID:      fmt.Sprintf("%s-%d", p.source, i),
				Content: fmt.Sprintf("[%s] %s", p.label, renderRow(row)),
				Source:  p.source,
			})
		}
	}

	if len(docs) == 0 {
		return 0, fmt.Errorf("occupancy database produced no grounding rows")
	}
	if err := ix.vs.Add(ctx, docs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("indexing grounding chunks: %w", err)
	}

	span.SetAttributes(attribute.Int("chunks", len(docs)))
	ix.logger.Info("grounding index built", zap.Int("chunks", len(docs)))
	return len(docs), nil
}

type projection struct {
	source string
	label  string
	fetch  func(ctx context.Context) (*answer.ResultSet, error)
}

func (ix *Indexer) projections() []projection {
	return []projection{
		{
			source: "spaces",
			label:  "room directory",
			fetch:  ix.allSpaces,
		},
		{
			source: "utilization_7d",
			label:  "floor utilization, last 7 days",
			fetch: func(ctx context.Context) (*answer.ResultSet, error) {
				return ix.db.UtilizationByFloor(ctx, 7)
			},
		},
		{
			source: "utilization_30d",
			label:  "floor utilization, last 30 days",
			fetch: func(ctx context.Context) (*answer.ResultSet, error) {
				return ix.db.UtilizationByFloor(ctx, 30)
			},
		},
		{
			source: "busiest_30d",
			label:  "busiest rooms, last 30 days",
			fetch: func(ctx context.Context) (*answer.ResultSet, error) {
				return ix.db.BusiestRooms(ctx, nil, 30, 10)
			},
		},
		{
			source: "underused_30d",
			label:  "underused rooms, last 30 days",
			fetch: func(ctx context.Context) (*answer.ResultSet, error) {
				return ix.db.UnderusedRooms(ctx, nil, 30, 0.10)
			},
		},
		{
			source: "zones_30d",
			label:  "zone activity, last 30 days",
			fetch: func(ctx context.Context) (*answer.ResultSet, error) {
				return ix.db.ZoneFeatures(ctx, nil, 0, 30)
			},
		},
	}
}

// allSpaces walks the floor list so the directory projection reuses the same
// queries the tools serve.
func (ix *Indexer) allSpaces(ctx context.Context) (*answer.ResultSet, error) {
	floors, err := ix.db.ListFloors(ctx)
	if err != nil {
		return nil, err
	}
	out := &answer.ResultSet{}
	for _, fr := range floors.Rows {
		floor, ok := asInt(fr["floor"])
		if !ok {
			continue
		}
		rooms, err := ix.db.RoomsOnFloor(ctx, floor)
		if err != nil {
			return nil, err
		}
		if out.Columns == nil {
			out.Columns = rooms.Columns
		}
		out.Rows = append(out.Rows, rooms.Rows...)
	}
	out.RowCount = len(out.Rows)
	return out, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// renderRow flattens one result row to "col: value" pairs in column order
// (sorted, since maps don't keep one), which embeds well enough for tabular
// facts.
func renderRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, row[k]))
	}
	return strings.Join(parts, ", ")
}
