package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"basegraph.app/sandbox/internal/model"
)

type workspaceDoc struct {
	ID           int64        `bson:"_id"`
	Name         string       `bson:"name"`
	Namespace    string       `bson:"namespace"`
	Tables       []tableDoc   `bson:"tables"`
	QueryHistory []historyDoc `bson:"query_history"`
	CreatedAt    time.Time    `bson:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at"`
}

type tableDoc struct {
	Name      string      `bson:"name"`
	Columns   []columnDoc `bson:"columns"`
	Rows      []bson.D    `bson:"rows"`
	CreatedAt time.Time   `bson:"created_at"`
}

type columnDoc struct {
	Name     string `bson:"name"`
	DataType string `bson:"data_type"`
}

type historyDoc struct {
	Query      string    `bson:"query"`
	Status     string    `bson:"status"`
	Result     string    `bson:"result,omitempty"`
	Error      string    `bson:"error,omitempty"`
	ExecutedAt time.Time `bson:"executed_at"`
}

type workspaceStore struct {
	coll *mongo.Collection
}

func newWorkspaceStore(coll *mongo.Collection) WorkspaceStore {
	return &workspaceStore{coll: coll}
}

func ensureWorkspaceIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "namespace", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("namespace_unique"),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("updated_at_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("creating workspace indexes: %w", err)
	}
	return nil
}

func (s *workspaceStore) GetByID(ctx context.Context, id int64) (*model.Workspace, error) {
	var doc workspaceDoc
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toWorkspaceModel(doc), nil
}

func (s *workspaceStore) Create(ctx context.Context, ws *model.Workspace) error {
	now := time.Now().UTC()
	ws.CreatedAt = now
	ws.UpdatedAt = now
	if ws.Tables == nil {
		ws.Tables = []model.Table{}
	}
	if ws.QueryHistory == nil {
		ws.QueryHistory = []model.QueryHistoryEntry{}
	}

	if _, err := s.coll.InsertOne(ctx, toWorkspaceDoc(ws)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *workspaceStore) Update(ctx context.Context, ws *model.Workspace) error {
	now := time.Now().UTC()
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: ws.Name},
		{Key: "tables", Value: toTableDocs(ws.Tables)},
		{Key: "updated_at", Value: now},
	}}}

	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: ws.ID}}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	ws.UpdatedAt = now
	return nil
}

func (s *workspaceStore) Delete(ctx context.Context, id int64) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *workspaceStore) List(ctx context.Context, limit int) ([]model.Workspace, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetProjection(bson.D{{Key: "query_history", Value: 0}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []workspaceDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding workspaces: %w", err)
	}

	result := make([]model.Workspace, 0, len(docs))
	for _, doc := range docs {
		result = append(result, *toWorkspaceModel(doc))
	}
	return result, nil
}

func (s *workspaceStore) AppendQueryHistory(ctx context.Context, id int64, entry model.QueryHistoryEntry) error {
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "query_history", Value: bson.D{
			{Key: "$each", Value: []historyDoc{toHistoryDoc(entry)}},
			{Key: "$slice", Value: -model.MaxQueryHistory},
		}}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC()}}},
	}

	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func toWorkspaceDoc(ws *model.Workspace) workspaceDoc {
	history := make([]historyDoc, 0, len(ws.QueryHistory))
	for _, h := range ws.QueryHistory {
		history = append(history, toHistoryDoc(h))
	}
	return workspaceDoc{
		ID:           ws.ID,
		Name:         ws.Name,
		Namespace:    ws.Namespace,
		Tables:       toTableDocs(ws.Tables),
		QueryHistory: history,
		CreatedAt:    ws.CreatedAt,
		UpdatedAt:    ws.UpdatedAt,
	}
}

func toTableDocs(tables []model.Table) []tableDoc {
	docs := make([]tableDoc, 0, len(tables))
	for _, t := range tables {
		cols := make([]columnDoc, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, columnDoc{Name: c.Name, DataType: c.DataType})
		}
		docs = append(docs, tableDoc{
			Name:      t.Name,
			Columns:   cols,
			Rows:      toRowDocs(t.Columns, t.Rows),
			CreatedAt: t.CreatedAt,
		})
	}
	return docs
}

// toRowDocs stores rows as ordered documents: declared columns first in
// declaration order, then any stray keys.
func toRowDocs(columns []model.Column, rows []map[string]any) []bson.D {
	docs := make([]bson.D, 0, len(rows))
	for _, row := range rows {
		doc := make(bson.D, 0, len(row))
		seen := make(map[string]struct{}, len(columns))
		for _, c := range columns {
			if v, ok := row[c.Name]; ok {
				doc = append(doc, bson.E{Key: c.Name, Value: v})
				seen[c.Name] = struct{}{}
			}
		}
		for k, v := range row {
			if _, ok := seen[k]; !ok {
				doc = append(doc, bson.E{Key: k, Value: v})
			}
		}
		docs = append(docs, doc)
	}
	return docs
}

func toHistoryDoc(h model.QueryHistoryEntry) historyDoc {
	return historyDoc{
		Query:      h.Query,
		Status:     string(h.Status),
		Result:     h.Result,
		Error:      h.Error,
		ExecutedAt: h.ExecutedAt,
	}
}

func toWorkspaceModel(doc workspaceDoc) *model.Workspace {
	tables := make([]model.Table, 0, len(doc.Tables))
	for _, t := range doc.Tables {
		cols := make([]model.Column, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, model.Column{Name: c.Name, DataType: c.DataType})
		}
		rows := make([]map[string]any, 0, len(t.Rows))
		for _, r := range t.Rows {
			rows = append(rows, documentToMap(r))
		}
		tables = append(tables, model.Table{
			Name:      t.Name,
			Columns:   cols,
			Rows:      rows,
			CreatedAt: t.CreatedAt,
		})
	}

	history := make([]model.QueryHistoryEntry, 0, len(doc.QueryHistory))
	for _, h := range doc.QueryHistory {
		history = append(history, model.QueryHistoryEntry{
			Query:      h.Query,
			Status:     model.QueryStatus(h.Status),
			Result:     h.Result,
			Error:      h.Error,
			ExecutedAt: h.ExecutedAt,
		})
	}

	return &model.Workspace{
		ID:           doc.ID,
		Name:         doc.Name,
		Namespace:    doc.Namespace,
		Tables:       tables,
		QueryHistory: history,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func documentToMap(doc bson.D) map[string]any {
	out := make(map[string]any, len(doc))
	for _, e := range doc {
		out[e.Key] = fromBSONValue(e.Value)
	}
	return out
}

// fromBSONValue turns driver-specific values back into the plain Go values
// the compiler and the JSON encoder understand.
func fromBSONValue(value any) any {
	switch v := value.(type) {
	case bson.D:
		return documentToMap(v)
	case bson.M:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = fromBSONValue(val)
		}
		return out
	case bson.A:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = fromBSONValue(val)
		}
		return out
	case int32:
		return int64(v)
	case bson.DateTime:
		return v.Time().UTC()
	case bson.Decimal128:
		return v.String()
	case bson.ObjectID:
		return v.Hex()
	case bson.Binary:
		return v.Data
	case bson.Null, bson.Undefined:
		return nil
	default:
		return v
	}
}
