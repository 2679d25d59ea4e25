// Package semantic is the sole owner of all Qdrant operations: collection
// lifecycle for the named-vector product schema, batched point upsert, and
// vector queries.
package semantic

import (
	"context"
	"fmt"
	"log/slog"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/domain"
)

// HNSW parameters for the product collection.
const (
	HnswM           = 16
	HnswEfConstruct = 256
)

// VectorStore wraps the Qdrant gRPC clients for one collection.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// Collection returns the collection name the store operates on.
func (v *VectorStore) Collection() string { return v.collection }

// WithCollection returns a store targeting another collection over the same
// connection.
func (v *VectorStore) WithCollection(name string) *VectorStore {
	return &VectorStore{
		conn:        v.conn,
		points:      v.points,
		collections: v.collections,
		collection:  name,
	}
}

// ListCollections returns the names of all collections on the server.
func (v *VectorStore) ListCollections(ctx context.Context) ([]string, error) {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return nil, fmt.Errorf("semantic: list collections: %w", err)
	}
	names := make([]string, 0, len(list.GetCollections()))
	for _, c := range list.GetCollections() {
		names = append(names, c.GetName())
	}
	return names, nil
}

// exists checks whether the store's collection is present on the server.
func (v *VectorStore) exists(ctx context.Context) (bool, error) {
	names, err := v.ListCollections(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == v.collection {
			return true, nil
		}
	}
	return false, nil
}

// EnsureCollection creates the collection with named "text" and "image"
// vectors if it doesn't exist yet.
func (v *VectorStore) EnsureCollection(ctx context.Context, textDim, imageDim int) error {
	return v.EnsureNamedCollection(ctx, map[string]int{
		domain.VectorText:  textDim,
		domain.VectorImage: imageDim,
	})
}

// EnsureNamedCollection creates the collection with the given named-vector
// widths (Cosine distance) if it doesn't exist yet.
func (v *VectorStore) EnsureNamedCollection(ctx context.Context, dims map[string]int) error {
	ok, err := v.exists(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	params := make(map[string]*pb.VectorParams, len(dims))
	for name, dim := range dims {
		params[name] = &pb.VectorParams{
			Size:     uint64(dim),
			Distance: pb.Distance_Cosine,
		}
	}

	m := uint64(HnswM)
	ef := uint64(HnswEfConstruct)
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_ParamsMap{
				ParamsMap: &pb.VectorParamsMap{Map: params},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{M: &m, EfConstruct: &ef},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// DeleteCollection deletes the collection.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// UpdateHnsw submits new HNSW parameters for the collection.
func (v *VectorStore) UpdateHnsw(ctx context.Context, m, efConstruct uint64) error {
	_, err := v.collections.Update(ctx, &pb.UpdateCollection{
		CollectionName: v.collection,
		HnswConfig:     &pb.HnswConfigDiff{M: &m, EfConstruct: &efConstruct},
	})
	if err != nil {
		return fmt.Errorf("semantic: update hnsw for %s: %w", v.collection, err)
	}
	return nil
}

// payloadIndexes lists the payload fields worth indexing for filtered search.
var payloadIndexes = map[string]pb.FieldType{
	"price":        pb.FieldType_FieldTypeFloat,
	"rating":       pb.FieldType_FieldTypeFloat,
	"category":     pb.FieldType_FieldTypeKeyword,
	"brand":        pb.FieldType_FieldTypeKeyword,
	"availability": pb.FieldType_FieldTypeKeyword,
}

// EnsurePayloadIndexes creates payload-field indexes best-effort: a field
// that fails (already indexed, unsupported server) is logged and skipped.
func (v *VectorStore) EnsurePayloadIndexes(ctx context.Context, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	wait := true
	for field, fieldType := range payloadIndexes {
		_, err := v.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: v.collection,
			Wait:           &wait,
			FieldName:      field,
			FieldType:      fieldType.Enum(),
		})
		if err != nil {
			log.Warn("semantic: payload index skipped", "field", field, "error", err)
			continue
		}
		log.Info("semantic: payload index ready", "field", field)
	}
}

// Point is one persistence unit: a fresh identifier, one or more named
// vectors, and the product payload.
type Point struct {
	ID      string
	Vectors map[string][]float32
	Payload map[string]any
}

// Upsert stores points into the collection in one call.
func (v *VectorStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		named := make(map[string]*pb.Vector, len(p.Vectors))
		for name, vec := range p.Vectors {
			named[name] = &pb.Vector{Data: vec}
		}
		structs[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vectors{
					Vectors: &pb.NamedVectors{Vectors: named},
				},
			},
			Payload: toPayload(p.Payload),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(points), err)
	}
	return nil
}

// QuerySpec describes one vector query.
type QuerySpec struct {
	Vector []float32
	// Using selects the named vector to search ("text" or "image").
	Using string
	Limit uint64
	// Filter adds keyword must-match conditions on payload fields.
	Filter map[string]string
	Exact  bool
}

// Query runs a similarity query and returns the scored points with payloads.
func (v *VectorStore) Query(ctx context.Context, spec QuerySpec) ([]*pb.ScoredPoint, error) {
	req := &pb.QueryPoints{
		CollectionName: v.collection,
		Query:          pb.NewQueryDense(spec.Vector),
		Limit:          &spec.Limit,
		Params:         &pb.SearchParams{Exact: &spec.Exact},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: false}},
	}
	if spec.Using != "" {
		req.Using = &spec.Using
	}
	if len(spec.Filter) > 0 {
		must := make([]*pb.Condition, 0, len(spec.Filter))
		for k, val := range spec.Filter {
			must = append(must, fieldMatch(k, val))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := v.points.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: query: %w", err)
	}
	return resp.GetResult(), nil
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
