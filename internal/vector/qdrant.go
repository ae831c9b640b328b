package vector

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const qdrantDocumentKey = "document"

// qdrantMaxBatch bounds the points or ids sent in one request.
const qdrantMaxBatch = 256

// QdrantIndex stores vectors as points in a Qdrant collection using Euclid distance.
// Point ids are the integer ids; the document is kept in the payload.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimensions  int
}

// NewQdrantIndex connects to host:port over gRPC and creates the collection if it does not exist.
func NewQdrantIndex(ctx context.Context, host string, port int, collection string, dimensions int) (*QdrantIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if collection == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	q := &QdrantIndex{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dimensions:  dimensions,
	}
	if err := q.ensureCollection(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return q, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	resp, err := q.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: q.collection})
	if err != nil {
		return fmt.Errorf("qdrant: checking collection %s: %w", q.collection, err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}
	_, err = q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
			Size:     uint64(q.dimensions),
			Distance: pb.Distance_Euclid,
		}}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: creating collection %s: %w", q.collection, err)
	}
	return nil
}

// Collection returns the collection name.
func (q *QdrantIndex) Collection() string {
	return q.collection
}

// Type returns the index type identifier.
func (q *QdrantIndex) Type() string {
	return string(IndexTypeQdrant)
}

// Insert upserts the batch after checking that none of the ids exist yet.
func (q *QdrantIndex) Insert(ctx context.Context, documents []string, vectors [][]float32, ids []int) error {
	if err := validateBatch(documents, vectors, ids, q.dimensions); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	pointIDs, err := toPointIDs(ids)
	if err != nil {
		return err
	}

	// Check every batch before writing so a duplicate stores nothing.
	for start := 0; start < len(pointIDs); start += qdrantMaxBatch {
		end := min(start+qdrantMaxBatch, len(pointIDs))
		existing, err := q.points.Get(ctx, &pb.GetPoints{
			CollectionName: q.collection,
			Ids:            pointIDs[start:end],
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: false}},
		})
		if err != nil {
			return fmt.Errorf("qdrant: checking existing ids: %w", err)
		}
		if found := existing.GetResult(); len(found) > 0 {
			return fmt.Errorf("%w: %d", ErrDuplicateID, found[0].GetId().GetNum())
		}
	}

	wait := true
	for start := 0; start < len(ids); start += qdrantMaxBatch {
		end := min(start+qdrantMaxBatch, len(ids))
		points := make([]*pb.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, &pb.PointStruct{
				Id:      pointIDs[i],
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vectors[i]}}},
				Payload: map[string]*pb.Value{
					qdrantDocumentKey: {Kind: &pb.Value_StringValue{StringValue: documents[i]}},
				},
			})
		}
		if _, err := q.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: q.collection,
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			return fmt.Errorf("qdrant: upserting points %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// Query runs one search per query vector. Qdrant reports Euclid distance as the score.
func (q *QdrantIndex) Query(ctx context.Context, queries [][]float32, k int) ([][]Match, error) {
	if err := validateQueries(queries, q.dimensions); err != nil {
		return nil, err
	}
	results := make([][]Match, len(queries))
	for i, vec := range queries {
		if k <= 0 {
			results[i] = []Match{}
			continue
		}
		resp, err := q.points.Search(ctx, &pb.SearchPoints{
			CollectionName: q.collection,
			Vector:         vec,
			Limit:          uint64(k),
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: search: %w", err)
		}
		matches := make([]Match, len(resp.GetResult()))
		for j, pt := range resp.GetResult() {
			matches[j] = Match{
				ID:       int(pt.GetId().GetNum()),
				Document: pt.GetPayload()[qdrantDocumentKey].GetStringValue(),
				Distance: float64(pt.GetScore()),
			}
		}
		results[i] = matches
	}
	return results, nil
}

// Delete removes points by id.
func (q *QdrantIndex) Delete(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	wait := true
	for _, batch := range batchIDs(ids, qdrantMaxBatch) {
		pointIDs, err := toPointIDs(batch)
		if err != nil {
			return err
		}
		_, err = q.points.Delete(ctx, &pb.DeletePoints{
			CollectionName: q.collection,
			Wait:           &wait,
			Points: &pb.PointsSelector{PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: pointIDs},
			}},
		})
		if err != nil {
			return fmt.Errorf("qdrant: deleting points: %w", err)
		}
	}
	return nil
}

// Count returns the exact number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := q.points.Count(ctx, &pb.CountPoints{CollectionName: q.collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Close closes the gRPC connection. The collection is left in place.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

func toPointIDs(ids []int) ([]*pb.PointId, error) {
	out := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		if id < 0 {
			return nil, fmt.Errorf("qdrant: negative point id %d", id)
		}
		out[i] = &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(id)}}
	}
	return out, nil
}

var _ VectorIndex = (*QdrantIndex)(nil)
