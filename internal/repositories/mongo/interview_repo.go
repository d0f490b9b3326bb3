package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxUpdateAttempts bounds the optimistic retry loop in Update.
const maxUpdateAttempts = 3

// Mutation edits a freshly loaded interview in place. It may run more than
// once when a concurrent writer wins the race, so it must not have side
// effects outside the document. Returning an error aborts without writing.
type Mutation func(it *models.Interview) error

type InterviewRepository interface {
	Create(ctx context.Context, it *models.Interview) error
	Get(ctx context.Context, id string) (*models.Interview, error)
	Update(ctx context.Context, id string, mutate Mutation) (*models.Interview, error)
	ListByOwner(ctx context.Context, ownerID string, limit int64) ([]models.InterviewSummary, error)
}

type interviewRepo struct {
	col *mongo.Collection
}

func NewInterviewRepo(db *mongo.Database) InterviewRepository {
	return &interviewRepo{col: db.Collection("interviews")}
}

func (r *interviewRepo) Create(ctx context.Context, it *models.Interview) error {
	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now
	it.Version = 1
	_, err := r.col.InsertOne(ctx, it)
	return err
}

func (r *interviewRepo) Get(ctx context.Context, id string) (*models.Interview, error) {
	var it models.Interview
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&it)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Update is a whole-document read-modify-write. The replace only matches the
// version that was read, so a lost update shows up as a retry instead of a
// silent overwrite.
func (r *interviewRepo) Update(ctx context.Context, id string, mutate Mutation) (*models.Interview, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		it, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		expected := it.Version
		if err := mutate(it); err != nil {
			return nil, err
		}
		it.Version = expected + 1
		it.UpdatedAt = time.Now().UTC()

		res, err := r.col.ReplaceOne(ctx, bson.M{"_id": id, "version": expected}, it)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			return it, nil
		}
	}
	return nil, utils.ErrConflict
}

func (r *interviewRepo) ListByOwner(ctx context.Context, ownerID string, limit int64) ([]models.InterviewSummary, error) {
	if limit <= 0 {
		limit = 100
	}

	cur, err := r.col.Find(ctx,
		bson.M{"owner_id": ownerID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetProjection(bson.M{"transcript": 0, "answers": 0}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.Interview
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	out := make([]models.InterviewSummary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Summary())
	}
	return out, nil
}
