package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/romariotrain/hls-pipeline/internal/media/domain"
	"github.com/romariotrain/hls-pipeline/internal/media/models"
)

const CollectionName = "video_status"

func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// StatusRepo keeps one document per job in the video_status collection,
// keyed by the unique "name" field.
type StatusRepo struct {
	coll  *mongo.Collection
	clock func() time.Time
}

func NewStatusRepo(db *mongo.Database) *StatusRepo {
	return &StatusRepo{
		coll:  db.Collection(CollectionName),
		clock: time.Now,
	}
}

// EnsureIndexes creates the unique index on name.
func (r *StatusRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create name index: %w", err)
	}
	return nil
}

func (r *StatusRepo) Create(ctx context.Context, id string, status models.Status) error {
	if id == "" || status == "" {
		return models.ErrInvalidArgument
	}

	now := r.clock().UTC()
	_, err := r.coll.InsertOne(ctx, models.VideoStatus{
		ID:        id,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("video status create: %w", err)
	}
	return nil
}

func (r *StatusRepo) GetByID(ctx context.Context, id string) (*models.VideoStatus, error) {
	var v models.VideoStatus
	err := r.coll.FindOne(ctx, bson.M{"name": id}).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("video status get by id: %w", err)
	}
	return &v, nil
}

// UpdateStatus only matches documents whose current status may move to the
// requested one, so the transition check and the write are one operation.
func (r *StatusRepo) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.VideoStatus, error) {
	from := allowedFrom(status)
	if len(from) == 0 {
		return nil, fmt.Errorf("%w: -> %s", domain.ErrInvalidTransition, status)
	}

	filter := bson.M{"name": id, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": r.clock().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var v models.VideoStatus
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&v)
	if err == nil {
		return &v, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("video status update: %w", err)
	}

	// Либо записи нет, либо переход запрещён
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if err := domain.ValidateTransition(current.Status, status); err != nil {
		return nil, err
	}
	return current, nil
}

func (r *StatusRepo) FailOrphaned(ctx context.Context) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"status": bson.M{"$in": []models.Status{models.PendingStatus, models.ProcessingStatus}}},
		bson.M{"$set": bson.M{"status": models.FailedStatus, "updated_at": r.clock().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("fail orphaned: %w", err)
	}
	return res.ModifiedCount, nil
}

// allowedFrom lists the statuses an update to "to" may start from, including
// "to" itself when it is not terminal.
func allowedFrom(to models.Status) []models.Status {
	var out []models.Status
	for _, from := range []models.Status{
		models.PendingStatus,
		models.ProcessingStatus,
		models.SuccessStatus,
		models.FailedStatus,
	} {
		if domain.ValidateTransition(from, to) == nil {
			out = append(out, from)
		}
	}
	return out
}
