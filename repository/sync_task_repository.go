package repository

import (
	"context"
	"time"

	"payment-service/database"
	"payment-service/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SyncTaskRepository interface {
	Enqueue(ctx context.Context, orderID, paymentStatus, paymentID string) (*models.OrderSyncTask, error)
	// ClaimDue atomically claims the oldest due pending task, or a
	// processing task whose claim lease has expired, or returns (nil, nil)
	// when none is due.
	ClaimDue(ctx context.Context, now time.Time) (*models.OrderSyncTask, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id string, lastErr string) error
}

type mongoSyncTaskRepo struct {
	col *mongo.Collection
}

func NewMongoSyncTaskRepo(db *mongo.Database) SyncTaskRepository {
	return &mongoSyncTaskRepo{col: db.Collection(database.SyncTasksCollection)}
}

func (r *mongoSyncTaskRepo) Enqueue(ctx context.Context, orderID, paymentStatus, paymentID string) (*models.OrderSyncTask, error) {
	now := time.Now()
	task := &models.OrderSyncTask{
		ID:            uuid.NewString(),
		OrderID:       orderID,
		PaymentStatus: paymentStatus,
		PaymentID:     paymentID,
		Status:        models.SyncTaskPending,
		Attempts:      0,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := r.col.InsertOne(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// syncClaimLease is how long a claimed task may sit in processing before it
// is treated as abandoned (claimer crashed mid-dispatch) and re-claimed.
const syncClaimLease = 2 * time.Minute

// claimDueFilter matches tasks a dispatcher may take: pending tasks whose
// retry time has arrived, and processing tasks whose claim lease expired.
// Without the second branch a crash between claim and completion would
// strand the task in processing forever.
func claimDueFilter(now time.Time) bson.M {
	return bson.M{"$or": []bson.M{
		{
			"status":        models.SyncTaskPending,
			"nextAttemptAt": bson.M{"$lte": now},
		},
		{
			"status":    models.SyncTaskProcessing,
			"claimedAt": bson.M{"$lte": now.Add(-syncClaimLease)},
		},
	}}
}

func (r *mongoSyncTaskRepo) ClaimDue(ctx context.Context, now time.Time) (*models.OrderSyncTask, error) {
	var task models.OrderSyncTask
	err := r.col.FindOneAndUpdate(ctx,
		claimDueFilter(now),
		bson.M{"$set": bson.M{
			"status":    models.SyncTaskProcessing,
			"claimedAt": now,
			"updatedAt": now,
		}},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "nextAttemptAt", Value: 1}}).
			SetReturnDocument(options.After),
	).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *mongoSyncTaskRepo) MarkDone(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":      models.SyncTaskDone,
			"completedAt": now,
			"updatedAt":   now,
		}},
	)
	return err
}

func (r *mongoSyncTaskRepo) Reschedule(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastErr string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":        models.SyncTaskPending,
			"attempts":      attempts,
			"nextAttemptAt": nextAttemptAt,
			"lastError":     lastErr,
			"updatedAt":     time.Now(),
		}},
	)
	return err
}

func (r *mongoSyncTaskRepo) MarkFailed(ctx context.Context, id string, lastErr string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":    models.SyncTaskFailed,
			"lastError": lastErr,
			"updatedAt": time.Now(),
		}},
	)
	return err
}
