package models

import "time"

// Sync task states. A task is created pending, claimed by the dispatcher,
// and ends up done or failed.
const (
	SyncTaskPending    = "pending"
	SyncTaskProcessing = "processing"
	SyncTaskDone       = "done"
	SyncTaskFailed     = "failed"
)

// MaxSyncAttempts is the number of delivery attempts before a task is
// marked failed and left for manual intervention.
const MaxSyncAttempts = 5

// OrderSyncTask is a persisted "notify the order service" task, written in
// the same operation flow that records a successful payment. It survives
// process restarts, unlike an in-memory timer.
type OrderSyncTask struct {
	ID            string     `bson:"_id" json:"id"`
	OrderID       string     `bson:"orderId" json:"orderId"`
	PaymentStatus string     `bson:"paymentStatus" json:"paymentStatus"`
	PaymentID     string     `bson:"paymentId" json:"paymentId"`
	Status        string     `bson:"status" json:"status"`
	Attempts      int        `bson:"attempts" json:"attempts"`
	NextAttemptAt time.Time  `bson:"nextAttemptAt" json:"nextAttemptAt"`
	ClaimedAt     *time.Time `bson:"claimedAt,omitempty" json:"claimedAt,omitempty"`
	LastError     string     `bson:"lastError,omitempty" json:"lastError,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
	CompletedAt   *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}
