package repository

import (
	"context"
	"errors"
	"time"

	"payment-service/database"
	"payment-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateOrder is returned when a payment already exists for the
	// order being initialized.
	ErrDuplicateOrder = errors.New("payment already exists for order")
	// ErrPaymentNotFound is returned when no payment exists for an order.
	ErrPaymentNotFound = errors.New("payment not found")
)

// NotificationUpdate carries the fields a gateway notification writes onto a
// payment.
type NotificationUpdate struct {
	Status        string
	PaymentID     string
	PaymentMethod string
	Timestamp     time.Time
	Card          *models.CardDetails
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	// ApplyNotification applies a notification update only if the payment is
	// still in a non-terminal status. It reports whether a document was
	// updated; false means the payment was already in a terminal status.
	ApplyNotification(ctx context.Context, orderID string, update NotificationUpdate) (bool, error)
	UpdateStatus(ctx context.Context, orderID, status string) error
	UpdateCoordinates(ctx context.Context, orderID string, coords *models.Coordinates) error
	FindByCustomerID(ctx context.Context, customerID string) ([]models.Payment, error)
	FindByRestaurantID(ctx context.Context, restaurantID string) ([]models.Payment, error)
}

type mongoPaymentRepo struct {
	col *mongo.Collection
}

func NewMongoPaymentRepo(db *mongo.Database) PaymentRepository {
	return &mongoPaymentRepo{col: db.Collection(database.PaymentsCollection)}
}

func (r *mongoPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	now := time.Now()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	_, err := r.col.InsertOne(ctx, payment)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateOrder
	}
	return err
}

func (r *mongoPaymentRepo) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.col.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&payment)
	if err == mongo.ErrNoDocuments {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *mongoPaymentRepo) ApplyNotification(ctx context.Context, orderID string, update NotificationUpdate) (bool, error) {
	set := bson.M{
		"status":           update.Status,
		"paymentId":        update.PaymentID,
		"paymentMethod":    update.PaymentMethod,
		"paymentTimestamp": update.Timestamp,
		"updatedAt":        time.Now(),
	}
	if update.Card != nil {
		set["card"] = update.Card
	}

	// Conditional on the current status: a payment that has already reached
	// a terminal status is never overwritten by a late or duplicate
	// notification, even when two notifications race on the same document.
	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"orderId": orderID,
			"status":  bson.M{"$in": []string{models.StatusPending, models.StatusUnknown}},
		},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoPaymentRepo) UpdateStatus(ctx context.Context, orderID, status string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"orderId": orderID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *mongoPaymentRepo) UpdateCoordinates(ctx context.Context, orderID string, coords *models.Coordinates) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"orderId": orderID},
		bson.M{"$set": bson.M{"customerDetails.coordinates": coords, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *mongoPaymentRepo) FindByCustomerID(ctx context.Context, customerID string) ([]models.Payment, error) {
	return r.findAll(ctx, bson.M{"customerId": customerID})
}

func (r *mongoPaymentRepo) FindByRestaurantID(ctx context.Context, restaurantID string) ([]models.Payment, error) {
	return r.findAll(ctx, bson.M{"restaurantId": restaurantID})
}

func (r *mongoPaymentRepo) findAll(ctx context.Context, filter bson.M) ([]models.Payment, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	payments := []models.Payment{}
	if err := cur.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}
