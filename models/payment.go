package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment status values. The gateway notification may report a code the
// service does not recognise, which maps to StatusUnknown.
const (
	StatusPending     = "pending"
	StatusSuccess     = "success"
	StatusFailed      = "failed"
	StatusCanceled    = "canceled"
	StatusChargedback = "chargedback"
	StatusUnknown     = "unknown"
)

// Coordinates is a geocoded location embedded in the customer details.
type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// PaymentItem is a line-item snapshot taken at initialization time.
type PaymentItem struct {
	Name     string  `bson:"name" json:"name" binding:"required"`
	Price    float64 `bson:"price" json:"price" binding:"required"`
	Quantity int     `bson:"quantity" json:"quantity" binding:"required,min=1"`
}

// CustomerDetails holds the billing contact and address captured at
// initialization, plus the coordinates resolved from it (if geocoding
// succeeded).
type CustomerDetails struct {
	FirstName   string       `bson:"firstName" json:"firstName"`
	LastName    string       `bson:"lastName" json:"lastName"`
	Email       string       `bson:"email" json:"email"`
	Phone       string       `bson:"phone" json:"phone"`
	Address     string       `bson:"address" json:"address"`
	City        string       `bson:"city" json:"city"`
	Country     string       `bson:"country,omitempty" json:"country,omitempty"`
	Coordinates *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// DeliveryDetails mirrors CustomerDetails for a separate delivery address.
type DeliveryDetails struct {
	Address string `bson:"address,omitempty" json:"address,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`
}

// CardDetails is the masked card metadata reported by the gateway. The card
// number arrives already masked; it is never stored in full.
type CardDetails struct {
	HolderName string `bson:"holderName,omitempty" json:"holderName,omitempty"`
	MaskedNo   string `bson:"maskedNo,omitempty" json:"maskedNo,omitempty"`
	Expiry     string `bson:"expiry,omitempty" json:"expiry,omitempty"`
}

// Payment is one document per order in the payments collection. OrderID is
// immutable and unique.
type Payment struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID          string             `bson:"orderId" json:"orderId"`
	CustomerID       string             `bson:"customerId" json:"customerId"`
	RestaurantID     string             `bson:"restaurantId" json:"restaurantId"`
	Amount           float64            `bson:"amount" json:"amount"`
	Currency         string             `bson:"currency" json:"currency"`
	Items            []PaymentItem      `bson:"items" json:"items"`
	Status           string             `bson:"status" json:"status"`
	PaymentID        string             `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	PaymentMethod    string             `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	PaymentTimestamp *time.Time         `bson:"paymentTimestamp,omitempty" json:"paymentTimestamp,omitempty"`
	CustomerDetails  CustomerDetails    `bson:"customerDetails" json:"customerDetails"`
	DeliveryDetails  *DeliveryDetails   `bson:"deliveryDetails,omitempty" json:"deliveryDetails,omitempty"`
	Card             *CardDetails       `bson:"card,omitempty" json:"card,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// statusFromCode is the authoritative mapping from PayHere status codes to
// payment statuses.
var statusFromCode = map[string]string{
	"2":  StatusSuccess,
	"0":  StatusPending,
	"-1": StatusCanceled,
	"-2": StatusFailed,
	"-3": StatusChargedback,
}

// StatusFromGatewayCode maps a PayHere status_code to a payment status.
// Unrecognised codes map to StatusUnknown rather than failing.
func StatusFromGatewayCode(code string) string {
	if s, ok := statusFromCode[code]; ok {
		return s
	}
	return StatusUnknown
}

// IsTerminalStatus reports whether a status admits no further gateway-driven
// transition.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusSuccess, StatusFailed, StatusCanceled, StatusChargedback:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the known payment statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed, StatusCanceled, StatusChargedback, StatusUnknown:
		return true
	}
	return false
}
