package model

import "time"

// Order statuses
const (
	OrderStatusPending  = "pending"
	OrderStatusPaid     = "paid"
	OrderStatusRefunded = "refunded"
	OrderStatusFailed   = "failed"
)

// Order is a purchase recorded by the public site.
type Order struct {
	ID                 string    `json:"id" bson:"_id"`
	OrderNumber        string    `json:"orderNumber" bson:"orderNumber"`
	ProductID          string    `json:"productId" bson:"productId"`
	ProductName        string    `json:"productName" bson:"productName"`
	ListPrice          float64   `json:"listPrice" bson:"listPrice"`
	DiscountCouponCode string    `json:"discountCouponCode,omitempty" bson:"discountCouponCode,omitempty"`
	AmountPaid         float64   `json:"amountPaid" bson:"amountPaid"`
	Currency           string    `json:"currency" bson:"currency"`
	Status             string    `json:"status" bson:"status"`
	CustomerEmail      string    `json:"customerEmail" bson:"customerEmail"`
	CustomerName       string    `json:"customerName" bson:"customerName"`
	PaymentChargeID    string    `json:"paymentChargeId,omitempty" bson:"paymentChargeId,omitempty"`
	CreatedTimestamp   time.Time `json:"createdTimestamp" bson:"createdTimestamp"`
}

// Product is a sellable item (course, e-book, ...).
type Product struct {
	ID                    string    `json:"id" bson:"_id"`
	Name                  string    `json:"name" bson:"name"`
	Slug                  string    `json:"slug" bson:"slug"`
	ListPrice             float64   `json:"listPrice" bson:"listPrice"`
	Currency              string    `json:"currency" bson:"currency"`
	ProductType           string    `json:"productType" bson:"productType"`
	Active                bool      `json:"active" bson:"active"`
	CreatedTimestamp      time.Time `json:"createdTimestamp" bson:"createdTimestamp"`
	LastModifiedTimestamp time.Time `json:"lastModifiedTimestamp" bson:"lastModifiedTimestamp"`
}
