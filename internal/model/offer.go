package model

import "time"

// Offer is a third-party price/stock listing attached to a Product.
// Offer rows are append-only: reconciliation never deletes a row, it only
// closes it or mutates price/stock on still-open rows.
type Offer struct {
	ID           string     `json:"id"`
	Price        int64      `json:"price"`
	ItemsInStock int64      `json:"items_in_stock"`
	ProductID    string     `json:"product_id"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at"`
}

// Open reports whether the offer has not been closed yet.
func (o *Offer) Open() bool {
	return o.ClosedAt == nil
}

// Sellable reports whether the offer is open and has stock left.
func (o *Offer) Sellable() bool {
	return o.Open() && o.ItemsInStock > 0
}

// OfferSnapshot is the shape of one offer in the upstream feed.
type OfferSnapshot struct {
	ID           string `json:"id"`
	Price        int64  `json:"price"`
	ItemsInStock int64  `json:"items_in_stock"`
}
