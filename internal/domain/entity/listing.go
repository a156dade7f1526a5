package entity

import "time"

type Listing struct {
	ID          string    `json:"id" firestore:"id"`
	SellerID    string    `json:"seller_id" firestore:"sellerId"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	Price       float64   `json:"price" firestore:"price"`
	Images      []string  `json:"images" firestore:"images"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
}

// Summary is the denormalized listing preview embedded in chat responses.
type Summary struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Price  float64  `json:"price"`
	Images []string `json:"images"`
}

func (l *Listing) Summary() *Summary {
	return &Summary{
		ID:     l.ID,
		Title:  l.Title,
		Price:  l.Price,
		Images: l.Images,
	}
}
