package dto

// CreateListingRequest represents the request to put an account up for sale
type CreateListingRequest struct {
	Username      string `json:"username" binding:"required"`
	FollowerCount int64  `json:"follower_count"`
	AvgViews      int64  `json:"avg_views"`
	Price         int64  `json:"price" binding:"required"`
	EvidenceRef   string `json:"evidence_ref" binding:"required"`
}

// PurchaseRequest represents the request to buy a listing
type PurchaseRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
}

// ResolveDisputeRequest represents an arbiter verdict on an open dispute
type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}
