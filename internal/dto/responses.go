package dto

import (
	"github.com/ignatzorin/accmarket-backend/internal/models"
)

// ListingResponse represents a listing with its latest verification record
// This eliminates the duplicate listing structs in handlers
type ListingResponse struct {
	*models.Listing
	Verification *models.VerificationRecord `json:"verification,omitempty"`
}

// NewListingResponse creates a ListingResponse from components
func NewListingResponse(listing *models.Listing, verification *models.VerificationRecord) *ListingResponse {
	return &ListingResponse{
		Listing:      listing,
		Verification: verification,
	}
}

// VerificationRejectedResponse carries the full reason list back to the seller
type VerificationRejectedResponse struct {
	Error   string   `json:"error"`
	Reasons []string `json:"reasons"`
	Listing any      `json:"listing,omitempty"`
}

// EstimateResponse represents a non-binding price estimate for an account
type EstimateResponse struct {
	Username      string `json:"username"`
	EstimatedMin  int64  `json:"estimated_min"`
	EstimatedMax  int64  `json:"estimated_max"`
	Informational bool   `json:"informational"`
}

// EvidenceUploadResponse returns the content-addressed reference of a stored blob
type EvidenceUploadResponse struct {
	Ref  string `json:"ref"`
	Size int64  `json:"size"`
}

// PaginatedListingsResponse represents paginated listings list
type PaginatedListingsResponse struct {
	Data       []models.Listing `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}
