package v1

import (
	ez_uuid "github.com/immoledger/backend/internal/uuid"
	"golang.org/x/exp/slices"
)

type URIID struct {
	ID ez_uuid.UUID `uri:"id" binding:"required" format:"UUID"` // ID of the resource
}

// Pagination contains information about the pagination for collection endpoint responses.
type Pagination struct {
	Count  int   `json:"count" example:"25"`  // The amount of records returned in this response
	Offset uint  `json:"offset" example:"50"` // The offset for the first record returned
	Limit  int   `json:"limit" example:"25"`  // The maximum amount of resources to return for this request
	Total  int64 `json:"total" example:"827"` // The total number of resources matching the query
}

// listLimit returns the limit for collection endpoints, defaulting to 50.
func listLimit(setFields []string, limit int) int {
	if slices.Contains(setFields, "Limit") {
		return limit
	}

	return 50
}
