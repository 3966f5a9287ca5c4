package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/qarchive/internal/models"
)

// QAPair is the pair payload (aliased from the domain layer).
type QAPair = models.QAPair

// CreateThreadRequest is the request body for creating a thread. The name is
// free text and may be empty.
type CreateThreadRequest struct {
	Name string `json:"name" example:"Go concurrency"`
}

// CreateThreadResponse carries the id of a new thread.
type CreateThreadResponse struct {
	ID string `json:"id" example:"thread_20260211_154708" validate:"required"`
}

// RenameThreadRequest is the request body for renaming a thread.
type RenameThreadRequest struct {
	Name string `json:"name" example:"Channels"`
}

// AddItemRequest is the request body for adding a pair to a thread.
type AddItemRequest struct {
	PairID string `json:"pairId" example:"20260211_1553" validate:"required"`
}

// Validate implements validation.Validatable.
func (r AddItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PairID, validation.Required),
	)
}

// MoveItemRequest is the request body for moving a pair within a thread.
type MoveItemRequest struct {
	Direction int `json:"direction" example:"-1" enums:"-1,1" validate:"required"`
}

// Validate implements validation.Validatable.
func (r MoveItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Direction, validation.Required, validation.In(1, -1)),
	)
}

// PickDirectoryResponse carries the chosen directory, or null on cancel.
type PickDirectoryResponse struct {
	Path *string `json:"path"`
}

// SearchResponse lists matching pair ids in archive order.
type SearchResponse struct {
	IDs []string `json:"ids" validate:"required"`
}
