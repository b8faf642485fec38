package business

import "errors"

var ErrNotFound = errors.New("business not found")

type Business struct {
	ID          string  `json:"id"`
	OwnerUserID string  `json:"owner_user_id"`
	Name        string  `json:"name"`
	Website     *string `json:"website,omitempty"`
}
