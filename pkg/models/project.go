package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is the tenant boundary. Every chunk belongs to exactly one
// project; deleting a project cascades to its chunks and their feedback.
type Project struct {
	ID        uuid.UUID `json:"id"`
	Root      string    `json:"root"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}
