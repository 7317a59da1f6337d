package storage

import (
	"context"

	"student-harvester/models"
)

// RecordStore persists a cleaned dataset somewhere downstream
type RecordStore interface {
	SaveCleaned(ctx context.Context, records []models.CleanedRecord) error
	Close() error
}
