package predictive

import (
	"context"
	"errors"
)

// ErrPropertyNotFound is returned by PropertyLookup implementations.
var ErrPropertyNotFound = errors.New("property not found")

type PropertyLookup interface {
	Property(ctx context.Context, id uint) (PropertySummary, error)
	PropertiesByOwner(ctx context.Context, ownerID uint) ([]PropertySummary, error)
	OwnersWithProperties(ctx context.Context) ([]uint, error)
}

// HistoryLookup returns maintenance records for a property, newest first.
// An empty category means every category.
type HistoryLookup interface {
	MaintenanceHistory(ctx context.Context, propertyID uint, category Category) ([]MaintenanceRecord, error)
}
