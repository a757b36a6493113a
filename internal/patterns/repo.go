package patterns

import (
	"context"

	"github.com/classpulse/sociogram/internal/models"
)

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, classID string, trends []models.StudentTrend) error

// StoreTrends implements Store.
func (f StoreFunc) StoreTrends(ctx context.Context, classID string, trends []models.StudentTrend) error {
	return f(ctx, classID, trends)
}
