package store

import (
	"context"
	"time"
)

// Point is one prediction kept for the trend view. Only the raw value is
// stored; the health zone is derived whenever the point is read.
//
// Zero value of ExpiresAt means "no expiration".
type Point struct {
	RUL          float64   `json:"rul"`
	ModelVersion string    `json:"model_version,omitempty"`
	Timestamp    int64     `json:"timestamp"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired checks whether the point is expired at the given time.
func (p Point) IsExpired(now time.Time) bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return now.After(p.ExpiresAt)
}

// History keeps recent prediction points per subsystem.
type History interface {
	Append(ctx context.Context, subsystem string, p Point) error
	// List returns live points oldest first.
	List(ctx context.Context, subsystem string) ([]Point, error)
	RemoveExpired(ctx context.Context) (int, error)
}
