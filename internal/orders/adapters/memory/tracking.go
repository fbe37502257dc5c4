package memory

import (
	"context"

	"github.com/dejobratic/marketplace/internal/orders/domain"
)

type trackingRow = domain.Tracking

// TrackingRepository is the logistics view of a Store.
type TrackingRepository struct {
	store *Store
}

func (r *TrackingRepository) Create(_ context.Context, tracking domain.Tracking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.tracking = append(r.store.tracking, tracking)
	return nil
}

func (r *TrackingRepository) GetLatestByOrderID(_ context.Context, orderID string) (*domain.Tracking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := len(r.store.tracking) - 1; i >= 0; i-- {
		if r.store.tracking[i].OrderID == orderID {
			tracking := r.store.tracking[i]
			return &tracking, nil
		}
	}
	return nil, domain.ErrTrackingNotFound
}

func (r *TrackingRepository) Update(_ context.Context, tracking domain.Tracking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.tracking {
		if r.store.tracking[i].ID == tracking.ID {
			r.store.tracking[i] = tracking
			return nil
		}
	}
	return domain.ErrTrackingNotFound
}

// Count returns the number of tracking records stored for orderID.
func (r *TrackingRepository) Count(orderID string) int {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for _, t := range r.store.tracking {
		if t.OrderID == orderID {
			n++
		}
	}
	return n
}
