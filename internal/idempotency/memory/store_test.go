package memory

import (
	"context"
	"testing"

	"github.com/dejobratic/marketplace/internal/orders/ports"
)

func TestStoreKeepsFirstResponse(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Save(ctx, "k", ports.StoredResponse{StatusCode: 201, Body: []byte("first"), OrderID: "o-1"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := store.Save(ctx, "k", ports.StoredResponse{StatusCode: 200, Body: []byte("second"), OrderID: "o-2"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.OrderID != "o-1" || string(got.Body) != "first" {
		t.Errorf("expected first response to be preserved, got %+v", got)
	}

	missing, err := store.Get(ctx, "other")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown key, got %+v, %v", missing, err)
	}
}
