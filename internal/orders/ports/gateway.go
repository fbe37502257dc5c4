package ports

import "context"

// InitializeRequest starts a gateway transaction. Reference doubles as the
// correlation key returned on verification.
type InitializeRequest struct {
	Reference   string
	AmountMinor int64
	Email       string
	OrderID     string
}

type InitializeResponse struct {
	Reference        string
	AuthorizationURL string
}

// Verification is the gateway's verdict for a reference.
type Verification struct {
	Status  string
	OrderID string
}

// Succeeded reports whether the gateway settled the transaction.
func (v Verification) Succeeded() bool {
	return v.Status == "success"
}

// PaymentGateway is the initialize/verify contract of the payment provider.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	VerifyTransaction(ctx context.Context, reference string) (*Verification, error)
}

type ShipmentRequest struct {
	Reference        string
	PickupLocation   string
	DeliveryLocation string
	Weight           float64
}

type ShipmentReceipt struct {
	TrackingNumber string
	ShipmentID     string
}

// Carrier books shipments with the external logistics provider.
type Carrier interface {
	CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentReceipt, error)
}
