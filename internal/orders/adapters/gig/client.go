// Package gig implements the carrier port against a GIG Logistics-compatible
// shipment API.
package gig

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dejobratic/marketplace/internal/orders/adapters/httpclient"
	"github.com/dejobratic/marketplace/internal/orders/ports"
)

var shipmentSchema = httpclient.MustCompileSchema("gig-shipment", `{
	"type": "object",
	"required": ["tracking_number"],
	"properties": {
		"tracking_number": {"type": "string"},
		"shipment_id": {"type": ["string", "null"]}
	}
}`)

type createShipmentRequest struct {
	Reference        string  `json:"reference"`
	PickupLocation   string  `json:"pickup_location"`
	DeliveryLocation string  `json:"delivery_location"`
	Weight           float64 `json:"weight"`
}

type createShipmentResponse struct {
	TrackingNumber string  `json:"tracking_number"`
	ShipmentID     *string `json:"shipment_id"`
}

type Client struct {
	api *httpclient.Client
}

var _ ports.Carrier = (*Client)(nil)

func NewClient(cfg httpclient.Config) *Client {
	return &Client{api: httpclient.New(cfg)}
}

func (c *Client) CreateShipment(ctx context.Context, req ports.ShipmentRequest) (*ports.ShipmentReceipt, error) {
	var resp createShipmentResponse
	err := c.api.Do(ctx, http.MethodPost, "/shipments/create", createShipmentRequest{
		Reference:        req.Reference,
		PickupLocation:   req.PickupLocation,
		DeliveryLocation: req.DeliveryLocation,
		Weight:           req.Weight,
	}, shipmentSchema, &resp)
	if err != nil {
		return nil, fmt.Errorf("gig create shipment: %w", err)
	}

	receipt := &ports.ShipmentReceipt{TrackingNumber: resp.TrackingNumber}
	if resp.ShipmentID != nil {
		receipt.ShipmentID = *resp.ShipmentID
	}
	return receipt, nil
}
