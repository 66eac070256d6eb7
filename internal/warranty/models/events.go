package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"warranty/pkg/domain"
)

// EventType names a notification emitted by the registry.
type EventType string

const (
	EventWarrantyCreated        EventType = "warranty_created"
	EventCertificateTransferred EventType = "certificate_transferred"
)

// WarrantyCreated is emitted once per successful creation.
type WarrantyCreated struct {
	CertificateID  domain.CertificateID `json:"certificate_id"`
	Product        string               `json:"product"`
	Seller         domain.Address       `json:"seller"`
	Buyer          domain.Address       `json:"buyer"`
	BrandName      string               `json:"brand_name"`
	Price          int64                `json:"price"`
	WarrantyPeriod int64                `json:"warranty_period"`
	CreationTime   int64                `json:"creation_time"`
}

// CertificateTransferred is emitted when the holder of a certificate changes.
type CertificateTransferred struct {
	CertificateID domain.CertificateID `json:"certificate_id"`
	From          domain.Address       `json:"from"`
	To            domain.Address       `json:"to"`
	TransferredAt int64                `json:"transferred_at"`
}

// Event is the transport-agnostic envelope stored in the outbox and handed to
// sinks. Payload holds the JSON of the typed notification.
type Event struct {
	ID            uuid.UUID            `json:"id"`
	Type          EventType            `json:"type"`
	CertificateID domain.CertificateID `json:"certificate_id"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Payload       json.RawMessage      `json:"payload"`
}

// NewWarrantyCreatedEvent builds the creation notification for a stored certificate.
func NewWarrantyCreatedEvent(cert *Certificate) (Event, error) {
	created := WarrantyCreated{
		CertificateID:  cert.ID,
		Product:        cert.Product,
		Seller:         cert.SellerAddress,
		Buyer:          cert.BuyerAddress,
		BrandName:      cert.BrandName,
		Price:          cert.Price,
		WarrantyPeriod: cert.WarrantyPeriod,
		CreationTime:   cert.CreationTime.Unix(),
	}
	return newEvent(EventWarrantyCreated, cert.ID, cert.CreationTime, created)
}

// NewCertificateTransferredEvent builds the transfer notification.
func NewCertificateTransferredEvent(id domain.CertificateID, from, to domain.Address, at time.Time) (Event, error) {
	transferred := CertificateTransferred{
		CertificateID: id,
		From:          from,
		To:            to,
		TransferredAt: at.Unix(),
	}
	return newEvent(EventCertificateTransferred, id, at, transferred)
}

func newEvent(eventType EventType, id domain.CertificateID, at time.Time, body any) (Event, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New(),
		Type:          eventType,
		CertificateID: id,
		OccurredAt:    at.UTC(),
		Payload:       payload,
	}, nil
}

// DecodeWarrantyCreated unpacks a creation event payload.
func (e Event) DecodeWarrantyCreated() (WarrantyCreated, error) {
	var created WarrantyCreated
	if e.Type != EventWarrantyCreated {
		return created, fmt.Errorf("event %s is %s, not %s", e.ID, e.Type, EventWarrantyCreated)
	}
	if err := json.Unmarshal(e.Payload, &created); err != nil {
		return created, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return created, nil
}
