package domain

import (
	"encoding/json"
	"time"
)

// Event asks the document service to render and mail an accreditation receipt.
type Event struct {
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	BodyHeader string    `json:"bodyHeader"`
	Data       EventData `json:"data"`
}

type EventData struct {
	AccreditationID int64       `json:"accreditationId,string"`
	SalePointName   string      `json:"salePointName"`
	UserID          int64       `json:"userId"`
	UserEmail       string      `json:"userEmail"`
	Amount          json.Number `json:"amount"`
	ReceiptDate     time.Time   `json:"receiptDate"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// Envelope is what sinks put on the wire.
type Envelope struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	OccurredAt    time.Time         `json:"occurredAt"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Payload       Event             `json:"payload"`
}

const EventTypeAccreditationReceipt = "accreditation.receipt.requested"
