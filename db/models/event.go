package models

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

const (
	EventInvoiceCreated   = "invoice.created"
	EventInvoiceSent      = "invoice.sent"
	EventInvoicePaid      = "invoice.paid"
	EventInvoiceCancelled = "invoice.cancelled"
	EventKYCSubmitted     = "kyc.submitted"
	EventKYCVerified      = "kyc.verified"
	EventKYCRevoked       = "kyc.revoked"
)

// Event is published after a mutation committed. It is not persisted.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Subject     *common.Address `json:"subject,omitempty"`
	InvoiceID   uint64          `json:"invoice_id,omitempty"`
	Invoice     *Invoice        `json:"invoice,omitempty"`
	Attestation *Attestation    `json:"attestation,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Family is the part of the type before the dot, "invoice" or "kyc".
func (e *Event) Family() string {
	family, _, _ := strings.Cut(e.Type, ".")
	return family
}
