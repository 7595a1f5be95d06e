package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kychub_invoices_created_total",
		Help: "Invoices created.",
	})
	invoicePayments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kychub_invoice_payments_total",
		Help: "Invoice payment attempts by result.",
	}, []string{"result"})
	kycVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kychub_kyc_verifications_total",
		Help: "KYC verification attempts by result.",
	}, []string{"result"})
	proofVerificationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kychub_proof_verification_seconds",
		Help:    "Time spent verifying proofs.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kychub_events_dropped_total",
		Help: "Events subscribers missed because their buffer was full.",
	})
)

// resultLabel maps an operation error to the label of its outcome.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, ErrKYCRequired):
		return "kyc_required"
	case errors.Is(err, ErrInvalidProof):
		return "invalid_proof"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
