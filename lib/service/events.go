package service

import (
	"time"

	"github.com/getAlby/kychub.go/db/models"
	"github.com/google/uuid"
)

func newInvoiceEvent(eventType string, invoice *models.Invoice, at time.Time) models.Event {
	snapshot := *invoice
	return models.Event{
		ID:        uuid.New(),
		Type:      eventType,
		InvoiceID: invoice.ID,
		Invoice:   &snapshot,
		CreatedAt: at,
	}
}

func newKYCEvent(eventType string, attestation *models.Attestation, at time.Time) models.Event {
	snapshot := *attestation
	return models.Event{
		ID:          uuid.New(),
		Type:        eventType,
		Subject:     &snapshot.Subject,
		Attestation: &snapshot,
		CreatedAt:   at,
	}
}

func (svc *KychubService) publishEvents(events []models.Event) {
	if svc.EventPubSub == nil {
		return
	}
	for _, event := range events {
		dropped := svc.EventPubSub.Publish(event.Family(), event)
		dropped += svc.EventPubSub.Publish(EventTopicAll, event)
		if dropped > 0 {
			eventsDropped.Add(float64(dropped))
			svc.Logger.Warnf("Event %s (%s) was dropped by %d subscribers", event.ID, event.Type, dropped)
		}
	}
}

// SubscribeEvents subscribes a buffered channel to every event.
func (svc *KychubService) SubscribeEvents() (chan models.Event, func(), error) {
	ch := make(chan models.Event, eventBufferSize)
	subId, err := svc.EventPubSub.Subscribe(EventTopicAll, ch)
	if err != nil {
		return nil, nil, err
	}
	return ch, func() { svc.EventPubSub.Unsubscribe(subId, EventTopicAll) }, nil
}

const eventBufferSize = 256
