package service

import (
	"sync"

	"github.com/getAlby/kychub.go/db/models"
	"github.com/google/uuid"
)

// EventTopicAll receives every event, the other topics are event families.
const EventTopicAll = "all"

type Pubsub struct {
	mu   sync.RWMutex
	subs map[string]map[string]chan models.Event
}

func NewPubsub() *Pubsub {
	ps := &Pubsub{}
	ps.subs = make(map[string]map[string]chan models.Event)
	return ps
}

func (ps *Pubsub) Subscribe(topic string, ch chan models.Event) (subId string, err error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		ps.subs[topic] = make(map[string]chan models.Event)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	subId = id.String()
	ps.subs[topic][subId] = ch
	return subId, nil
}

func (ps *Pubsub) Unsubscribe(id string, topic string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		return
	}
	if ps.subs[topic][id] == nil {
		return
	}
	close(ps.subs[topic][id])
	delete(ps.subs[topic], id)
}

// Publish never blocks: subscribers whose buffer is full miss the message.
// It returns how many subscribers missed it.
func (ps *Pubsub) Publish(topic string, msg models.Event) (dropped int) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, ch := range ps.subs[topic] {
		select {
		case ch <- msg:
		default:
			dropped++
		}
	}
	return dropped
}
