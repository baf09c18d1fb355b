package bus

import (
	"fmt"
	"log"
	"sync"
)

// EventBus decouples the report pipeline from notification delivery.
// Subscribers register per notification channel; publishing never blocks
// the generating goroutine beyond the buffered queue.
type EventBus struct {
	notifications chan Notification
	subscribers   map[string][]func(Notification)
	subscribersMu sync.RWMutex
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewEventBus creates a new EventBus.
func NewEventBus() *EventBus {
	return &EventBus{
		notifications: make(chan Notification, 100),
		subscribers:   make(map[string][]func(Notification)),
		stopChan:      make(chan struct{}),
	}
}

// PublishReport fans a generated-report event out as one notification per
// tenant channel.
func (b *EventBus) PublishReport(ev ReportGenerated) {
	for _, channel := range ev.Channels {
		b.Publish(Notification{
			Channel:  channel,
			TenantID: ev.TenantID,
			Subject:  fmt.Sprintf("%s report ready", ev.Kind),
			Body:     fmt.Sprintf("Report %s archived at %s", ev.ReportID, ev.Path),
		})
	}
}

// Publish queues a single notification for dispatch.
func (b *EventBus) Publish(n Notification) {
	select {
	case b.notifications <- n:
	case <-b.stopChan:
	}
}

// Subscribe registers a callback for one notification channel.
func (b *EventBus) Subscribe(channel string, callback func(Notification)) {
	b.subscribersMu.Lock()
	defer b.subscribersMu.Unlock()
	b.subscribers[channel] = append(b.subscribers[channel], callback)
}

// Dispatch delivers queued notifications to subscribers. Run in a
// goroutine; a panicking subscriber never takes the dispatcher down.
func (b *EventBus) Dispatch() {
	for {
		select {
		case n := <-b.notifications:
			b.subscribersMu.RLock()
			callbacks := b.subscribers[n.Channel]
			b.subscribersMu.RUnlock()

			for _, cb := range callbacks {
				go func(callback func(Notification), notification Notification) {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("bus: panic in subscriber for %s: %v", notification.Channel, r)
						}
					}()
					callback(notification)
				}(cb, n)
			}
		case <-b.stopChan:
			return
		}
	}
}

// Stop stops the dispatcher loop.
func (b *EventBus) Stop() {
	b.stopOnce.Do(func() { close(b.stopChan) })
}
