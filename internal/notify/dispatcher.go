package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event kinds, used as routing keys on the notification queue.
const (
	KindOrderConfirmation = "order.confirmation" // customer-facing receipt
	KindOrderAdminAlert   = "order.admin_alert"  // new-order ping for the back office
	KindVerificationCode  = "user.verification"  // email verification code
)

// Event is one outbound notification.
type Event struct {
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload"`
}

// Publisher is the transport the dispatcher publishes through. Satisfied by
// the rabbitmq client.
type Publisher interface {
	Publish(routingKey string, body []byte) error
}

// Dispatcher decouples notification delivery from the request cycle: Enqueue
// never blocks and never fails the caller, a single worker drains the queue
// and publishes each event with bounded retry. With a nil publisher (broker
// unreachable at startup) events are logged and dropped.
type Dispatcher struct {
	pub     Publisher
	log     *logrus.Entry
	queue   chan Event
	wg      sync.WaitGroup
	retries int
	backoff time.Duration

	closeOnce sync.Once
}

// NewDispatcher builds a dispatcher over pub, which may be nil.
func NewDispatcher(pub Publisher, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		pub:     pub,
		log:     log.WithField("component", "notify"),
		queue:   make(chan Event, 256),
		retries: 3,
		backoff: 500 * time.Millisecond,
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for evt := range d.queue {
			d.deliver(evt)
		}
	}()
}

// Close stops accepting events and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.queue) })
	d.wg.Wait()
}

// Enqueue hands an event to the worker. If the queue is full the event is
// dropped and logged; notification loss must never block a request.
func (d *Dispatcher) Enqueue(evt Event) {
	select {
	case d.queue <- evt:
	default:
		d.log.WithField("kind", evt.Kind).Warn("notification queue full, dropping event")
	}
}

func (d *Dispatcher) deliver(evt Event) {
	if d.pub == nil {
		d.log.WithField("kind", evt.Kind).Info("no broker configured, logging notification only")
		return
	}

	body, err := json.Marshal(evt)
	if err != nil {
		d.log.WithError(err).WithField("kind", evt.Kind).Error("failed to encode notification")
		return
	}

	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if lastErr = d.pub.Publish(evt.Kind, body); lastErr == nil {
			return
		}
		time.Sleep(d.backoff * time.Duration(attempt))
	}
	d.log.WithError(lastErr).WithField("kind", evt.Kind).
		Error("giving up on notification after retries")
}
