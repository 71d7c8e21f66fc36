package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tzpesa/pesa-service/internal/models"
)

// Event describes a transaction status change. Created is true for the
// event emitted when a transaction record is first persisted.
type Event struct {
	ID             string
	Kind           models.Kind
	LocalReference string
	OldStatus      models.Status
	NewStatus      models.Status
	Created        bool
	Record         models.Transaction
	OccurredAt     time.Time
}

// Subscriber receives status-change events. Subscriber errors are logged
// and never propagate back into the payment flow.
type Subscriber interface {
	HandleStatusChange(e Event) error
}

// SubscriberFunc adapts a plain function to the Subscriber interface
type SubscriberFunc func(e Event) error

func (f SubscriberFunc) HandleStatusChange(e Event) error { return f(e) }

// Notifier delivers events to an explicit, injectable list of subscribers,
// synchronously and in registration order.
type Notifier struct {
	log  *logrus.Logger
	subs []Subscriber
}

// NewNotifier initializes a notifier with the given subscribers
func NewNotifier(log *logrus.Logger, subs ...Subscriber) *Notifier {
	return &Notifier{log: log, subs: subs}
}

// Subscribe registers an additional subscriber
func (n *Notifier) Subscribe(s Subscriber) {
	n.subs = append(n.subs, s)
}

// Emit fills in event metadata and fans the event out
func (n *Notifier) Emit(e Event) {
	e.ID = uuid.NewString()
	e.OccurredAt = time.Now()
	n.log.WithFields(logrus.Fields{
		"event_id":   e.ID,
		"kind":       e.Kind,
		"reference":  e.LocalReference,
		"old_status": e.OldStatus,
		"new_status": e.NewStatus,
	}).Info("Transaction status changed")

	for _, s := range n.subs {
		if err := s.HandleStatusChange(e); err != nil {
			n.log.Errorf("Status-change subscriber failed for %s: %v", e.LocalReference, err)
		}
	}
}
