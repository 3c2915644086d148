package service

// EventPublisher receives domain events after a successful write. Delivery
// is best effort: a failed publish is logged and never fails the write.
type EventPublisher interface {
	Publish(eventType string, payload any) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) error { return nil }
