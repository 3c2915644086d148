package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/tabletop-services/internal/comm"
	log "github.com/sirupsen/logrus"
)

// Conn is the part of *nats.Conn the broker publishes through.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Broker publishes tabletop events as comm.Event envelopes on one subject.
type Broker struct {
	Conn       Conn
	Subject    string
	InstanceId string
	now        func() time.Time
}

func NewBroker(nc Conn, subject, instanceId string) *Broker {
	return &Broker{
		Conn:       nc,
		Subject:    subject,
		InstanceId: instanceId,
		now:        time.Now,
	}
}

// Publish wraps payload in an envelope of type eventType and sends it.
func (b *Broker) Publish(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	msg := &comm.Event{
		Type:       eventType,
		Data:       data,
		InstanceId: b.InstanceId,
		Timestamp:  b.now().UTC(),
	}

	envelope, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	if err := b.Conn.Publish(b.Subject, envelope); err != nil {
		log.Errorf("Error publishing to topic %s: %s", b.Subject, err)
		return err
	}

	return nil
}
