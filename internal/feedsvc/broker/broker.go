package broker

import (
	"encoding/json"

	"github.com/avvvet/tabletop-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Broker relays tabletop events from NATS to websocket clients.
type Broker struct {
	Conn      *nats.Conn
	Broadcast func(gameName string, event json.RawMessage) int
}

func NewBroker(conn *nats.Conn, fncBroadcast func(string, json.RawMessage) int) *Broker {
	return &Broker{
		Conn:      conn,
		Broadcast: fncBroadcast,
	}
}

// consume tabletop events
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	event := &comm.Event{}
	if err := json.Unmarshal(msgNats.Data, event); err != nil {
		log.Errorf("Error decoding event: %s", err)
		return
	}

	switch event.Type {
	case comm.EventGameAdded, comm.EventSessionRecorded, comm.EventSessionClosed:
		b.Broadcast(gameOf(event), msgNats.Data)
	default:
		log.Warnf("Unknown event %s", event.Type)
	}
}

// gameOf returns the game name carried by the event payload.
func gameOf(event *comm.Event) string {
	if event.Type == comm.EventGameAdded {
		var p comm.GameAdded
		if err := json.Unmarshal(event.Data, &p); err == nil {
			return p.Name
		}
		return ""
	}

	var p struct {
		GameName string `json:"game_name"`
	}
	if err := json.Unmarshal(event.Data, &p); err != nil {
		return ""
	}
	return p.GameName
}
