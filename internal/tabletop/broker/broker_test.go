package broker

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/avvvet/tabletop-services/internal/comm"
	"github.com/stretchr/testify/require"
)

type captureConn struct {
	subject string
	data    []byte
	err     error
}

func (c *captureConn) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func Test_Broker_Publish_Wraps_Payload_In_Envelope(t *testing.T) {
	// Arrange
	conn := &captureConn{}
	b := NewBroker(conn, "tabletop.events", "instance-1")
	at := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)
	b.now = func() time.Time { return at }

	// Act
	err := b.Publish(comm.EventSessionClosed, comm.SessionClosed{SessionId: "s1", GameName: "Chess"})

	// Assert
	require.NoError(t, err)
	require.Equal(t, "tabletop.events", conn.subject)

	var ev comm.Event
	require.NoError(t, json.Unmarshal(conn.data, &ev))
	require.Equal(t, comm.EventSessionClosed, ev.Type)
	require.Equal(t, "instance-1", ev.InstanceId)
	require.True(t, at.Equal(ev.Timestamp))

	var payload comm.SessionClosed
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	require.Equal(t, comm.SessionClosed{SessionId: "s1", GameName: "Chess"}, payload)
}

func Test_Broker_Publish_Returns_Connection_Errors(t *testing.T) {
	cause := errors.New("nats: connection closed")
	b := NewBroker(&captureConn{err: cause}, "tabletop.events", "instance-1")

	err := b.Publish(comm.EventGameAdded, comm.GameAdded{GameId: "g1", Name: "Go"})

	require.ErrorIs(t, err, cause)
}

func Test_Broker_Publish_Rejects_Unencodable_Payload(t *testing.T) {
	conn := &captureConn{}
	b := NewBroker(conn, "tabletop.events", "instance-1")

	err := b.Publish(comm.EventGameAdded, make(chan int))

	require.Error(t, err)
	require.Nil(t, conn.data)
}
