package amqp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageEncodeDecodeRoundtrip(t *testing.T) {
	m := NewMessage()
	m.Header.Durable = true
	m.Header.Priority = 9
	m.Properties.MessageID = NewMessageIDString("msg-1")
	m.Properties.Address = "queue/orders"
	m.Properties.Subject = "order-placed"
	m.SetApplicationProperties(Map{{Key: "x-retry", Value: int32(3)}})
	m.SetMessageAnnotations(Map{{Key: NewAnnotationKeySymbol("x-opt-partition"), Value: int32(5)}})
	m.Body = "hello, world"

	buf, err := m.Encode()
	require.NoError(t, err)

	got := &Message{}
	n, err := got.DecodeBytes(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	require.True(t, got.Header.Durable)
	require.EqualValues(t, 9, got.Header.Priority)
	require.Equal(t, "msg-1", got.Properties.MessageID.Value())
	require.Equal(t, "queue/orders", got.Properties.Address)
	require.Equal(t, "order-placed", got.Properties.Subject)
	require.Equal(t, "hello, world", got.Body)
	require.False(t, got.Inferred)

	props, err := got.ApplicationProperties()
	require.NoError(t, err)
	v, ok := props.Get("x-retry")
	require.True(t, ok)
	require.EqualValues(t, 3, v)
}

func TestMessageHeaderDefaultPriority(t *testing.T) {
	m := NewMessage()
	require.EqualValues(t, 4, m.Header.Priority)

	// A header section whose priority field is absent on the wire must also
	// decode to priority 4.
	body := &node{tag: TagList, children: []*node{
		{tag: TagNull}, // durable
	}}
	var h Header
	require.NoError(t, readHeader(body, &h))
	require.EqualValues(t, 4, h.Priority)
}

func TestMessageInferredDataBody(t *testing.T) {
	m := NewMessage()
	m.Inferred = true
	m.Body = []byte("raw payload")

	buf, err := m.Encode()
	require.NoError(t, err)

	got := &Message{}
	_, err = got.DecodeBytes(buf)
	require.NoError(t, err)
	require.True(t, got.Inferred)
	require.Equal(t, []byte("raw payload"), got.Body)
}

func TestMessageEmptySectionsOmitted(t *testing.T) {
	m := NewMessage()
	tr, err := m.toTree()
	require.NoError(t, err)
	// No header (default priority, nothing else set), no properties, no
	// annotations, no body, no footer: the tree should have no top-level
	// sections at all.
	require.Len(t, tr.top, 0)

	buf, err := m.Encode()
	require.NoError(t, err)
	require.Len(t, buf, 0)
}

func TestMessageAnnotationsLazyCacheSurvivesDecode(t *testing.T) {
	m := NewMessage()
	m.SetMessageAnnotations(Map{{Key: NewAnnotationKeyUlong(1), Value: "v"}})

	buf, err := m.Encode()
	require.NoError(t, err)

	got := &Message{}
	_, err = got.DecodeBytes(buf)
	require.NoError(t, err)

	// Before any Get call the section should be authoritative on the wire
	// side; asking for the Map decodes it once and caches the result.
	require.Equal(t, authWire, got.messageAnnotations.state)
	ann, err := got.MessageAnnotations()
	require.NoError(t, err)
	require.Equal(t, authMap, got.messageAnnotations.state)
	require.Len(t, ann, 1)
}

func TestMessageFooter(t *testing.T) {
	m := NewMessage()
	m.Body = "x"
	m.Footer = Map{{Key: NewAnnotationKeyUlong(1), Value: "footer-value"}}

	buf, err := m.Encode()
	require.NoError(t, err)

	got := &Message{}
	_, err = got.DecodeBytes(buf)
	require.NoError(t, err)
	require.Len(t, got.Footer, 1)
}
