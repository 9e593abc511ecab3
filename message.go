package amqp

// Message is an AMQP 1.0 message (spec section 3.5): a fixed header, three
// annotation/property map sections, a body, and a footer. Construct with
// NewMessage; the zero value has an empty, usable Header and Properties but
// no sections cached.
//
// The three map sections (application-properties, message-annotations,
// delivery-annotations) are lazily cached, mirroring the wire-authoritative
// design of spec section 4.5: a Message decoded from the wire keeps each
// section's encoded Tree node until a caller asks for the host-side Map, at
// which point it is decoded once and the Map becomes authoritative; re-
// encoding always renders from whichever side is authoritative.
type Message struct {
	Header     Header
	Properties MessageProperties

	applicationProperties section
	messageAnnotations    section
	deliveryAnnotations   section

	// Inferred selects the body's wire encoding: false (the default) wraps
	// Body in an AMQP-VALUE section; true wraps it in DATA (Body is []byte
	// or Binary) or AMQP-SEQUENCE (Body is a list) sections, per spec
	// section 3.5's body encoding rule.
	Inferred bool
	Body     interface{}

	Footer Map
}

// Header carries the fixed per-delivery fields of spec section 3.5.
// Priority defaults to 4 when absent from the wire, per AMQP 1.0 section
// 3.2.1; NewMessage sets it accordingly.
type Header struct {
	Durable       bool
	Priority      uint8
	TTL           uint32
	TTLSet        bool
	FirstAcquirer bool
	DeliveryCount uint32
}

// MessageProperties carries the application-visible properties of spec
// section 3.5. Address is the teacher's "To" renamed to match the AMQP 1.0
// spec's own field name.
type MessageProperties struct {
	MessageID       MessageID
	UserID          []byte
	Address         string
	ReplyTo         string
	Subject         string
	CorrelationID   MessageID
	ContentType     Symbol
	ContentEncoding Symbol
	ExpiryTime      int64
	ExpiryTimeSet   bool
	CreationTime    int64
	CreationTimeSet bool
	GroupID         string
	GroupSequence   uint32
	ReplyToGroupID  string
}

// authState is the per-section cache state machine of spec section 4.5.
type authState int

const (
	// authEmpty means the section has never been set; it is omitted on encode.
	authEmpty authState = iota
	// authWire means the section's wire Tree node is authoritative; the
	// cached Map, if any, is stale and must be rebuilt on next access.
	authWire
	// authMap means the host-side Map is authoritative; the wire node, if
	// any, is stale and is rebuilt on next encode.
	authMap
)

// section is a lazily-converted MAP-valued message section.
type section struct {
	state authState
	wire  *node // valid when state == authWire
	m     Map   // valid when state == authMap
}

func (s *section) setWire(n *node) {
	s.state = authWire
	s.wire = n
	s.m = nil
}

func (s *section) setMap(m Map) {
	s.state = authMap
	s.m = m
	s.wire = nil
}

// get returns the section's host-side Map, decoding the cached wire node
// the first time it is asked for and then remembering the result so
// repeated Get calls between mutations do not re-decode.
func (s *section) get() (Map, error) {
	switch s.state {
	case authEmpty:
		return Map{}, nil
	case authMap:
		return s.m, nil
	default:
		t := &Tree{top: []*node{s.wire}}
		c := t.Cursor()
		c.Next()
		v, err := GetAny(c)
		if err != nil {
			return nil, err
		}
		m, _ := v.(Map)
		s.setMap(m)
		return m, nil
	}
}

// set overwrites the section wholesale with m, becoming host-side
// authoritative; an empty m is equivalent to never having set the section.
func (s *section) set(m Map) {
	if len(m) == 0 {
		s.state = authEmpty
		s.wire = nil
		s.m = nil
		return
	}
	s.setMap(m)
}

// encodeNode renders the section's current authoritative side into a wire
// node, nil if the section is empty and should be omitted.
func (s *section) encodeNode() (*node, error) {
	switch s.state {
	case authEmpty:
		return nil, nil
	case authWire:
		return s.wire, nil
	default:
		if len(s.m) == 0 {
			return nil, nil
		}
		t := NewTree()
		c := t.Cursor()
		if err := PutAny(c, s.m); err != nil {
			return nil, err
		}
		return t.top[0], nil
	}
}

// NewMessage returns a Message with Header.Priority defaulted to 4, per
// AMQP 1.0's default for an absent priority field.
func NewMessage() *Message {
	return &Message{Header: Header{Priority: 4}}
}

// ApplicationProperties returns the application-properties section as a
// host-side Map, decoding it from the wire on first access if the message
// was built by Decode.
func (m *Message) ApplicationProperties() (Map, error) { return m.applicationProperties.get() }

// SetApplicationProperties replaces the application-properties section.
func (m *Message) SetApplicationProperties(p Map) { m.applicationProperties.set(p) }

// MessageAnnotations returns the message-annotations section as a
// host-side Map. A section decoded from the wire is converted through
// GetAny, so its keys come back as Symbol or uint64 values rather than
// AnnotationKey, and the annotation-key union is not enforced on decode.
func (m *Message) MessageAnnotations() (Map, error) { return m.messageAnnotations.get() }

// SetMessageAnnotations replaces the message-annotations section.
func (m *Message) SetMessageAnnotations(p Map) { m.messageAnnotations.set(p) }

// DeliveryAnnotations returns the delivery-annotations section as a
// host-side Map.
func (m *Message) DeliveryAnnotations() (Map, error) { return m.deliveryAnnotations.get() }

// SetDeliveryAnnotations replaces the delivery-annotations section.
func (m *Message) SetDeliveryAnnotations(p Map) { m.deliveryAnnotations.set(p) }

// toTree renders m into a Tree holding its top-level described sections
// in the fixed order of spec section 3.5 (header, delivery-annotations,
// message-annotations, properties, application-properties, body, footer),
// omitting any section that is empty.
func (m *Message) toTree() (*Tree, error) {
	t := NewTree()
	c := t.Cursor()

	if err := putSectionIfNeeded(c, descriptorHeader, m.hasHeader(), func(c *Cursor) error {
		return putHeader(c, &m.Header)
	}); err != nil {
		return nil, err
	}

	if err := putMapSection(c, descriptorDeliveryAnnotations, &m.deliveryAnnotations); err != nil {
		return nil, err
	}
	if err := putMapSection(c, descriptorMessageAnnotations, &m.messageAnnotations); err != nil {
		return nil, err
	}

	if err := putSectionIfNeeded(c, descriptorProperties, m.hasProperties(), func(c *Cursor) error {
		return putProperties(c, &m.Properties)
	}); err != nil {
		return nil, err
	}

	if err := putMapSection(c, descriptorApplicationProperties, &m.applicationProperties); err != nil {
		return nil, err
	}

	if err := putBody(c, m); err != nil {
		return nil, err
	}

	if len(m.Footer) > 0 {
		if err := putDescribedUlong(c, descriptorFooter, func(c *Cursor) error {
			return PutAny(c, m.Footer)
		}); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// EncodeInto serializes m's sections into buf, the same way Tree.EncodeInto
// does for a bare value tree. It returns ErrOverflow (KindOverflow) if buf
// is too small.
func (m *Message) EncodeInto(buf []byte) (int, error) {
	t, err := m.toTree()
	if err != nil {
		return 0, err
	}
	return t.EncodeInto(buf)
}

// Encode serializes m into a freshly allocated buffer, growing and
// retrying (doubling from minEncodeSize) until the encoding fits, per
// spec section 6.2's message-level encode contract.
func (m *Message) Encode() ([]byte, error) {
	t, err := m.toTree()
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

// DecodeBytes decodes every top-level section out of buf into m. A
// message's wire form is a sequence of described sections concatenated
// one after another, so this loops Tree.Decode until buf is exhausted
// rather than decoding a single value, and returns the number of bytes
// consumed.
func (m *Message) DecodeBytes(buf []byte) (int, error) {
	t := NewTree()
	total := 0
	for total < len(buf) {
		n, err := t.Decode(buf[total:])
		if err != nil {
			return 0, err
		}
		total += n
	}
	if err := m.Decode(t); err != nil {
		return 0, err
	}
	return total, nil
}

// Clear resets m to an empty message, as returned by NewMessage.
func (m *Message) Clear() {
	*m = Message{Header: Header{Priority: 4}}
}

func (m *Message) hasHeader() bool {
	h := m.Header
	return h.Durable || h.Priority != 4 || h.TTLSet || h.FirstAcquirer || h.DeliveryCount != 0
}

func (m *Message) hasProperties() bool {
	p := m.Properties
	return p.MessageID.Value() != nil || len(p.UserID) > 0 || p.Address != "" || p.ReplyTo != "" ||
		p.Subject != "" || p.CorrelationID.Value() != nil || p.ContentType != "" || p.ContentEncoding != "" ||
		p.ExpiryTimeSet || p.CreationTimeSet || p.GroupID != "" || p.GroupSequence != 0 || p.ReplyToGroupID != ""
}

func putDescribedUlong(c *Cursor, descriptor uint64, body func(*Cursor) error) error {
	if err := c.PutDescribed(); err != nil {
		return err
	}
	if !c.Enter() {
		return newError(KindArgument, "internal: enter described")
	}
	if err := c.PutUlong(descriptor); err != nil {
		c.Exit()
		return err
	}
	if err := body(c); err != nil {
		c.Exit()
		return err
	}
	c.Exit()
	return nil
}

func putSectionIfNeeded(c *Cursor, descriptor uint64, present bool, body func(*Cursor) error) error {
	if !present {
		return nil
	}
	return putDescribedUlong(c, descriptor, body)
}

func putMapSection(c *Cursor, descriptor uint64, s *section) error {
	n, err := s.encodeNode()
	if err != nil {
		return err
	}
	if n == nil {
		return nil
	}
	return putDescribedUlong(c, descriptor, func(c *Cursor) error {
		return c.appendNode(cloneNode(n))
	})
}

func putHeader(c *Cursor, h *Header) error {
	if err := c.PutList(); err != nil {
		return err
	}
	if !c.Enter() {
		return newError(KindArgument, "internal: enter header list")
	}
	if err := c.PutBool(h.Durable); err != nil {
		c.Exit()
		return err
	}
	if err := c.PutUbyte(h.Priority); err != nil {
		c.Exit()
		return err
	}
	if h.TTLSet {
		if err := c.PutUint(h.TTL); err != nil {
			c.Exit()
			return err
		}
	} else {
		if err := c.PutNull(); err != nil {
			c.Exit()
			return err
		}
	}
	if err := c.PutBool(h.FirstAcquirer); err != nil {
		c.Exit()
		return err
	}
	if err := c.PutUint(h.DeliveryCount); err != nil {
		c.Exit()
		return err
	}
	c.Exit()
	return nil
}

func putProperties(c *Cursor, p *MessageProperties) error {
	if err := c.PutList(); err != nil {
		return err
	}
	if !c.Enter() {
		return newError(KindArgument, "internal: enter properties list")
	}
	fields := []func() error{
		func() error { return putOptionalAny(c, p.MessageID.Value()) },
		func() error { return putOptionalBinary(c, p.UserID) },
		func() error { return putOptionalString(c, p.Address) },
		func() error { return putOptionalString(c, p.ReplyTo) },
		func() error { return putOptionalString(c, p.Subject) },
		func() error { return putOptionalAny(c, p.CorrelationID.Value()) },
		func() error { return putOptionalSymbol(c, p.ContentType) },
		func() error { return putOptionalSymbol(c, p.ContentEncoding) },
		func() error {
			if !p.ExpiryTimeSet {
				return c.PutNull()
			}
			return c.PutTimestamp(p.ExpiryTime)
		},
		func() error {
			if !p.CreationTimeSet {
				return c.PutNull()
			}
			return c.PutTimestamp(p.CreationTime)
		},
		func() error { return putOptionalString(c, p.GroupID) },
		func() error {
			if p.GroupSequence == 0 {
				return c.PutNull()
			}
			return c.PutUint(p.GroupSequence)
		},
		func() error { return putOptionalString(c, p.ReplyToGroupID) },
	}
	for _, f := range fields {
		if err := f(); err != nil {
			c.Exit()
			return err
		}
	}
	c.Exit()
	return nil
}

func putOptionalAny(c *Cursor, v interface{}) error {
	if v == nil {
		return c.PutNull()
	}
	return PutAny(c, v)
}

func putOptionalString(c *Cursor, s string) error {
	if s == "" {
		return c.PutNull()
	}
	return c.PutString(s)
}

func putOptionalSymbol(c *Cursor, s Symbol) error {
	if s == "" {
		return c.PutNull()
	}
	return c.PutSymbol(string(s))
}

func putOptionalBinary(c *Cursor, b []byte) error {
	if len(b) == 0 {
		return c.PutNull()
	}
	return c.PutBinary(b)
}

func putBody(c *Cursor, m *Message) error {
	if m.Body == nil {
		return nil
	}
	if !m.Inferred {
		return putDescribedUlong(c, descriptorAMQPValue, func(c *Cursor) error {
			return PutAny(c, m.Body)
		})
	}
	switch b := m.Body.(type) {
	case []byte:
		return putDescribedUlong(c, descriptorData, func(c *Cursor) error {
			return c.PutBinary(b)
		})
	case Binary:
		return putDescribedUlong(c, descriptorData, func(c *Cursor) error {
			return c.PutBinary([]byte(b))
		})
	case []interface{}:
		return putDescribedUlong(c, descriptorAMQPSequence, func(c *Cursor) error {
			return putList(c, b)
		})
	default:
		return newConversionError(TagInvalid, m.Body,
			"inferred body must be []byte, Binary, or []interface{}, have %T", m.Body)
	}
}

// Decode reads one message out of t, whose top-level values must each be
// a described section, per spec section 6.1. Header, properties, body and
// footer are decoded at once; the three map sections stay as undecoded
// Tree nodes behind the section cache until a caller asks for their Map
// (ApplicationProperties and friends). Without a header section, Header
// is left at its defaults (priority 4).
func (m *Message) Decode(t *Tree) error {
	m.Header = Header{Priority: 4}
	c := t.Cursor()
	for c.Next() {
		descriptor, body, err := readSection(c)
		if err != nil {
			return err
		}
		if err := m.applySection(descriptor, body); err != nil {
			return wrapError(KindEncoding, err)
		}
	}
	return nil
}

// readSection returns the ULONG descriptor and body node of one top-level
// described section at the cursor's current position.
func readSection(c *Cursor) (uint64, *node, error) {
	if c.Type() != TagDescribed {
		return 0, nil, newTagError(KindEncoding, c.Type(), "message section is not a described value")
	}
	if !c.Enter() {
		return 0, nil, newError(KindEncoding, "described section has no children")
	}
	defer c.Exit()
	if !c.Next() {
		return 0, nil, newError(KindEncoding, "described section missing descriptor")
	}
	descriptor, err := c.GetUlong()
	if err != nil {
		return 0, nil, newTagError(KindEncoding, c.Type(), "message section descriptor must be ulong")
	}
	if !c.Next() {
		return 0, nil, newError(KindEncoding, "described section missing body")
	}
	return descriptor, c.current(), nil
}

func (m *Message) applySection(descriptor uint64, body *node) error {
	switch descriptor {
	case descriptorHeader:
		return readHeader(body, &m.Header)
	case descriptorDeliveryAnnotations:
		m.deliveryAnnotations.setWire(body)
		return nil
	case descriptorMessageAnnotations:
		m.messageAnnotations.setWire(body)
		return nil
	case descriptorProperties:
		return readProperties(body, &m.Properties)
	case descriptorApplicationProperties:
		m.applicationProperties.setWire(body)
		return nil
	case descriptorData:
		m.Inferred = true
		if body.tag != TagBinary {
			return newTagError(KindEncoding, body.tag, "data section body must be binary")
		}
		m.Body = append([]byte(nil), body.bytesVal...)
		return nil
	case descriptorAMQPSequence:
		m.Inferred = true
		t := &Tree{top: []*node{body}}
		c := t.Cursor()
		c.Next()
		v, err := GetAny(c)
		if err != nil {
			return err
		}
		m.Body = v
		return nil
	case descriptorAMQPValue:
		m.Inferred = false
		t := &Tree{top: []*node{body}}
		c := t.Cursor()
		c.Next()
		v, err := GetAny(c)
		if err != nil {
			return err
		}
		m.Body = v
		return nil
	case descriptorFooter:
		t := &Tree{top: []*node{body}}
		c := t.Cursor()
		c.Next()
		v, err := GetAny(c)
		if err != nil {
			return err
		}
		footer, _ := v.(Map)
		m.Footer = footer
		return nil
	default:
		return newError(KindEncoding, "unknown message section descriptor %#x", descriptor)
	}
}

func readHeader(body *node, h *Header) error {
	t := &Tree{top: []*node{body}}
	c := t.Cursor()
	c.Next()
	if !c.Enter() {
		return newTagError(KindEncoding, c.Type(), "header section body must be a list")
	}
	defer c.Exit()
	*h = Header{Priority: 4}
	fields := []func() error{
		func() error {
			if !c.Next() {
				return nil
			}
			if c.Type() == TagNull {
				return nil
			}
			v, err := c.GetBool()
			h.Durable = v
			return err
		},
		func() error {
			if !c.Next() {
				return nil
			}
			if c.Type() == TagNull {
				return nil
			}
			v, err := c.GetUbyte()
			h.Priority = v
			return err
		},
		func() error {
			if !c.Next() {
				return nil
			}
			if c.Type() == TagNull {
				return nil
			}
			v, err := c.GetUint()
			h.TTL, h.TTLSet = v, true
			return err
		},
		func() error {
			if !c.Next() {
				return nil
			}
			if c.Type() == TagNull {
				return nil
			}
			v, err := c.GetBool()
			h.FirstAcquirer = v
			return err
		},
		func() error {
			if !c.Next() {
				return nil
			}
			if c.Type() == TagNull {
				return nil
			}
			v, err := c.GetUint()
			h.DeliveryCount = v
			return err
		},
	}
	for _, f := range fields {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

func readProperties(body *node, p *MessageProperties) error {
	t := &Tree{top: []*node{body}}
	c := t.Cursor()
	c.Next()
	if !c.Enter() {
		return newTagError(KindEncoding, c.Type(), "properties section body must be a list")
	}
	defer c.Exit()
	*p = MessageProperties{}
	fields := []func() error{
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			id, err := getMessageID(c)
			p.MessageID = id
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			v, err := c.GetBinary()
			p.UserID = append([]byte(nil), v...)
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			v, err := c.GetString()
			p.Address = v
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			v, err := c.GetString()
			p.ReplyTo = v
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			v, err := c.GetString()
			p.Subject = v
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			id, err := getMessageID(c)
			p.CorrelationID = id
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			v, err := c.GetSymbol()
			p.ContentType = Symbol(v)
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			v, err := c.GetSymbol()
			p.ContentEncoding = Symbol(v)
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			v, err := c.GetTimestamp()
			p.ExpiryTime, p.ExpiryTimeSet = v, true
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			v, err := c.GetTimestamp()
			p.CreationTime, p.CreationTimeSet = v, true
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			v, err := c.GetString()
			p.GroupID = v
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			v, err := c.GetUint()
			p.GroupSequence = v
			return err
		},
		func() error {
			if !c.Next() || c.Type() == TagNull {
				return nil
			}
			v, err := c.GetString()
			p.ReplyToGroupID = v
			return err
		},
	}
	for _, f := range fields {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}
