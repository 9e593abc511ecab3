package amqp

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Symbol distinguishes a SYMBOL host value from a STRING one; both are Go
// strings, but only ASCII bytes are valid for Symbol (spec section 3.2).
type Symbol string

// Char is a 32-bit Unicode code point, distinguished from a plain int32
// (which maps to INT) so PutAny can tell the two apart.
type Char int32

// Binary is an alternate host spelling of []byte, kept for symmetry with
// original_source's Binary type; PutAny treats both identically.
type Binary []byte

// Described is a host-side (descriptor, body) pair, the host mapping of
// an AMQP DESCRIBED value that preserves its descriptor.
type Described struct {
	Descriptor interface{}
	Body       interface{}
}

// Array is the generic host mapping of an AMQP ARRAY whose declared
// element tag is a composite (LIST or MAP) or NULL; arrays of the other
// primitive element types unmarshal into a typed Go slice instead (spec
// section 4.4).
type Array struct {
	ElemTag Tag
	Elems   []interface{}
}

// KV is one entry of an ordered Map.
type KV struct {
	Key   interface{}
	Value interface{}
}

// Map is an ordered host mapping of an AMQP MAP: insertion order is
// preserved and reproduced on encode (spec section 3.2), unlike a Go
// map[K]V. It is also the in-memory representation message sections use
// for their lazy host-side cache (spec section 4.5).
type Map []KV

// Get returns the value for key, using == comparison, and whether it was
// found.
func (m Map) Get(key interface{}) (interface{}, bool) {
	for _, kv := range m {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// Set inserts or updates the value for key, preserving the position of an
// existing key and appending a new one.
func (m *Map) Set(key, value interface{}) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, KV{key, value})
}

// Delete removes key if present.
func (m *Map) Delete(key interface{}) {
	for i := range *m {
		if (*m)[i].Key == key {
			*m = append((*m)[:i], (*m)[i+1:]...)
			return
		}
	}
}

// MessageID is the restricted scalar union AMQP 1.0 permits for a
// message's id and correlation-id properties: ULONG, UUID, BINARY, or
// STRING (spec section 3.4).
type MessageID struct{ v interface{} }

func NewMessageIDUlong(v uint64) MessageID  { return MessageID{v} }
func NewMessageIDUUID(v [16]byte) MessageID { return MessageID{v} }
func NewMessageIDBinary(v []byte) MessageID { return MessageID{append([]byte(nil), v...)} }
func NewMessageIDString(v string) MessageID { return MessageID{v} }

// NewMessageID generates a fresh random MessageID, UUID-valued.
func NewMessageID() MessageID {
	id := uuid.New()
	var b [16]byte
	copy(b[:], id[:])
	return MessageID{b}
}

// Value returns the wrapped ULONG (uint64), UUID ([16]byte), BINARY
// ([]byte), STRING (string), or nil if unset.
func (m MessageID) Value() interface{} { return m.v }

func putMessageID(c *Cursor, m MessageID) error {
	switch v := m.v.(type) {
	case nil:
		return c.PutNull()
	case uint64:
		return c.PutUlong(v)
	case [16]byte:
		return c.PutUUID(v)
	case []byte:
		return c.PutBinary(v)
	case string:
		return c.PutString(v)
	default:
		return newConversionError(TagInvalid, m.v, "message-id must be ulong, uuid, binary, or string, have %T", m.v)
	}
}

func getMessageID(c *Cursor) (MessageID, error) {
	switch c.Type() {
	case TagUlong:
		v, err := c.GetUlong()
		return MessageID{v}, err
	case TagUUID:
		v, err := c.GetUUID()
		return MessageID{v}, err
	case TagBinary:
		v, err := c.GetBinary()
		if err != nil {
			return MessageID{}, err
		}
		return MessageID{append([]byte(nil), v...)}, nil
	case TagString:
		v, err := c.GetString()
		return MessageID{v}, err
	case TagInvalid, TagNull:
		return MessageID{}, nil
	default:
		return MessageID{}, newTagError(KindArgument, c.Type(), "message-id must be ulong, uuid, binary, or string")
	}
}

// AnnotationKey is the restricted scalar union for message-annotations
// and delivery-annotations keys: ULONG or SYMBOL (spec section 3.4).
// Assignment from a raw text type defaults to SYMBOL.
type AnnotationKey struct{ v interface{} }

func NewAnnotationKeyUlong(v uint64) AnnotationKey   { return AnnotationKey{v} }
func NewAnnotationKeySymbol(v string) AnnotationKey  { return AnnotationKey{Symbol(v)} }
func AnnotationKeyFromText(text string) AnnotationKey { return AnnotationKey{Symbol(text)} }

func (k AnnotationKey) Value() interface{} { return k.v }

func putAnnotationKey(c *Cursor, k AnnotationKey) error {
	switch v := k.v.(type) {
	case uint64:
		return c.PutUlong(v)
	case Symbol:
		return c.PutSymbol(string(v))
	case string:
		return c.PutSymbol(v)
	default:
		return newConversionError(TagInvalid, k.v, "annotation-key must be ulong or symbol, have %T", k.v)
	}
}

func getAnnotationKey(c *Cursor) (AnnotationKey, error) {
	switch c.Type() {
	case TagUlong:
		v, err := c.GetUlong()
		return AnnotationKey{v}, err
	case TagSymbol:
		v, err := c.GetSymbol()
		return AnnotationKey{Symbol(v)}, err
	default:
		return AnnotationKey{}, newTagError(KindArgument, c.Type(), "annotation-key must be ulong or symbol")
	}
}

// PutAny appends v at the cursor's current position, dispatching on v's
// dynamic type per the host -> AMQP table of spec section 4.4. Forbidden
// host types (functions, channels, pointers without a defined conversion,
// complex numbers) return a KindArgument error naming the host type.
func PutAny(c *Cursor, v interface{}) error {
	switch x := v.(type) {
	case nil:
		return c.PutNull()
	case bool:
		return c.PutBool(x)
	case int8:
		return c.PutByte(x)
	case int16:
		return c.PutShort(x)
	case int32:
		return c.PutInt(x)
	case int64:
		return c.PutLong(x)
	case int:
		return c.PutLong(int64(x))
	case uint8:
		return c.PutUbyte(x)
	case uint16:
		return c.PutUshort(x)
	case uint32:
		return c.PutUint(x)
	case uint64:
		return c.PutUlong(x)
	case uint:
		return c.PutUlong(uint64(x))
	case float32:
		return c.PutFloat(x)
	case float64:
		return c.PutDouble(x)
	case string:
		return c.PutString(x)
	case Symbol:
		return c.PutSymbol(string(x))
	case []byte:
		return c.PutBinary(x)
	case Binary:
		return c.PutBinary([]byte(x))
	case Char:
		return c.PutChar(rune(x))
	case time.Time:
		return c.PutTimestamp(x.UnixNano() / int64(time.Millisecond))
	case [16]byte:
		return c.PutUUID(x)
	case uuid.UUID:
		var b [16]byte
		copy(b[:], x[:])
		return c.PutUUID(b)
	case MessageID:
		return putMessageID(c, x)
	case AnnotationKey:
		return putAnnotationKey(c, x)
	case Described:
		return putDescribed(c, x)
	case Map:
		return putMap(c, x)
	case []interface{}:
		return putList(c, x)
	default:
		return putReflect(c, v)
	}
}

func putDescribed(c *Cursor, d Described) error {
	if err := c.PutDescribed(); err != nil {
		return err
	}
	if !c.Enter() {
		return newError(KindArgument, "internal: enter described")
	}
	if err := PutAny(c, d.Descriptor); err != nil {
		c.Exit()
		return err
	}
	if err := PutAny(c, d.Body); err != nil {
		c.Exit()
		return err
	}
	c.Exit()
	return nil
}

func putMap(c *Cursor, m Map) error {
	if err := c.PutMap(); err != nil {
		return err
	}
	if !c.Enter() {
		return newError(KindArgument, "internal: enter map")
	}
	for _, kv := range m {
		if err := PutAny(c, kv.Key); err != nil {
			c.Exit()
			return err
		}
		if err := PutAny(c, kv.Value); err != nil {
			c.Exit()
			return err
		}
	}
	c.Exit()
	return nil
}

func putList(c *Cursor, items []interface{}) error {
	if err := c.PutList(); err != nil {
		return err
	}
	if !c.Enter() {
		return newError(KindArgument, "internal: enter list")
	}
	for _, item := range items {
		if err := PutAny(c, item); err != nil {
			c.Exit()
			return err
		}
	}
	c.Exit()
	return nil
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
	byte16   = reflect.TypeOf([16]byte{})
	symType  = reflect.TypeOf(Symbol(""))
	charType = reflect.TypeOf(Char(0))
)

func tagForGoType(t reflect.Type) (Tag, error) {
	switch t {
	case timeType:
		return TagTimestamp, nil
	case uuidType, byte16:
		return TagUUID, nil
	case symType:
		return TagSymbol, nil
	case charType:
		return TagChar, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return TagBool, nil
	case reflect.Int8:
		return TagByte, nil
	case reflect.Int16:
		return TagShort, nil
	case reflect.Int32:
		return TagInt, nil
	case reflect.Int64, reflect.Int:
		return TagLong, nil
	case reflect.Uint8:
		return TagUbyte, nil
	case reflect.Uint16:
		return TagUshort, nil
	case reflect.Uint32:
		return TagUint, nil
	case reflect.Uint64, reflect.Uint:
		return TagUlong, nil
	case reflect.Float32:
		return TagFloat, nil
	case reflect.Float64:
		return TagDouble, nil
	case reflect.String:
		return TagString, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return TagBinary, nil
		}
	}
	return TagInvalid, newConversionError(TagInvalid, reflect.Zero(t).Interface(),
		"no AMQP array element conversion for host type %s", t)
}

// putReflect handles map[K]V (-> MAP, via reflection since a plain Go map
// has no defined iteration order: callers that need ordering preserved
// should use Map instead) and slice/array types not already handled by
// PutAny's type switch. It mirrors original_source's marshal() reflection
// fallback.
func putReflect(c *Cursor, v interface{}) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if err := c.PutMap(); err != nil {
			return err
		}
		if !c.Enter() {
			return newError(KindArgument, "internal: enter map")
		}
		for _, k := range rv.MapKeys() {
			if err := PutAny(c, k.Interface()); err != nil {
				c.Exit()
				return err
			}
			if err := PutAny(c, rv.MapIndex(k).Interface()); err != nil {
				c.Exit()
				return err
			}
		}
		c.Exit()
		return nil
	case reflect.Slice, reflect.Array:
		elemType := rv.Type().Elem()
		if elemType.Kind() == reflect.Interface {
			items := make([]interface{}, rv.Len())
			for i := range items {
				items[i] = rv.Index(i).Interface()
			}
			return putList(c, items)
		}
		elemTag, err := tagForGoType(elemType)
		if err != nil {
			return err
		}
		if err := c.PutArray(elemTag); err != nil {
			return err
		}
		if !c.Enter() {
			return newError(KindArgument, "internal: enter array")
		}
		for i := 0; i < rv.Len(); i++ {
			if err := PutAny(c, rv.Index(i).Interface()); err != nil {
				c.Exit()
				return err
			}
		}
		c.Exit()
		return nil
	default:
		return newConversionError(TagInvalid, v, "no AMQP conversion for host type %T", v)
	}
}

// GetAny reads the value at the cursor's current position into its
// natural host representation, dispatching on the AMQP tag per the
// AMQP -> host table of spec section 4.4. This completes the any-dispatch
// that the teacher's equivalent (readAny) left unimplemented for float,
// double, char, uuid, list, map, and array.
func GetAny(c *Cursor) (interface{}, error) {
	switch c.Type() {
	case TagInvalid, TagNull:
		return nil, nil
	case TagBool:
		return c.GetBool()
	case TagUbyte:
		return c.GetUbyte()
	case TagByte:
		return c.GetByte()
	case TagUshort:
		return c.GetUshort()
	case TagShort:
		return c.GetShort()
	case TagUint:
		return c.GetUint()
	case TagInt:
		return c.GetInt()
	case TagUlong:
		return c.GetUlong()
	case TagLong:
		return c.GetLong()
	case TagFloat:
		return c.GetFloat()
	case TagDouble:
		return c.GetDouble()
	case TagChar:
		r, err := c.GetChar()
		return Char(r), err
	case TagTimestamp:
		ms, err := c.GetTimestamp()
		if err != nil {
			return nil, err
		}
		return time.Unix(0, ms*int64(time.Millisecond)).UTC(), nil
	case TagUUID:
		return c.GetUUID()
	case TagBinary:
		b, err := c.GetBinary()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), b...), nil
	case TagString:
		return c.GetString()
	case TagSymbol:
		s, err := c.GetSymbol()
		return Symbol(s), err
	case TagDescribed:
		return getAnyDescribed(c)
	case TagList:
		return getAnyList(c)
	case TagMap:
		return getAnyMap(c)
	case TagArray:
		return getAnyArray(c)
	default:
		return nil, newTagError(KindArgument, c.Type(), "no host conversion for tag %s", c.Type())
	}
}

func getAnyDescribed(c *Cursor) (interface{}, error) {
	if !c.Enter() {
		return nil, newError(KindEncoding, "described value has no children")
	}
	defer c.Exit()
	if !c.Next() {
		return nil, newError(KindEncoding, "described value missing descriptor")
	}
	descriptor, err := GetAny(c)
	if err != nil {
		return nil, err
	}
	if !c.Next() {
		return nil, newError(KindEncoding, "described value missing body")
	}
	body, err := GetAny(c)
	if err != nil {
		return nil, err
	}
	return Described{Descriptor: descriptor, Body: body}, nil
}

func getAnyList(c *Cursor) (interface{}, error) {
	out := []interface{}{}
	if !c.Enter() {
		return out, nil
	}
	defer c.Exit()
	for c.Next() {
		v, err := GetAny(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func getAnyMap(c *Cursor) (interface{}, error) {
	out := Map{}
	if !c.Enter() {
		return out, nil
	}
	defer c.Exit()
	for c.Next() {
		k, err := GetAny(c)
		if err != nil {
			return nil, err
		}
		if !c.Next() {
			return nil, newError(KindEncoding, "map has an odd number of entries")
		}
		v, err := GetAny(c)
		if err != nil {
			return nil, err
		}
		out = append(out, KV{k, v})
	}
	return out, nil
}

func getAnyArray(c *Cursor) (interface{}, error) {
	elemTag := c.ElementTag()
	if !c.Enter() {
		return nil, nil
	}
	defer c.Exit()
	switch elemTag {
	case TagBool:
		var out []bool
		for c.Next() {
			v, err := c.GetBool()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagUbyte:
		var out []uint8
		for c.Next() {
			v, err := c.GetUbyte()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagByte:
		var out []int8
		for c.Next() {
			v, err := c.GetByte()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagUshort:
		var out []uint16
		for c.Next() {
			v, err := c.GetUshort()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagShort:
		var out []int16
		for c.Next() {
			v, err := c.GetShort()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagUint:
		var out []uint32
		for c.Next() {
			v, err := c.GetUint()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagInt:
		var out []int32
		for c.Next() {
			v, err := c.GetInt()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagUlong:
		var out []uint64
		for c.Next() {
			v, err := c.GetUlong()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagLong:
		var out []int64
		for c.Next() {
			v, err := c.GetLong()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagFloat:
		var out []float32
		for c.Next() {
			v, err := c.GetFloat()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagDouble:
		var out []float64
		for c.Next() {
			v, err := c.GetDouble()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagChar:
		var out []Char
		for c.Next() {
			v, err := c.GetChar()
			if err != nil {
				return nil, err
			}
			out = append(out, Char(v))
		}
		return out, nil
	case TagTimestamp:
		var out []time.Time
		for c.Next() {
			ms, err := c.GetTimestamp()
			if err != nil {
				return nil, err
			}
			out = append(out, time.Unix(0, ms*int64(time.Millisecond)).UTC())
		}
		return out, nil
	case TagUUID:
		var out [][16]byte
		for c.Next() {
			v, err := c.GetUUID()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagBinary:
		var out [][]byte
		for c.Next() {
			v, err := c.GetBinary()
			if err != nil {
				return nil, err
			}
			out = append(out, append([]byte(nil), v...))
		}
		return out, nil
	case TagString:
		var out []string
		for c.Next() {
			v, err := c.GetString()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TagSymbol:
		var out []Symbol
		for c.Next() {
			v, err := c.GetSymbol()
			if err != nil {
				return nil, err
			}
			out = append(out, Symbol(v))
		}
		return out, nil
	default:
		out := Array{ElemTag: elemTag}
		for c.Next() {
			v, err := GetAny(c)
			if err != nil {
				return nil, err
			}
			out.Elems = append(out.Elems, v)
		}
		return out, nil
	}
}

// GetIntWidening16 reads BYTE, SHORT, or CHAR (when it fits) into an
// int16, implementing spec section 4.4's "widening when lossless" rule.
func GetIntWidening16(c *Cursor) (int16, error) {
	n := c.current()
	switch tagOf(n) {
	case TagByte, TagShort:
		return int16(n.intVal), nil
	case TagChar:
		if n.intVal < -32768 || n.intVal > 32767 {
			return 0, newTagError(KindArgument, TagChar, "char %#x does not fit in int16", n.intVal)
		}
		return int16(n.intVal), nil
	default:
		return 0, mismatch(n, TagShort)
	}
}

// GetIntWidening32 reads BYTE, SHORT, INT, or CHAR into an int32.
func GetIntWidening32(c *Cursor) (int32, error) {
	n := c.current()
	switch tagOf(n) {
	case TagByte, TagShort, TagInt, TagChar:
		return int32(n.intVal), nil
	default:
		return 0, mismatch(n, TagInt)
	}
}

// GetIntWidening64 reads BYTE, SHORT, INT, LONG, CHAR, or TIMESTAMP into
// an int64.
func GetIntWidening64(c *Cursor) (int64, error) {
	n := c.current()
	switch tagOf(n) {
	case TagByte, TagShort, TagInt, TagLong, TagChar, TagTimestamp:
		return n.intVal, nil
	default:
		return 0, mismatch(n, TagLong)
	}
}

// GetUintWidening16 reads UBYTE or USHORT into a uint16.
func GetUintWidening16(c *Cursor) (uint16, error) {
	n := c.current()
	switch tagOf(n) {
	case TagUbyte, TagUshort:
		return uint16(n.uintVal), nil
	default:
		return 0, mismatch(n, TagUshort)
	}
}

// GetUintWidening32 reads UBYTE, USHORT, or UINT into a uint32.
func GetUintWidening32(c *Cursor) (uint32, error) {
	n := c.current()
	switch tagOf(n) {
	case TagUbyte, TagUshort, TagUint:
		return uint32(n.uintVal), nil
	default:
		return 0, mismatch(n, TagUint)
	}
}

// GetUintWidening64 reads UBYTE, USHORT, UINT, or ULONG into a uint64.
func GetUintWidening64(c *Cursor) (uint64, error) {
	n := c.current()
	switch tagOf(n) {
	case TagUbyte, TagUshort, TagUint, TagUlong:
		return n.uintVal, nil
	default:
		return 0, mismatch(n, TagUlong)
	}
}

func tagOf(n *node) Tag {
	if n == nil {
		return TagInvalid
	}
	return n.tag
}
