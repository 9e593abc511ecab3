package amqp

import "fmt"

// Tag is the closed enumeration of AMQP 1.0 value types (spec section 1.6).
type Tag uint8

const (
	TagInvalid Tag = iota
	TagNull
	TagBool
	TagUbyte
	TagByte
	TagUshort
	TagShort
	TagUint
	TagInt
	TagUlong
	TagLong
	TagFloat
	TagDouble
	TagChar
	TagTimestamp
	TagUUID
	TagBinary
	TagString
	TagSymbol
	TagDescribed
	TagArray
	TagList
	TagMap
)

func (t Tag) String() string {
	switch t {
	case TagInvalid:
		return "invalid"
	case TagNull:
		return "null"
	case TagBool:
		return "bool"
	case TagUbyte:
		return "ubyte"
	case TagByte:
		return "byte"
	case TagUshort:
		return "ushort"
	case TagShort:
		return "short"
	case TagUint:
		return "uint"
	case TagInt:
		return "int"
	case TagUlong:
		return "ulong"
	case TagLong:
		return "long"
	case TagFloat:
		return "float"
	case TagDouble:
		return "double"
	case TagChar:
		return "char"
	case TagTimestamp:
		return "timestamp"
	case TagUUID:
		return "uuid"
	case TagBinary:
		return "binary"
	case TagString:
		return "string"
	case TagSymbol:
		return "symbol"
	case TagDescribed:
		return "described"
	case TagArray:
		return "array"
	case TagList:
		return "list"
	case TagMap:
		return "map"
	default:
		return fmt.Sprintf("tag(%#02x)", uint8(t))
	}
}

// Wire constructor bytes, AMQP 1.0 section 1.6. Names mirror the AMQP spec's
// own primitive type names rather than this package's Tag constants, since
// several tags have more than one constructor (minimal vs. non-minimal).
const (
	codeNull    byte = 0x40
	codeBoolean byte = 0x56
	codeTrue    byte = 0x41
	codeFalse   byte = 0x42

	codeUbyte byte = 0x50

	codeUshort byte = 0x60

	codeUint      byte = 0x70
	codeSmallUint byte = 0x52
	codeUint0     byte = 0x43

	codeUlong      byte = 0x80
	codeSmallUlong byte = 0x53
	codeUlong0     byte = 0x44

	codeByte byte = 0x51

	codeShort byte = 0x61

	codeInt      byte = 0x71
	codeSmallInt byte = 0x54

	codeLong      byte = 0x81
	codeSmallLong byte = 0x55

	codeFloat  byte = 0x72
	codeDouble byte = 0x82

	codeChar byte = 0x73

	codeTimestamp byte = 0x83

	codeUUID byte = 0x98

	codeVbin8  byte = 0xa0
	codeVbin32 byte = 0xb0

	codeStr8  byte = 0xa1
	codeStr32 byte = 0xb1

	codeSym8  byte = 0xa3
	codeSym32 byte = 0xb3

	codeList0  byte = 0x45
	codeList8  byte = 0xc0
	codeList32 byte = 0xd0

	codeMap8  byte = 0xc1
	codeMap32 byte = 0xd1

	codeArray8  byte = 0xe0
	codeArray32 byte = 0xf0

	// codeDescribed is not a type constructor in its own right: it prefixes
	// a descriptor value followed by the constructor of the body value.
	codeDescribed byte = 0x00
)

// Message section descriptors, AMQP 1.0 section 3.2. These are the ULONG
// values carried by a DESCRIBED section's descriptor, not wire type codes.
const (
	descriptorHeader                uint64 = 0x70
	descriptorDeliveryAnnotations   uint64 = 0x71
	descriptorMessageAnnotations    uint64 = 0x72
	descriptorProperties            uint64 = 0x73
	descriptorApplicationProperties uint64 = 0x74
	descriptorData                  uint64 = 0x75
	descriptorAMQPSequence          uint64 = 0x76
	descriptorAMQPValue             uint64 = 0x77
	descriptorFooter                uint64 = 0x78
)

// decimal type codes appear on the wire but are explicitly unsupported
// (spec non-goal); kept only so the decoder can recognize and reject them
// with a typed UNSUPPORTED error instead of a generic MALFORMED one.
const (
	codeDecimal32  byte = 0x74
	codeDecimal64  byte = 0x84
	codeDecimal128 byte = 0x94
)

func isDecimalCode(b byte) bool {
	return b == codeDecimal32 || b == codeDecimal64 || b == codeDecimal128
}
