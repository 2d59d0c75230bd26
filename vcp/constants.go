package vcp

import "fmt"

// Opcode identifies a command or a response kind.
type Opcode byte

// Frame layout constants.
const (
	// Magic opens every frame.
	Magic = "CELX"

	// Version is the only protocol version this package speaks.
	Version byte = 1

	// HeaderSize is the fixed header length:
	// magic(4) version(1) opcode(1) flags(2) payloadLen(4) requestID(8) reserved(2).
	HeaderSize = 22
)

// Header field offsets.
const (
	offMagic      = 0
	offVersion    = 4
	offOpcode     = 5
	offFlags      = 6
	offPayloadLen = 8
	offRequestID  = 12
	offReserved   = 20
)

// Command opcodes.
const (
	OpPing   Opcode = 0x01
	OpPong   Opcode = 0x02
	OpGet    Opcode = 0x03
	OpSet    Opcode = 0x04
	OpDel    Opcode = 0x05
	OpExists Opcode = 0x06
	OpMGet   Opcode = 0x07
	OpMSet   Opcode = 0x08
	OpMDel   Opcode = 0x09
	OpIncr   Opcode = 0x0A
	OpDecr   Opcode = 0x0B
	OpIncrBy Opcode = 0x0C
	OpDecrBy Opcode = 0x0D
	OpScan   Opcode = 0x0E
	OpKeys   Opcode = 0x0F

	OpVectorAdd    Opcode = 0x20
	OpVectorSearch Opcode = 0x21
)

// Response opcodes.
const (
	OpOK      Opcode = 0x10
	OpError   Opcode = 0x11
	OpValue   Opcode = 0x12
	OpNil     Opcode = 0x13
	OpInteger Opcode = 0x14
	OpArray   Opcode = 0x15
)

var opcodeNames = map[Opcode]string{
	OpPing:         "PING",
	OpPong:         "PONG",
	OpGet:          "GET",
	OpSet:          "SET",
	OpDel:          "DEL",
	OpExists:       "EXISTS",
	OpMGet:         "MGET",
	OpMSet:         "MSET",
	OpMDel:         "MDEL",
	OpIncr:         "INCR",
	OpDecr:         "DECR",
	OpIncrBy:       "INCRBY",
	OpDecrBy:       "DECRBY",
	OpScan:         "SCAN",
	OpKeys:         "KEYS",
	OpOK:           "OK",
	OpError:        "ERROR",
	OpValue:        "VALUE",
	OpNil:          "NIL",
	OpInteger:      "INTEGER",
	OpArray:        "ARRAY",
	OpVectorAdd:    "VECTOR_ADD",
	OpVectorSearch: "VECTOR_SEARCH",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(0x%02x)", byte(op))
}

// IsResponse reports whether op is sent by the server.
func (op Opcode) IsResponse() bool {
	return op == OpPong || (op >= OpOK && op <= OpArray)
}
