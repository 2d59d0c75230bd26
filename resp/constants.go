package resp

// Type prefixes.
const (
	PrefixStatus  = '+'
	PrefixError   = '-'
	PrefixInteger = ':'
	PrefixBulk    = '$'
	PrefixArray   = '*'
)

// CRLF terminates every line and every bulk body.
const CRLF = "\r\n"

const (
	// DefaultMaxDepth bounds array nesting when decoding.
	DefaultMaxDepth = 32

	// MaxBulkLength is the largest bulk body or array count accepted.
	MaxBulkLength = 512 << 20

	// nullLength marks a null bulk string or array.
	nullLength = -1
)
