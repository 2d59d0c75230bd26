// Package resp implements the CELRIX text protocol, a RESP-like line format.
//
// Requests are arrays of bulk strings:
//
//	*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n
//
// Responses start with a one-byte type prefix:
//
//	+OK\r\n          status
//	-ERR msg\r\n     error
//	:42\r\n          integer
//	$5\r\nhello\r\n  bulk string ($-1 is null)
//	*2\r\n...        array of nested responses (*-1 is null)
//
// Decoding is bounded: bulk bodies and array counts are capped at
// MaxBulkLength and arrays may nest at most DefaultMaxDepth levels unless
// ReadValueDepth is used. A bulk body is read with one exact-length read and
// must be followed by CRLF.
package resp
