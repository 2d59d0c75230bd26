// Package vcp implements the CELRIX binary wire protocol.
//
// Every message is one frame: a fixed 22-byte header followed by exactly
// PayloadLen payload bytes. There is no delimiter; the length field alone
// decides where a frame ends.
//
//	+-------+---------+--------+-------+------------+-----------+----------+
//	| magic | version | opcode | flags | payloadLen | requestID | reserved |
//	|  4 B  |   1 B   |  1 B   |  2 B  |    4 B     |    8 B    |   2 B    |
//	+-------+---------+--------+-------+------------+-----------+----------+
//
// The magic is "CELX", the version is 1, flags and reserved bytes are zero,
// and every multi-byte integer is big-endian.
//
// # Client side
//
//	err := vcp.WriteRequest(bw, 1, wire.Get{Key: "k"})
//	hdr, v, err := vcp.ReadResponse(br)
//
// # Peer side
//
// ReadRequest, DecodeCommand, EncodeResponse and WriteResponse let a test
// double or a proxy speak the server half of the protocol.
//
// # Failure modes
//
// A header whose magic is wrong fails with *wire.BadMagicError before any
// payload byte is read. A stream that ends before PayloadLen bytes arrived
// fails with *wire.FrameTruncatedError and never yields partial data. A
// length inside a payload that points past its end fails with
// *wire.PayloadTruncatedError. In all of these cases the stream has lost
// frame alignment and the connection must be closed.
//
// The package holds no connection state: request IDs are chosen by the
// caller.
package vcp
