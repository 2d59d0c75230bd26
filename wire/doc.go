// Package wire holds the protocol-neutral types shared by the CELRIX codecs.
//
// Both the binary codec (package vcp) and the text codec (package resp)
// consume a Command and produce a Value. Command and Value are closed sum
// types: every operation and every response kind has its own Go type, so a
// type switch over them is the whole dispatch.
//
// # Errors
//
// The error types in this package tell the caller what happened to the
// stream, not only what went wrong:
//
//   - ServerError: the server answered with an error. The stream is still
//     aligned on a response boundary and the session can be reused.
//   - InvalidKeyError, InvalidArgumentError: rejected before any byte was
//     written. The session can be reused.
//   - Everything else (ConnectionError, ErrConnectionClosed,
//     FrameTruncatedError, PayloadTruncatedError, BadMagicError,
//     UnknownOpcodeError, UnknownPrefixError, ParseError,
//     ProtocolViolationError): stream alignment is lost, CLOSE the session.
//
// Use ShouldCloseConnection to decide:
//
//	v, err := session.Do(ctx, wire.Get{Key: "k"})
//	if err != nil && wire.ShouldCloseConnection(err) {
//	    session.Close()
//	}
package wire
