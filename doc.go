// Package celrix is a client for the CELRIX key-value and vector server.
//
// A Session owns one TCP connection and speaks either the binary protocol
// (package vcp) or the text protocol (package resp). Each call to Session.Do
// writes one command and reads exactly one response; calls on the same
// session are serialized.
//
// Client maps the raw responses of a Session onto typed results:
//
//	c, err := celrix.Connect(ctx, celrix.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if _, err := c.Set(ctx, "user:1", []byte("alice"), time.Hour); err != nil {
//		return err
//	}
//	name, found, err := c.Get(ctx, "user:1")
//
// Errors reported by the server surface as *wire.ServerError and leave the
// session usable. Transport and decoding failures close the session; every
// later call returns wire.ErrSessionClosed. See wire.ShouldCloseConnection.
//
// ShardedClient spreads keys over several servers with a jump consistent
// hash.
package celrix
