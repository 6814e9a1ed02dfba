package crypto

// Zero overwrites b with zero bytes. Sensitive buffers (seeds, private
// keys, chain codes, HMAC intermediates) are cleared with Zero on every
// exit path rather than left to the garbage collector.
//
// In a garbage-collected runtime this is best-effort mitigation, not a
// hard guarantee: the runtime may have copied the buffer (stack growth,
// GC moves) before it is cleared. It still shrinks the window during
// which key material sits in reachable memory.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Zero32 overwrites a fixed 32-byte array with zero bytes.
func Zero32(b *[32]byte) {
	for i := range b {
		b[i] = 0
	}
}
