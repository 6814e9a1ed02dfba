package tx

// appendCompactSize appends n in Bitcoin's CompactSize varint encoding.
func appendCompactSize(buf []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(buf, byte(n))
	case n <= 0xffff:
		return append(buf, 0xfd, byte(n), byte(n>>8))
	case n <= 0xffffffff:
		return append(buf, 0xfe, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	default:
		return append(buf, 0xff,
			byte(n), byte(n>>8), byte(n>>16), byte(n>>24),
			byte(n>>32), byte(n>>40), byte(n>>48), byte(n>>56))
	}
}

// compactSizeLen returns the encoded length of n as a CompactSize varint.
func compactSizeLen(n uint64) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
