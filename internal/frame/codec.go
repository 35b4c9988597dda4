// internal/frame/codec.go
package frame

import "encoding/binary"

// Decode24 reads a big-endian 24-bit two's complement value.
// The sign is taken from the top bit of the first byte and extended
// into a 4-byte prefix before the big-endian reinterpretation.
func Decode24(b []byte) int32 {
	var word [4]byte
	if b[0] >= 0x80 {
		word[0] = 0xFF
	}
	copy(word[1:], b[:3])
	return int32(binary.BigEndian.Uint32(word[:]))
}

// Encode24 writes the low 24 bits of v big-endian.
func Encode24(dst []byte, v int32) {
	dst[0] = byte(v >> 16)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v)
}

// Decode16 reads a big-endian signed 16-bit value.
func Decode16(b []byte) int16 {
	return int16(binary.BigEndian.Uint16(b[:2]))
}

// Encode builds one wire frame.
// Used by the simulator and tests; the board is the only real producer.
func Encode(id uint8, channels []int32, aux []int16) []byte {
	out := make([]byte, 0, 3+len(channels)*ChannelWidth+len(aux)*AuxWidth)
	out = append(out, StartByte, id)

	var c [ChannelWidth]byte
	for _, v := range channels {
		Encode24(c[:], v)
		out = append(out, c[:]...)
	}

	var a [AuxWidth]byte
	for _, v := range aux {
		binary.BigEndian.PutUint16(a[:], uint16(v))
		out = append(out, a[:]...)
	}

	return append(out, EndByte)
}
