package store

import (
	"encoding/binary"
	"math"
)

// encodeVector serializes v as the little-endian float32 BLOB format the
// sqlite-vec virtual table's vec0 columns expect.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is encodeVector's inverse. MMR scoring does not use it: the
// retriever re-embeds candidate texts instead.
func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
