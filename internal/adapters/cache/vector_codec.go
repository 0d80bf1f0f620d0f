package cache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mikey/mail-lens/internal/core"
)

// encodeVector packs a vector as little-endian float32 values
func encodeVector(v core.Embedding) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) (core.Embedding, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector blob of %d bytes", len(buf))
	}
	v := make(core.Embedding, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
