package walog

import (
	"fmt"
	"strconv"
	"strings"
)

// OpAddVector is the only mutating operation this engine's WAL recognizes.
const OpAddVector = "ADD_VECTOR"

// EncodeVector renders v as "[f0, f1, ...]" with full-precision decimals,
// the canonical ADD_VECTOR payload rendering.
func EncodeVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// DecodeVector parses the "[f0, f1, ...]" rendering produced by
// EncodeVector. An empty vector ("[]") decodes to a non-nil, zero-length
// slice.
func DecodeVector(payload string) ([]float32, error) {
	payload = strings.TrimSpace(payload)
	if len(payload) < 2 || payload[0] != '[' || payload[len(payload)-1] != ']' {
		return nil, fmt.Errorf("walog: malformed vector payload %q", payload)
	}
	inner := strings.TrimSpace(payload[1 : len(payload)-1])
	if inner == "" {
		return []float32{}, nil
	}

	parts := strings.Split(inner, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("walog: malformed vector payload %q: %w", payload, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
