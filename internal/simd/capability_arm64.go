//go:build arm64

package simd

import "golang.org/x/sys/cpu"

func init() {
	hasVectorISA = cpu.ARM64.HasASIMD
}
