package simd

import "runtime"

// hasVectorISA is set by the platform-specific init in capability_amd64.go
// / capability_arm64.go. It does not gate correctness (the unrolled kernel
// is pure Go and always safe to run); it gates which kernel selectBest
// installs: the unrolled kernel is chosen only on a platform with float32
// SIMD registers (AVX2 on amd64, 8 lanes; ASIMD on arm64, 4 lanes).
var hasVectorISA bool

func selectBest() {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		if hasVectorISA {
			activeKernel = Unrolled8
			installUnrolled8()
			return
		}
	}
	activeKernel = Scalar
	installScalar()
}
