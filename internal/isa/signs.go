package isa

import "github.com/samcharles93/arbor/internal/errs"

// ToUnsigned maps a signed value in [-2^(bits-1), 2^(bits-1)-1] to its
// two's-complement encoding in [0, 2^bits-1].
func ToUnsigned(v, bits int) (int, error) {
	lo, hi := -(1 << (bits - 1)), 1<<(bits-1)-1
	if v < lo || v > hi {
		return 0, errs.Capacity("weight", "%d does not fit in %d signed bits [%d, %d]", v, bits, lo, hi)
	}
	if v < 0 {
		return (1 << bits) + v, nil
	}
	return v, nil
}

// ToSigned is the inverse of ToUnsigned.
func ToSigned(u, bits int) (int, error) {
	if u < 0 || u >= 1<<bits {
		return 0, errs.Capacity("weight", "%d is not a %d-bit unsigned value", u, bits)
	}
	if u > 1<<(bits-1)-1 {
		return u - (1 << bits), nil
	}
	return u, nil
}
