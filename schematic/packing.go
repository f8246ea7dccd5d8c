package schematic

import "fmt"

// Packing selects how the force flag and probability of a node share a
// byte on disk.
type Packing uint8

const (
	// ForceHighBit stores the force flag in bit 7 and the probability in
	// bits 0-6. This is what current versions of Minetest write.
	ForceHighBit Packing = iota
	// ForceLowBit stores the probability in bits 1-7 and the force flag in
	// bit 0, as written by some older tools.
	ForceLowBit
)

const probMask = 0x7f

// Pack combines prob and force into a single byte. Probabilities above 127
// are truncated to 7 bits.
func (p Packing) Pack(prob uint8, force bool) byte {
	var b byte
	switch p {
	case ForceLowBit:
		b = (prob & probMask) << 1
		if force {
			b |= 0x01
		}
	default:
		b = prob & probMask
		if force {
			b |= 0x80
		}
	}
	return b
}

// Unpack splits b into a probability and force flag.
func (p Packing) Unpack(b byte) (uint8, bool) {
	switch p {
	case ForceLowBit:
		return b >> 1, b&0x01 != 0
	default:
		return b & probMask, b&0x80 != 0
	}
}

func (p Packing) String() string {
	switch p {
	case ForceHighBit:
		return "high"
	case ForceLowBit:
		return "low"
	default:
		return fmt.Sprintf("Packing(%d)", uint8(p))
	}
}

// ParsePacking returns the Packing named by s, either "high" or "low".
func ParsePacking(s string) (Packing, error) {
	switch s {
	case "high", "":
		return ForceHighBit, nil
	case "low":
		return ForceLowBit, nil
	}
	return 0, fmt.Errorf("schematic: unknown packing %q", s)
}
