package audio

// G.711 expansion per the CCITT reference tables. Telephony legs hand
// the assistant 8 kHz companded audio; these produce the 16-bit linear
// samples the rest of the pipeline works in.

// MulawToLinear expands one mu-law byte to a 16-bit linear sample
func MulawToLinear(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exp := (u >> 4) & 0x07
	mant := u & 0x0F
	value := (int(mant) << 3) + 0x84
	value <<= uint(exp)
	value -= 0x84
	if sign != 0 {
		return int16(-value)
	}
	return int16(value)
}

// AlawToLinear expands one A-law byte to a 16-bit linear sample
func AlawToLinear(a byte) int16 {
	a ^= 0x55
	t := int(a&0x0F) << 4
	seg := (a & 0x70) >> 4
	switch seg {
	case 0:
		t += 8
	case 1:
		t += 0x108
	default:
		t += 0x108
		t <<= seg - 1
	}
	// In A-law a set sign bit marks a positive sample
	if a&0x80 != 0 {
		return int16(t)
	}
	return int16(-t)
}
