package lsm303dlhc

import "drivercore-go/x/mathx"

// decodeAccel converts the six OUT_*_A bytes (little endian X, Y, Z) to
// milli-g at the given full scale. Integer-only.
func decodeAccel(raw []byte, scale Scale) (x, y, z int32) {
	rng := rangeMilliG[scale&0x03]
	cvt := func(lo, hi byte) int32 {
		v := int32(int16(uint16(lo) | uint16(hi)<<8))
		return mathx.Clamp(v*rng/32768, -rng, rng)
	}
	return cvt(raw[0], raw[1]), cvt(raw[2], raw[3]), cvt(raw[4], raw[5])
}

// decodeMag converts the six OUT_*_M bytes to milli-gauss. The part emits
// big-endian words in X, Z, Y order with a per-gain LSB divisor that
// differs between the XY and Z channels.
func decodeMag(raw []byte, rng MagRange) (x, y, z int32) {
	gxy := magGainXY[rng&0x07]
	gz := magGainZ[rng&0x07]
	if gxy == 0 || gz == 0 {
		return 0, 0, 0
	}
	word := func(hi, lo byte) int32 {
		return int32(int16(uint16(hi)<<8 | uint16(lo)))
	}
	x = word(raw[0], raw[1]) * 1000 / gxy
	z = word(raw[2], raw[3]) * 1000 / gz
	y = word(raw[4], raw[5]) * 1000 / gxy
	return x, y, z
}
