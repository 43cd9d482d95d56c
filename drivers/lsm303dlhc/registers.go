package lsm303dlhc

// Register map for the LSM303DLHC e-compass (datasheet table 17).
// The accelerometer and magnetometer answer on separate 7-bit addresses
// and behave as two independent register files on the same bus.

const (
	// Default 7-bit addresses. Board wiring may override them; zero in a
	// component config selects these.
	AccelAddress uint8 = 0x19
	MagAddress   uint8 = 0x1E
)

// Accelerometer registers. Setting autoIncr on the sub-address requests
// register auto-increment for multi-byte transfers.
const (
	regWhoAmI   uint8 = 0x0F
	regCtrl1A   uint8 = 0x20 // ODR[7:4] LPen[3] Zen[2] Yen[1] Xen[0]
	regCtrl4A   uint8 = 0x23 // BDU[7] BLE[6] FS[5:4] HR[3]
	regOutXLowA uint8 = 0x28

	autoIncr uint8 = 0x80

	whoAmIAnswer byte = 0x33
)

// Magnetometer registers. The magnetometer auto-increments unconditionally.
const (
	regCRAM    uint8 = 0x00 // TEMP_EN[7] DO[4:2]
	regCRBM    uint8 = 0x01 // GN[7:5]
	regMRM     uint8 = 0x02 // MD[1:0]
	regOutXHiM uint8 = 0x03 // X_H X_L Z_H Z_L Y_H Y_L
)

// AccelDataRate selects the accelerometer output data rate (CTRL_REG1_A
// ODR field).
type AccelDataRate uint8

const (
	AccelRateOff AccelDataRate = iota
	AccelRate1Hz
	AccelRate10Hz
	AccelRate25Hz
	AccelRate50Hz
	AccelRate100Hz
	AccelRate200Hz
	AccelRate400Hz
	AccelRateLowPower1620Hz
	AccelRateNormal1344Hz
)

// Scale selects accelerometer full scale (CTRL_REG4_A FS field).
type Scale uint8

const (
	Scale2G Scale = iota
	Scale4G
	Scale8G
	Scale16G
)

// rangeMilliG is the full-scale magnitude per Scale, in milli-g.
var rangeMilliG = [4]int32{2000, 4000, 8000, 16000}

// MagDataRate selects the magnetometer output data rate (CRA_REG_M DO
// field).
type MagDataRate uint8

const (
	MagRate0_75Hz MagDataRate = iota
	MagRate1_5Hz
	MagRate3_0Hz
	MagRate7_5Hz
	MagRate15Hz
	MagRate30Hz
	MagRate75Hz
	MagRate220Hz
)

// MagRange selects the magnetometer gain (CRB_REG_M GN field). Values
// start at 1; 0 is reserved by the part.
type MagRange uint8

const (
	Range1_3G MagRange = iota + 1
	Range1_9G
	Range2_5G
	Range4_0G
	Range4_7G
	Range5_6G
	Range8_1G
)

// LSB-per-gauss divisors by gain, X/Y then Z (datasheet table 75).
var (
	magGainXY = [8]int32{0, 1100, 855, 670, 450, 400, 330, 230}
	magGainZ  = [8]int32{0, 980, 760, 600, 400, 355, 295, 205}
)

func ctrl1A(rate AccelDataRate, lowPower bool) byte {
	v := byte(rate&0x0F) << 4
	if lowPower {
		v |= 1 << 3
	}
	return v | 0x07 // X, Y, Z enabled
}

func ctrl4A(scale Scale, highRes bool) byte {
	v := byte(scale&0x03) << 4
	if highRes {
		v |= 1 << 3
	}
	return v
}

func craM(rate MagDataRate) byte { return byte(rate&0x07) << 2 }

func crbM(rng MagRange) byte { return byte(rng&0x07) << 5 }

func accelRateOf(c byte) AccelDataRate { return AccelDataRate(c >> 4) }

func scaleOf(c byte) Scale { return Scale((c >> 4) & 0x03) }
