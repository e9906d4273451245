package mpu9150

// MPU-6050 die registers.
const (
	regYGOffsTC    = 0x01
	regXAOffsH     = 0x06
	regXGOffsUsrH  = 0x13
	regYGOffsUsrH  = 0x15
	regZGOffsUsrH  = 0x17
	regSmplRateDiv = 0x19
	regConfig      = 0x1A
	regGyroConfig  = 0x1B
	regAccelConfig = 0x1C
	regFIFOEn      = 0x23
	regI2CMstCtrl  = 0x24
	regSlv0Addr    = 0x25
	regSlv0Reg     = 0x26
	regSlv0Ctrl    = 0x27
	regSlv1Addr    = 0x28
	regSlv1Reg     = 0x29
	regSlv1Ctrl    = 0x2A
	regSlv4Ctrl    = 0x34
	regIntPinCfg   = 0x37
	regIntEnable   = 0x38
	regDMPIntStat  = 0x39
	regIntStatus   = 0x3A
	regAccelXOutH  = 0x3B
	regTempOutH    = 0x41
	regGyroXOutH   = 0x43
	regExtSensData = 0x49
	regSlv1DO      = 0x64
	regMstDelayCtl = 0x67
	regUserCtrl    = 0x6A
	regPwrMgmt1    = 0x6B
	regPwrMgmt2    = 0x6C
	regBankSel     = 0x6D
	regMemRW       = 0x6F
	regPrgmStartH  = 0x70
	regFIFOCountH  = 0x72
	regFIFORW      = 0x74
	regWhoAmI      = 0x75
)

// Register bits.
const (
	bitReset       = 0x80
	bitSleep       = 0x40
	bitLPACycle    = 0x20
	bitFIFOEn      = 0x40
	bitDMPEn       = 0x80
	bitFIFORst     = 0x04
	bitDMPRst      = 0x08
	bitAuxIFEn     = 0x20
	bitFIFOOverflw = 0x10
	bitDataRdyEn   = 0x01
	bitDMPIntEn    = 0x02
	bitActiveLow   = 0x80
	bitLatchEn     = 0x20
	bitAnyRdClr    = 0x10
	bitBypassEn    = 0x02
	bitStbyXG      = 0x04
	bitStbyYG      = 0x02
	bitStbyZG      = 0x01
	bitStbyXYZA    = 0x38
	bitStbyXYZG    = 0x07
	bitMstVDDIO    = 0x80
	bitSlaveEn     = 0x80
	bitI2CRead     = 0x80
)

// AK8975 magnetometer, reached either directly in bypass mode or through the auxiliary master.
const (
	akmAddress      = 0x0C
	akmWhoAmIValue  = 0x48
	akmRegWhoAmI    = 0x00
	akmRegST1       = 0x02
	akmRegCntl      = 0x0A
	akmRegASAX      = 0x10
	akmDataReady    = 0x01
	akmDataOverrun  = 0x02
	akmOverflow     = 0x80
	akmDataError    = 0x40
	akmPowerDown    = 0x00
	akmSingleMeas   = 0x01
	akmFuseROMAcces = 0x0F
)

const (
	// DefaultAddress is the I2C address with AD0 low; AlternateAddress has AD0 high.
	DefaultAddress   = 0x68
	AlternateAddress = 0x69

	whoAmIValue = 0x68

	maxFIFO              = 1024
	maxCompassSampleRate = 100
	memBankSize          = 256
	// A single I2C block read carries at most this many bytes.
	maxBlockRead = 255

	tempOffset      = -521
	tempSensitivity = 340.0
	roomTemperature = 35.0
)
