package mpu9150

// DMP memory map for the motion driver 6.12 image. Addresses are bank<<8 | offset.
const (
	cfgLPQuat            = 2712
	cfg8                 = 2718
	cfg15                = 2727
	cfg27                = 2742
	cfg20                = 2224
	cfg6                 = 2753
	cfgFIFOOnEvent       = 2690
	cfgAndroidOrientInt  = 1853
	cfgGyroRawData       = 2722
	cfgMotionBias        = 1208
	fcfg1                = 1062
	fcfg2                = 1066
	fcfg3                = 1088
	fcfg7                = 1073
	d0_22                = 534
	d0_104               = 104
	d1_72                = 328
	d1_79                = 335
	d1_88                = 344
	d1_90                = 346
	d1_92                = 348
	d1_218               = 474
	dAccelBias           = 660
	dExtGyroBiasX        = 976
	dExtGyroBiasY        = 980
	dExtGyroBiasZ        = 984
	dPedStdStepCtr       = 864
	dPedStdTimeCtr       = 964
	dmpTapThreshX        = 468
	dmpTapThreshY        = 472
	dmpTapThreshZ        = 476
	dmpTapAccelThreshX   = 36 + 256
	dmpTapAccelThreshY   = 40 + 256
	dmpTapAccelThreshZ   = 44 + 256
	dmpTapMinWindow      = 478
	gyroScaleFactor      = 46850825
	dmpQuatMagSqNormal   = 1 << 28
	dmpQuatMagSqMin      = dmpQuatMagSqNormal - (1 << 24)
	dmpQuatMagSqMax      = dmpQuatMagSqNormal + (1 << 24)
	dmpMaxFIFORate       = DefaultDMPSampleRate
	dmpIntSrcTap         = 0x01
	dmpIntSrcOrientation = 0x08
	dmpMaxTapThreshold   = 1600
)

// Instruction sequences the firmware is patched with.
var (
	seqFIFORate = []byte{0xFE, 0xF2, 0xAB, 0xC4, 0xAA, 0xF1, 0xDF, 0xDF, 0xBB, 0xAF, 0xDF, 0xDF}

	seqIntContinuous = []byte{0xd8, 0xb1, 0xb9, 0xf3, 0x8b, 0xa3, 0x91, 0xb6, 0x09, 0xb4, 0xd9}
	seqIntGesture    = []byte{0xda, 0xb1, 0xb9, 0xf3, 0x8b, 0xa3, 0x91, 0xb6, 0xda, 0xb4, 0xda}

	seqGyroCalOn  = []byte{0xb8, 0xaa, 0xb3, 0x8d, 0xb4, 0x98, 0x0d, 0x35, 0x5d}
	seqGyroCalOff = []byte{0xb8, 0xaa, 0xaa, 0xaa, 0xb0, 0x88, 0xc3, 0xc5, 0xc7}

	seqSendCalGyro = []byte{0xB2, 0x8B, 0xB6, 0x9B}
	seqSendRawGyro = []byte{0xC0, 0x80, 0xC2, 0x90}

	seqLPQuatOn  = []byte{0xC0, 0xC2, 0xC4, 0xC6}
	seqLPQuatOff = []byte{0x8B, 0x8B, 0x8B, 0x8B}

	seq6XLPQuatOn  = []byte{0x20, 0x28, 0x30, 0x38}
	seq6XLPQuatOff = []byte{0xA3, 0xA3, 0xA3, 0xA3}
)
