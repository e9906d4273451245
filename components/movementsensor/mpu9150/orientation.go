package mpu9150

// OrientationMatrix maps chip axes to body axes. Every row and every column holds exactly one
// non-zero entry, which is 1 or -1.
type OrientationMatrix [3][3]int8

// IdentityOrientation is a chip mounted with its axes along the body's.
var IdentityOrientation = OrientationMatrix{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// IdentityOrientationScalar is the scalar form of IdentityOrientation.
const IdentityOrientationScalar uint16 = 0x088

// The scalar packs three 3-bit fields, one per row: bits 1:0 give the column of the non-zero
// entry and bit 2 is set when that entry is negative.
const (
	orientAxisMask = 0x3
	orientSignBit  = 0x4
	orientRowBits  = 3
)

func rowToScalar(row [3]int8) (uint16, bool) {
	column := -1
	for i, v := range row {
		switch v {
		case 0:
		case 1, -1:
			if column >= 0 {
				return 0, false
			}
			column = i
		default:
			return 0, false
		}
	}
	if column < 0 {
		return 0, false
	}
	field := uint16(column)
	if row[column] < 0 {
		field |= orientSignBit
	}
	return field, true
}

// Scalar packs the matrix into the form the DMP's orientation registers are derived from.
func (m OrientationMatrix) Scalar() (uint16, error) {
	var scalar uint16
	var seen [3]bool
	for i, row := range m {
		field, ok := rowToScalar(row)
		if !ok {
			return 0, newConfigurationError("orientation matrix", "row %d %v is not a signed unit vector", i, row)
		}
		column := field & orientAxisMask
		if seen[column] {
			return 0, newConfigurationError("orientation matrix", "axis %d used twice", column)
		}
		seen[column] = true
		scalar |= field << (orientRowBits * i)
	}
	return scalar, nil
}

// OrientationMatrixFromScalar unpacks a scalar produced by Scalar.
func OrientationMatrixFromScalar(scalar uint16) (OrientationMatrix, error) {
	if scalar>>(3*orientRowBits) != 0 {
		return OrientationMatrix{}, newConfigurationError("orientation scalar", "0x%03x has more than 9 bits", scalar)
	}
	var m OrientationMatrix
	for i := range m {
		field := scalar >> (orientRowBits * i)
		column := field & orientAxisMask
		if column > 2 {
			return OrientationMatrix{}, newConfigurationError("orientation scalar", "row %d names axis %d", i, column)
		}
		m[i][column] = 1
		if field&orientSignBit != 0 {
			m[i][column] = -1
		}
	}
	if _, err := m.Scalar(); err != nil {
		return OrientationMatrix{}, err
	}
	return m, nil
}

// orientationAxis returns the chip axis feeding body axis row, and whether it is negated.
func orientationAxis(scalar uint16, row int) (int, bool) {
	field := scalar >> (orientRowBits * row)
	return int(field & orientAxisMask), field&orientSignBit != 0
}

// toBody permutes and signs a chip-frame vector into the body frame.
func toBody(scalar uint16, v [3]int64) [3]int64 {
	var out [3]int64
	for row := range out {
		axis, negative := orientationAxis(scalar, row)
		out[row] = v[axis]
		if negative {
			out[row] = -out[row]
		}
	}
	return out
}
