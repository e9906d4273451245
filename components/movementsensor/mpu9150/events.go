package mpu9150

import "fmt"

// GestureEvent is a tap or orientation change reported by the DMP.
type GestureEvent interface {
	isGestureEvent()
	fmt.Stringer
}

// TapDirection is the axis and sense of a tap.
type TapDirection int

// Tap directions. TapUnknown covers codes the firmware should never produce.
const (
	TapUnknown TapDirection = iota
	TapXUp
	TapXDown
	TapYUp
	TapYDown
	TapZUp
	TapZDown
)

func (d TapDirection) String() string {
	switch d {
	case TapXUp:
		return "X_UP"
	case TapXDown:
		return "X_DOWN"
	case TapYUp:
		return "Y_UP"
	case TapYDown:
		return "Y_DOWN"
	case TapZUp:
		return "Z_UP"
	case TapZDown:
		return "Z_DOWN"
	default:
		return "UNKNOWN"
	}
}

// TapEvent is one or more consecutive taps.
type TapEvent struct {
	Direction TapDirection
	Count     uint8
}

func (TapEvent) isGestureEvent() {}

func (e TapEvent) String() string {
	return fmt.Sprintf("tap %v x%d", e.Direction, e.Count)
}

// Orientation is the screen-style orientation the android_orient feature reports.
type Orientation int

// Orientations.
const (
	Portrait Orientation = iota
	Landscape
	ReversePortrait
	ReverseLandscape
)

func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "PORTRAIT"
	case Landscape:
		return "LANDSCAPE"
	case ReversePortrait:
		return "REVERSE_PORTRAIT"
	case ReverseLandscape:
		return "REVERSE_LANDSCAPE"
	default:
		return "UNKNOWN"
	}
}

// OrientationEvent is a change of orientation.
type OrientationEvent struct {
	Orientation Orientation
}

func (OrientationEvent) isGestureEvent() {}

func (e OrientationEvent) String() string {
	return "orientation " + e.Orientation.String()
}

// decodeGesture parses the 4-byte gesture word at the end of a DMP packet.
func decodeGesture(gesture []byte) []GestureEvent {
	var events []GestureEvent
	if gesture[1]&dmpIntSrcTap != 0 {
		tap := gesture[3] & 0x3F
		direction := TapDirection(tap >> 3)
		if direction < TapXUp || direction > TapZDown {
			direction = TapUnknown
		}
		events = append(events, TapEvent{Direction: direction, Count: tap%8 + 1})
	}
	if gesture[1]&dmpIntSrcOrientation != 0 {
		events = append(events, OrientationEvent{Orientation: Orientation((gesture[3] & 0xC0) >> 6)})
	}
	return events
}
