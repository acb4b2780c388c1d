package wheel

import (
	"errors"
	"fmt"
	"math"
)

// TotalSpins is the number of full rotations the wheel makes before it
// settles on the winning segment.
const TotalSpins = 5

const fullTurn = math.Pi * 2

var ErrInvalidSegment = errors.New("invalid segment")

// SegmentAngle returns the angular width of one segment in radians.
func SegmentAngle(segments int) float64 {
	return fullTurn / float64(segments)
}

// TargetAngle maps a winning segment index onto the wheel rotation (radians)
// that leaves the centre of that segment under the fixed pointer.
func TargetAngle(segmentIndex, segments int) (float64, error) {
	if segments < 1 {
		return 0, fmt.Errorf("%w: segment count %d", ErrInvalidSegment, segments)
	}
	if segmentIndex < 0 || segmentIndex >= segments {
		return 0, fmt.Errorf("%w: index %d outside [0, %d)", ErrInvalidSegment, segmentIndex, segments)
	}

	segmentAngle := SegmentAngle(segments)
	segmentCenter := float64(segmentIndex)*segmentAngle + segmentAngle/2

	return fullTurn*TotalSpins + (fullTurn - segmentCenter), nil
}

// SegmentUnderPointer is the inverse of TargetAngle: it reports which segment
// sits under the pointer once the wheel has rotated by angle.
func SegmentUnderPointer(angle float64, segments int) int {
	if segments < 1 {
		return -1
	}
	rest := math.Mod(angle, fullTurn)
	if rest < 0 {
		rest += fullTurn
	}
	offset := math.Mod(fullTurn-rest, fullTurn)

	idx := int(math.Floor(offset / SegmentAngle(segments)))
	if idx >= segments {
		idx = segments - 1
	}
	return idx
}
