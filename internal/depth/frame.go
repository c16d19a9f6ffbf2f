package depth

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFrame is wrapped by every InvalidFrameError so callers can test
// with errors.Is without caring about the reason.
var ErrInvalidFrame = errors.New("invalid point cloud frame")

// InvalidFrameError reports a malformed point cloud buffer.
// Index is the offending point (or buffer element for length errors), -1
// when the problem is not tied to a position.
type InvalidFrameError struct {
	Reason string
	Index  int
}

func (e *InvalidFrameError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid frame: %s (index %d)", e.Reason, e.Index)
	}
	return "invalid frame: " + e.Reason
}

func (e *InvalidFrameError) Unwrap() error { return ErrInvalidFrame }

// Point3D is a single depth sample in device space, in metres.
type Point3D struct {
	X, Y, Z float32
}

// Distance returns the Euclidean distance from the sensor origin.
func (p Point3D) Distance() float64 {
	x, y, z := float64(p.X), float64(p.Y), float64(p.Z)
	return math.Sqrt(x*x + y*y + z*z)
}

func (p Point3D) finite() bool {
	return isFinite32(p.X) && isFinite32(p.Y) && isFinite32(p.Z)
}

func isFinite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Frame is one point cloud acquisition. A Frame is treated as immutable
// once built; holders must not modify Points.
type Frame struct {
	Timestamp float64 // acquisition time in seconds
	Points    []Point3D
}

// NewFrame builds a validated frame from points. The slice is copied.
func NewFrame(timestamp float64, points []Point3D) (*Frame, error) {
	f := &Frame{Timestamp: timestamp, Points: append([]Point3D(nil), points...)}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// NewFrameFromXYZ builds a frame from an interleaved x,y,z buffer, the
// layout the sensor delivers.
func NewFrameFromXYZ(timestamp float64, xyz []float32) (*Frame, error) {
	if len(xyz)%3 != 0 {
		return nil, &InvalidFrameError{
			Reason: fmt.Sprintf("buffer length %d is not a multiple of 3", len(xyz)),
			Index:  len(xyz) - len(xyz)%3,
		}
	}
	points := make([]Point3D, len(xyz)/3)
	for i := range points {
		points[i] = Point3D{X: xyz[i*3], Y: xyz[i*3+1], Z: xyz[i*3+2]}
	}
	f := &Frame{Timestamp: timestamp, Points: points}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Len returns the number of points in the frame.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Points)
}

// Validate checks the timestamp and every coordinate for NaN or Inf.
func (f *Frame) Validate() error {
	if f == nil {
		return &InvalidFrameError{Reason: "nil frame", Index: -1}
	}
	if math.IsNaN(f.Timestamp) || math.IsInf(f.Timestamp, 0) {
		return &InvalidFrameError{Reason: "non-finite timestamp", Index: -1}
	}
	for i, p := range f.Points {
		if !p.finite() {
			return &InvalidFrameError{Reason: "non-finite coordinate", Index: i}
		}
	}
	return nil
}

// XYZ flattens the frame back into an interleaved buffer. A nil frame
// yields nil.
func (f *Frame) XYZ() []float32 {
	if f == nil {
		return nil
	}
	out := make([]float32, 0, f.Len()*3)
	for _, p := range f.Points {
		out = append(out, p.X, p.Y, p.Z)
	}
	return out
}
