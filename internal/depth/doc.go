// Package depth owns the point-cloud data model handed over by the depth
// sensor: Point3D samples grouped into timestamped Frames.
//
// Responsibilities: frame construction from the sensor's interleaved xyz
// buffers, frame validation, and ASC text import/export for recordings.
// Key types: Point3D, Frame, InvalidFrameError.
//
// Dependency rule: depth must not import any of its subpackages.
package depth
