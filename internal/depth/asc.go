package depth

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ASC recordings are plain text: a "# frame <timestamp>" line opens a
// frame, followed by one "x y z" line per point. Other comment lines and
// columns past the third are ignored.
const ascFrameHeader = "# frame"

// ReadASC parses every frame in r.
func ReadASC(r io.Reader) ([]*Frame, error) {
	var (
		frames []*Frame
		cur    *Frame
		lineNo int
	)

	flush := func() error {
		if cur == nil {
			return nil
		}
		if err := cur.Validate(); err != nil {
			return fmt.Errorf("frame ending at line %d: %w", lineNo, err)
		}
		frames = append(frames, cur)
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ascFrameHeader) {
			if err := flush(); err != nil {
				return nil, err
			}
			tsField := strings.TrimSpace(strings.TrimPrefix(line, ascFrameHeader))
			ts, err := strconv.ParseFloat(tsField, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad frame timestamp %q: %w", lineNo, tsField, err)
			}
			cur = &Frame{Timestamp: ts}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("line %d: point before first %q header", lineNo, ascFrameHeader)
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected 3 coordinates, got %d", lineNo, len(fields))
		}
		var xyz [3]float32
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(fields[i], 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad coordinate %q: %w", lineNo, fields[i], err)
			}
			xyz[i] = float32(v)
		}
		cur.Points = append(cur.Points, Point3D{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ASC: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return frames, nil
}

// WriteASC writes frames in the format read by ReadASC.
func WriteASC(w io.Writer, frames []*Frame) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Format: X Y Z\n")
	for _, f := range frames {
		fmt.Fprintf(bw, "%s %.6f\n", ascFrameHeader, f.Timestamp)
		for _, p := range f.Points {
			fmt.Fprintf(bw, "%.6f %.6f %.6f\n", p.X, p.Y, p.Z)
		}
	}
	return bw.Flush()
}
