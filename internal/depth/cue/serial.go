package cue

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// SerialPorter is the subset of a serial port the sink needs.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// PortOptions configure the cue serial line.
type PortOptions struct {
	BaudRate int
	DataBits int
	Parity   string // "N", "E" or "O"
	StopBits int
}

// DefaultPortOptions is 9600 8N1.
func DefaultPortOptions() PortOptions {
	return PortOptions{BaudRate: 9600, DataBits: 8, Parity: "N", StopBits: 1}
}

// SerialMode converts the options to a go.bug.st/serial mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	mode := &serial.Mode{BaudRate: o.BaudRate, DataBits: o.DataBits}
	switch o.Parity {
	case "", "N", "n":
		mode.Parity = serial.NoParity
	case "E", "e":
		mode.Parity = serial.EvenParity
	case "O", "o":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", o.Parity)
	}
	switch o.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", o.StopBits)
	}
	if mode.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", o.BaudRate)
	}
	return mode, nil
}

// SerialSink writes cues as JSON lines to a serial-attached player.
type SerialSink struct {
	mu   sync.Mutex
	port SerialPorter
}

// NewSerialSink wraps an already open port.
func NewSerialSink(port SerialPorter) *SerialSink {
	return &SerialSink{port: port}
}

// OpenSerialSink opens path with opts and returns a sink writing to it.
func OpenSerialSink(path string, opts PortOptions) (*SerialSink, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return NewSerialSink(port), nil
}

type toneLine struct {
	Type  string `json:"type"`
	Tones []Tone `json:"tones"`
}

type balanceLine struct {
	Type string `json:"type"`
	BalanceCue
}

func (s *SerialSink) Tones(tones []Tone) error {
	if len(tones) == 0 {
		return nil
	}
	return s.writeLine(toneLine{Type: "tones", Tones: tones})
}

func (s *SerialSink) Balance(c BalanceCue) error {
	return s.writeLine(balanceLine{Type: "balance", BalanceCue: c})
}

func (s *SerialSink) writeLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cue: %w", err)
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.port.Write(b); err != nil {
		return fmt.Errorf("failed to write cue: %w", err)
	}
	return nil
}

func (s *SerialSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}
