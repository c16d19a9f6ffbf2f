package cue

import (
	"bytes"
	"io"
	"sync"
)

// MockSerialPort implements SerialPorter for testing. Writes are captured
// in memory and can be failed on demand.
type MockSerialPort struct {
	mu         sync.Mutex
	written    bytes.Buffer
	WriteError error
	closed     bool
}

func (m *MockSerialPort) Read(p []byte) (int, error) {
	return 0, io.EOF
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	return m.written.Write(p)
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Written returns everything written so far.
func (m *MockSerialPort) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.String()
}

func (m *MockSerialPort) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
