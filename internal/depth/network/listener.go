package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/banshee-data/depthgrid/internal/depth"
	"github.com/banshee-data/depthgrid/internal/monitoring"
)

// FrameHandler consumes decoded frames.
type FrameHandler interface {
	HandleFrame(f *depth.Frame) error
}

// FrameHandlerFunc adapts a function to FrameHandler.
type FrameHandlerFunc func(f *depth.Frame) error

func (fn FrameHandlerFunc) HandleFrame(f *depth.Frame) error { return fn(f) }

// ListenerStats are cumulative counters since Start.
type ListenerStats struct {
	Packets  uint64 `json:"packets"`
	Bytes    uint64 `json:"bytes"`
	Frames   uint64 `json:"frames"`
	Dropped  uint64 `json:"dropped"`  // undecodable datagrams
	Rejected uint64 `json:"rejected"` // frames the handler refused
}

// UDPListenerConfig configures a UDPListener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	// PollInterval bounds how long a read blocks before ctx is rechecked.
	PollInterval time.Duration
	Handler      FrameHandler
	Sockets      UDPSocketFactory
}

// UDPListener receives depth packets and hands decoded frames to a handler.
type UDPListener struct {
	address      string
	rcvBuf       int
	logInterval  time.Duration
	pollInterval time.Duration
	handler      FrameHandler
	sockets      UDPSocketFactory

	packets, bytes, frames, dropped, rejected atomic.Uint64
}

func NewUDPListener(cfg UDPListenerConfig) *UDPListener {
	l := &UDPListener{
		address:      cfg.Address,
		rcvBuf:       cfg.RcvBuf,
		logInterval:  cfg.LogInterval,
		pollInterval: cfg.PollInterval,
		handler:      cfg.Handler,
		sockets:      cfg.Sockets,
	}
	if l.logInterval <= 0 {
		l.logInterval = time.Minute
	}
	if l.pollInterval <= 0 {
		l.pollInterval = 100 * time.Millisecond
	}
	if l.rcvBuf <= 0 {
		l.rcvBuf = 4 << 20
	}
	if l.sockets == nil {
		l.sockets = RealUDPSocketFactory{}
	}
	return l
}

// Start listens until ctx is cancelled and returns ctx.Err().
func (l *UDPListener) Start(ctx context.Context) error {
	if l.handler == nil {
		return fmt.Errorf("udp listener has no frame handler")
	}
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := l.sockets.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		monitoring.Logf("[udp] warning: failed to set receive buffer to %d: %v", l.rcvBuf, err)
	}
	monitoring.Logf("[udp] listening on %s", conn.LocalAddr())

	go l.logStats(ctx)

	buf := make([]byte, MaxPacketSize)
	for {
		if ctx.Err() != nil {
			monitoring.Logf("[udp] listener stopping")
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(l.pollInterval))
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			monitoring.Logf("[udp] read error: %v", err)
			continue
		}
		if err := l.handlePacket(buf[:n]); err != nil {
			monitoring.Debugf("[udp] packet from %v: %v", from, err)
		}
	}
}

func (l *UDPListener) handlePacket(b []byte) error {
	l.packets.Add(1)
	l.bytes.Add(uint64(len(b)))
	f, err := DecodePacket(b)
	if err != nil {
		l.dropped.Add(1)
		return err
	}
	if err := l.handler.HandleFrame(f); err != nil {
		l.rejected.Add(1)
		return err
	}
	l.frames.Add(1)
	return nil
}

// Stats returns a snapshot of the counters.
func (l *UDPListener) Stats() ListenerStats {
	return ListenerStats{
		Packets:  l.packets.Load(),
		Bytes:    l.bytes.Load(),
		Frames:   l.frames.Load(),
		Dropped:  l.dropped.Load(),
		Rejected: l.rejected.Load(),
	}
}

func (l *UDPListener) logStats(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := l.Stats()
			monitoring.Logf("[udp] packets=%d bytes=%d frames=%d dropped=%d rejected=%d",
				s.Packets, s.Bytes, s.Frames, s.Dropped, s.Rejected)
		}
	}
}
