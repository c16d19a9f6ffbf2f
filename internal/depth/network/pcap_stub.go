//go:build !pcap
// +build !pcap

package network

import (
	"context"
	"errors"
)

// ErrPCAPUnsupported is returned by ReadPCAPFileRealtime in builds without
// the pcap tag.
var ErrPCAPUnsupported = errors.New("PCAP support not enabled: rebuild with -tags=pcap")

func ReadPCAPFileRealtime(ctx context.Context, path string, udpPort int, handler FrameHandler, cfg RealtimeReplayConfig) (ListenerStats, error) {
	return ListenerStats{}, ErrPCAPUnsupported
}
