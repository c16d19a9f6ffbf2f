//go:build pcap
// +build pcap

package network

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/depthgrid/internal/monitoring"
)

// ReadPCAPFileRealtime replays the depth datagrams on udpPort from a capture
// file into handler, keeping the original inter-packet timing scaled by
// cfg.SpeedMultiplier. Only available when built with the pcap tag.
func ReadPCAPFileRealtime(ctx context.Context, path string, udpPort int, handler FrameHandler, cfg RealtimeReplayConfig) (ListenerStats, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return ListenerStats{}, fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	defer handle.Close()

	filter := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filter); err != nil {
		return ListenerStats{}, fmt.Errorf("failed to set BPF filter %q: %w", filter, err)
	}

	replay := newPacedReplay(handler, cfg)
	monitoring.Logf("[pcap] replaying %s (%s, speed %.1fx)", path, filter, replay.pacer.speed)

	src := gopacket.NewPacketSource(handle, handle.LinkType())
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return replay.stats, ctx.Err()
		case packet := <-src.Packets():
			if packet == nil {
				monitoring.Logf("[pcap] done: %d packets, %d frames in %v", replay.stats.Packets, replay.stats.Frames, time.Since(start))
				return replay.stats, nil
			}
			udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
			if !ok || len(udp.Payload) == 0 {
				continue
			}
			if err := replay.deliver(ctx, packet.Metadata().Timestamp, udp.Payload); err != nil {
				return replay.stats, err
			}
		}
	}
}
