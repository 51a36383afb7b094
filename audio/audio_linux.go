//go:build linux

package audio

import (
	"fmt"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("dtmfpad"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sinks, err := p.client.ListSinks()
	if err != nil {
		return nil, fmt.Errorf("pulse list sinks: %w", err)
	}
	var devices []DeviceInfo
	for _, s := range sinks {
		devices = append(devices, DeviceInfo{
			ID:   s.ID(),
			Name: s.Name(),
		})
	}
	return devices, nil
}

// Open creates one long-lived playback stream. The reader never ends: it
// renders silence while no generator is playing, so tones start without
// waiting for a new stream.
func (p *pulseContext) Open(device *DeviceInfo, config PlaybackConfig) (Device, error) {
	config = config.withDefaults()
	mixer := NewMixer(config)

	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		return mixer.Render(buf), nil
	})

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(int(config.SampleRate)),
		pulse.PlaybackLatency(config.Latency.Seconds()),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			vols := make(proto.ChannelVolumes, config.Channels)
			for i := range vols {
				vols[i] = uint32(proto.VolumeNorm)
			}
			p.ChannelVolumes = vols
		}),
	}
	if config.Channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}

	name := "system default"
	if device != nil {
		sink, err := p.client.SinkByID(device.ID)
		if err == nil && sink != nil {
			opts = append(opts, pulse.PlaybackSink(sink))
			name = device.Name
		}
	}

	stream, err := p.client.NewPlayback(reader, opts...)
	if err != nil {
		return nil, fmt.Errorf("pulse playback: %w", err)
	}
	stream.Start()

	return newMixerDevice(mixer, name, func() {
		stream.Stop()
		stream.Close()
	}), nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}
