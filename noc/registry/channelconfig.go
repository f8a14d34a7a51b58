package registry

import (
	"github.com/c2h5oh/datasize"

	"github.com/nocsim/nocsim/noc/clock"
)

// ChannelConfig groups per-link physical parameters for a scenario file.
// FlitSize and Bandwidth accept human byte units ("32B", "1GB"-style
// strings via datasize.ByteSize's yaml unmarshaller; Bandwidth is read as
// bytes per second), the same ergonomic
// role datasize.ByteSize plays in yanet2's bird.Config/route.Config.
type ChannelConfig struct {
	FlitSize        datasize.ByteSize `yaml:"flit_size"`
	Bandwidth       datasize.ByteSize `yaml:"channel_bandwidth"` // bytes/sec; converted to bits/sec for Channel
	PropagationDelay clock.Time        `yaml:"channel_delay_ps"`
	LengthUM        float64           `yaml:"channel_length_um"`
	FullDuplex      bool              `yaml:"full_duplex"`
}

// BandwidthBPS converts the configured byte-rate into the bits/sec Channel
// expects.
func (c ChannelConfig) BandwidthBPS() float64 {
	return float64(c.Bandwidth.Bytes()) * 8
}

// FlitSizeBytes returns the configured flit size in bytes.
func (c ChannelConfig) FlitSizeBytes() int {
	return int(c.FlitSize.Bytes())
}
