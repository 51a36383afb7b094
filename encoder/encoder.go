// Package encoder renders dial sequences offline and writes them as FLAC.
package encoder

const (
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

// Encode feeds samples to enc in BlockSize blocks and closes it.
func Encode(enc Encoder, samples []int16) error {
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return err
		}
	}
	return enc.Close()
}
