package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver"
)

// encodeWAV wraps raw mono PCM into a WAV container.
func encodeWAV(pcm []byte, format driver.AudioFormat) ([]byte, error) {
	samples, err := pcmToSamples(pcm, format.BitDepth)
	if err != nil {
		return nil, err
	}

	buf := &seekBuffer{}
	enc := wav.NewEncoder(buf, format.SampleRate, format.BitDepth, 1, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  format.SampleRate,
		},
		Data:           samples,
		SourceBitDepth: format.BitDepth,
	}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.data, nil
}

func pcmToSamples(pcm []byte, bitDepth int) ([]int, error) {
	switch bitDepth {
	case 8:
		samples := make([]int, len(pcm))
		for i, b := range pcm {
			samples[i] = int(b)
		}
		return samples, nil
	case 16:
		if len(pcm)%2 != 0 {
			pcm = pcm[:len(pcm)-1] // drop a trailing half-sample
		}
		samples := make([]int, len(pcm)/2)
		for i := range samples {
			samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		}
		return samples, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
}

// seekBuffer is a minimal in-memory io.WriteSeeker; the WAV encoder seeks
// back to patch chunk sizes on Close.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.pos) + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if pos < 0 {
		return 0, errors.New("negative seek position")
	}
	b.pos = int(pos)
	return pos, nil
}
