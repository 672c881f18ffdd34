// Package wavfmt builds and validates the minimal RIFF/WAVE container used
// to carry uncompressed PCM across the wire when compression is "wav" or
// "pcm" plus a container is requested (spec §4.4). No third-party WAV
// library appears anywhere in the reference corpus this module was built
// from, so this package is hand-rolled on encoding/binary the same way the
// teacher's own buildWAV helper was.
package wavfmt

import (
	"bytes"
	"encoding/binary"

	"github.com/mpv-stt/sttcore/internal/sttcore"
)

// Required fixed format parameters (spec §4.4): mono, 16 kHz, 16-bit PCM.
const (
	Channels      = 1
	SampleRate    = 16000
	BitsPerSample = 16
)

const (
	fmtChunkSize = 16
	pcmFormatTag = 1
)

// Build wraps raw little-endian PCM16 samples in a RIFF/WAVE header.
func Build(pcm []byte) []byte {
	byteRate := uint32(SampleRate * Channels * BitsPerSample / 8)
	blockAlign := uint16(Channels * BitsPerSample / 8)
	dataLen := uint32(len(pcm))
	riffSize := uint32(4 + (8 + fmtChunkSize) + (8 + dataLen))

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, riffSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(pcmFormatTag))
	binary.Write(buf, binary.LittleEndian, uint16(Channels))
	binary.Write(buf, binary.LittleEndian, uint32(SampleRate))
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(BitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)
	return buf.Bytes()
}

// BuildFromSamples is a convenience wrapper over Build for already-decoded
// int16 PCM samples (the shape Decode/opuscodec work in).
func BuildFromSamples(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return Build(pcm)
}

// Parse validates a RIFF/WAVE buffer against the fixed format parameters and
// returns its PCM16LE sample data. It rejects anything that isn't mono,
// 16 kHz, 16-bit, or that carries zero samples (spec §4.4 edge cases).
func Parse(data []byte) ([]byte, error) {
	const headerMin = 44
	if len(data) < headerMin {
		return nil, sttcore.New(sttcore.KindWav, "buffer shorter than a minimal WAV header")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, sttcore.New(sttcore.KindWav, "missing RIFF/WAVE signature")
	}

	pos := 12
	var (
		sawFmt      bool
		sawData     bool
		pcmData     []byte
		channels    uint16
		sampleRate  uint32
		bits        uint16
	)
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		body := pos + 8
		if uint64(body)+uint64(size) > uint64(len(data)) {
			return nil, sttcore.New(sttcore.KindWav, "chunk size exceeds buffer")
		}
		switch id {
		case "fmt ":
			if size < fmtChunkSize {
				return nil, sttcore.New(sttcore.KindWav, "fmt chunk too small")
			}
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bits = binary.LittleEndian.Uint16(data[body+14 : body+16])
			sawFmt = true
		case "data":
			pcmData = data[body : body+int(size)]
			sawData = true
		}
		pos = body + int(size)
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !sawFmt {
		return nil, sttcore.New(sttcore.KindWav, "missing fmt chunk")
	}
	if !sawData {
		return nil, sttcore.New(sttcore.KindWav, "missing data chunk")
	}
	if channels != Channels {
		return nil, sttcore.New(sttcore.KindWav, "unsupported channel count")
	}
	if sampleRate != SampleRate {
		return nil, sttcore.New(sttcore.KindWav, "unsupported sample rate")
	}
	if bits != BitsPerSample {
		return nil, sttcore.New(sttcore.KindWav, "unsupported bit depth")
	}
	if len(pcmData) < BitsPerSample/8 {
		return nil, sttcore.New(sttcore.KindWav, "data chunk has no samples")
	}
	return pcmData, nil
}

// ParseToSamples parses like Parse but returns int16 samples.
func ParseToSamples(data []byte) ([]int16, error) {
	pcm, err := Parse(data)
	if err != nil {
		return nil, err
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples, nil
}
