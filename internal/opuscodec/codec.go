// Package opuscodec implements the Opus framing format used as this
// system's on-wire audio representation (spec §4.3, §6 glossary "Framed
// Opus stream"): a concatenation of [length:u32_le][packet] records, each
// packet covering a fixed 320-sample (20 ms at 16 kHz) mono PCM frame.
package opuscodec

import (
	"encoding/binary"

	"github.com/hraban/opus"

	"github.com/mpv-stt/sttcore/internal/sttcore"
)

const (
	// SampleRate is the fixed input/output sample rate in Hz.
	SampleRate = 16000
	// Channels is fixed to mono.
	Channels = 1
	// FrameSamples is 20 ms of audio at SampleRate.
	FrameSamples = 320
	// maxPacketBytes is a generous per-frame Opus output buffer; real
	// packets for speech at this bitrate are a few hundred bytes at most.
	maxPacketBytes = 4000
	// maxDecodeSamples covers the worst case a single Opus packet can
	// decode to: 120 ms at 48 kHz.
	maxDecodeSamples = 5760
)

// Encode compresses mono 16 kHz PCM into a framed Opus stream. The final
// frame is zero-padded to FrameSamples if pcm's length isn't a multiple of
// it, per spec §4.3.
func Encode(pcm []int16) ([]byte, error) {
	enc, err := opus.NewEncoder(SampleRate, Channels, opus.AppAudio)
	if err != nil {
		return nil, sttcore.Wrap(sttcore.KindSttFailed, "opus encoder init failed", err)
	}

	padded := pcm
	if rem := len(pcm) % FrameSamples; rem != 0 {
		padded = make([]int16, len(pcm)+(FrameSamples-rem))
		copy(padded, pcm)
	}

	out := make([]byte, 0, len(padded)/2)
	buf := make([]byte, maxPacketBytes)
	lenPrefix := make([]byte, 4)
	for start := 0; start < len(padded); start += FrameSamples {
		frame := padded[start : start+FrameSamples]
		n, err := enc.Encode(frame, buf)
		if err != nil {
			return nil, sttcore.Wrap(sttcore.KindSttFailed, "opus encode failed", err)
		}
		binary.LittleEndian.PutUint32(lenPrefix, uint32(n))
		out = append(out, lenPrefix...)
		out = append(out, buf[:n]...)
	}
	return out, nil
}

// Decode reads a framed Opus stream and returns the concatenated decoded
// PCM samples. It rejects a record whose declared length exceeds the
// remaining input (spec §4.3 "invalid framing").
func Decode(framed []byte) ([]int16, error) {
	dec, err := opus.NewDecoder(SampleRate, Channels)
	if err != nil {
		return nil, sttcore.Wrap(sttcore.KindSttFailed, "opus decoder init failed", err)
	}

	var samples []int16
	pcmBuf := make([]int16, maxDecodeSamples)
	pos := 0
	for pos+4 <= len(framed) {
		recLen := int(binary.LittleEndian.Uint32(framed[pos : pos+4]))
		pos += 4
		if recLen > len(framed)-pos {
			return nil, sttcore.New(sttcore.KindSttFailed, "invalid opus frame length")
		}
		packet := framed[pos : pos+recLen]
		pos += recLen

		n, err := dec.Decode(packet, pcmBuf)
		if err != nil {
			return nil, sttcore.Wrap(sttcore.KindSttFailed, "opus decode failed", err)
		}
		samples = append(samples, pcmBuf[:n]...)
	}
	return samples, nil
}
