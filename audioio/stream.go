// Package audioio owns the single live audio output stream. It is a thin
// adapter over oto/v3: the transport pulls rendered blocks by implementing
// io.Reader, and this package is only responsible for opening, starting,
// and closing the platform output device.
package audioio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"
)

const (
	// ChannelCount is fixed stereo output, matching synth.SampleRate's
	// WAV-canonical format.
	ChannelCount = 2
	// BitDepthInBytes is 16-bit signed PCM.
	BitDepthInBytes = 2
)

// BlockSource renders exactly len(left)==len(right) samples per call; the
// transport's scheduler implements this to drive playback.
type BlockSource interface {
	RenderInto(left, right []float32) error
}

// Stream owns the oto output context and player for the lifetime of one
// playback session. Scoped acquisition with guaranteed release on all
// exit paths, per §5 Resources.
type Stream struct {
	ctx    *oto.Context
	player *oto.Player
	src    *readerAdapter
}

// Open starts a new output stream at sampleRate backed by src. The
// returned Stream must be closed to release the platform device.
func Open(sampleRate int, src BlockSource) (*Stream, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("audioio: open output context: %w", err)
	}
	<-ready

	adapter := &readerAdapter{src: src, blockSamples: sampleRate / 100}
	player := ctx.NewPlayer(adapter)
	player.SetBufferSize(adapter.blockSamples * ChannelCount * BitDepthInBytes)

	return &Stream{ctx: ctx, player: player, src: adapter}, nil
}

// Start begins (or resumes) playback pulling from the BlockSource.
func (s *Stream) Start() { s.player.Play() }

// Stop pauses playback without releasing the device.
func (s *Stream) Stop() { s.player.Pause() }

// Close releases the player; the oto context, and with it the platform
// output device, stays open. Safe to call multiple times.
func (s *Stream) Close() error {
	if s.player != nil {
		_ = s.player.Close()
		s.player = nil
	}
	return nil
}

// readerAdapter turns a BlockSource into the io.Reader oto.Player expects:
// interleaved little-endian PCM16 stereo bytes.
type readerAdapter struct {
	src          BlockSource
	blockSamples int
	left, right  []float32
	scratch      []byte
}

func (r *readerAdapter) Read(p []byte) (int, error) {
	frameBytes := ChannelCount * BitDepthInBytes
	n := len(p) / frameBytes
	if n == 0 {
		return 0, nil
	}
	if cap(r.left) < n {
		r.left = make([]float32, n)
		r.right = make([]float32, n)
	}
	left := r.left[:n]
	right := r.right[:n]
	if err := r.src.RenderInto(left, right); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		l := clampToInt16(left[i])
		rr := clampToInt16(right[i])
		off := i * frameBytes
		binary.LittleEndian.PutUint16(p[off:], uint16(l))
		binary.LittleEndian.PutUint16(p[off+2:], uint16(rr))
	}
	return n * frameBytes, nil
}

func clampToInt16(f float32) int16 {
	v := f * 32767.0
	if v > 32767.0 {
		v = 32767.0
	}
	if v < -32768.0 {
		v = -32768.0
	}
	return int16(v)
}

var _ io.Reader = (*readerAdapter)(nil)
