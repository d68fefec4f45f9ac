package codec

import (
	"fmt"
	"os"

	"github.com/youpy/go-wav"

	"github.com/grahamseamans/miditui/project"
	"github.com/grahamseamans/miditui/synth"
	"github.com/grahamseamans/miditui/transport"
)

// RenderDecayTailSeconds is the silence tail appended after the last
// scheduled note-off so release/reverb has time to finish, per §4.3's
// render-mode tail.
const RenderDecayTailSeconds = 0.5

// RenderBlockSize is the chunk size used by the offline render loop,
// matching original_source/src/audio/export.rs's RENDER_BUFFER_SIZE
// scale (smaller here since Go's GC makes very large scratch buffers
// less necessary, and this keeps progress callbacks granular).
const RenderBlockSize = 1024

// RenderToWAV drives tr through transport.RenderOffline and writes a
// canonical PCM16 stereo 44100Hz WAV file to path. If durationSeconds is
// <= 0, the duration is derived from the project's last note plus
// RenderDecayTailSeconds. It does not check that a SoundFont is loaded
// into the transport's synth engine: with none loaded the notes render as
// silence and the file is still written.
func RenderToWAV(path string, p *project.Project, tr *transport.Transport, durationSeconds float64) error {
	if durationSeconds <= 0 {
		durationTicks := p.DurationTicks()
		durationSeconds = ticksToSeconds(durationTicks, p.Tempo) + RenderDecayTailSeconds
	}
	totalSamples := int(durationSeconds * float64(synth.SampleRate))
	if totalSamples < 0 {
		totalSamples = 0
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("codec: create wav output: %w", err)
	}
	defer f.Close()

	writer := wav.NewWriter(f, uint32(totalSamples), 2, uint32(synth.SampleRate), 16)
	sink := &wavSink{writer: writer}

	tr.PublishSnapshot(p)
	if err := tr.SeekTo(0); err != nil {
		return err
	}
	if err := tr.RenderOffline(totalSamples, RenderBlockSize, sink, nil, nil); err != nil {
		return fmt.Errorf("codec: render to wav: %w", err)
	}
	return nil
}

// wavSink adapts transport.Sink to go-wav's sample-at-a-time Writer.
type wavSink struct {
	writer  *wav.Writer
	samples []wav.Sample
}

func (s *wavSink) WriteBlock(left, right []float32) error {
	n := len(left)
	if cap(s.samples) < n {
		s.samples = make([]wav.Sample, n)
	}
	samples := s.samples[:n]
	for i := 0; i < n; i++ {
		samples[i] = wav.Sample{Values: [2]int{floatToPCM16(left[i]), floatToPCM16(right[i])}}
	}
	_, err := s.writer.WriteSamples(samples)
	return err
}

func floatToPCM16(f float32) int {
	v := f * 32767.0
	if v > 32767.0 {
		v = 32767.0
	}
	if v < -32768.0 {
		v = -32768.0
	}
	return int(v)
}

func ticksToSeconds(ticks uint32, bpm float64) float64 {
	return float64(ticks) * 60.0 / (bpm * float64(project.TicksPerQuarter))
}
