package audio

import (
	"os"
	"time"

	"github.com/go-audio/wav"

	"github.com/kbukum/mediascribe/errors"
)

// Info describes a PCM WAV file.
type Info struct {
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	BitDepth   int           `json:"bit_depth"`
	Duration   time.Duration `json:"duration"`
}

// Probe reads the header of the WAV file at path. A file that is not a
// valid WAV, or holds no samples, fails with TRANSCRIPTION_FAILED.
func Probe(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.TranscriptionFailed("audio file is unreadable", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.TranscriptionFailed("audio is not a valid WAV file", dec.Err())
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, errors.TranscriptionFailed("audio has no data chunk", err)
	}
	frame := int64(dec.NumChans) * int64(dec.BitDepth) / 8
	if dec.PCMLen() <= 0 || frame <= 0 || dec.SampleRate == 0 {
		return nil, errors.TranscriptionFailed("audio is empty", nil)
	}
	frames := dec.PCMLen() / frame
	dur := time.Duration(frames) * time.Second / time.Duration(dec.SampleRate)
	return &Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Duration:   dur,
	}, nil
}
