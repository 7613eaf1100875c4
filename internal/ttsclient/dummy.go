package ttsclient

import (
	"context"
	"math"
)

const (
	dummySampleRate = 24000
	dummyToneHz     = 440.0
	dummyAmplitude  = 0.25
	dummyMinDur     = 0.180
	dummyMaxDur     = 1.600
	dummyMsPerChar  = 0.035
)

// DummySynthesizer produces a fixed-tone sine wave whose duration scales
// with the length of the input text. It never fails and needs no upstream
// credentials, for local development and tests.
type DummySynthesizer struct {
	SampleRate int
}

func NewDummySynthesizer() *DummySynthesizer {
	return &DummySynthesizer{SampleRate: dummySampleRate}
}

func (d *DummySynthesizer) Synthesize(ctx context.Context, text string, format Format) ([]byte, error) {
	sampleRate := d.SampleRate
	if sampleRate <= 0 {
		sampleRate = dummySampleRate
	}

	durationS := dummyMsPerChar * float64(len([]rune(text)))
	if durationS < dummyMinDur {
		durationS = dummyMinDur
	}
	if durationS > dummyMaxDur {
		durationS = dummyMaxDur
	}

	numSamples := int(durationS * float64(sampleRate))
	pcm := make([]byte, numSamples*2)
	for i := 0; i < numSamples; i++ {
		t := float64(i) / float64(sampleRate)
		v := dummyAmplitude * math.Sin(2*math.Pi*dummyToneHz*t) * 32767
		sample := int16(math.Round(v))
		pcm[2*i] = byte(sample)
		pcm[2*i+1] = byte(sample >> 8)
	}

	switch format {
	case FormatWAV, "":
		return encodeWAVPCM16LE(pcm, sampleRate)
	case FormatPCM:
		return pcm, nil
	default:
		return encodeWAVPCM16LE(pcm, sampleRate)
	}
}
