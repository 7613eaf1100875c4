package ttsclient

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"
)

func TestDummySynthesizerWAVHeader(t *testing.T) {
	d := NewDummySynthesizer()
	audio, err := d.Synthesize(context.Background(), "hello", FormatWAV)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(audio) < 44 {
		t.Fatalf("audio too short for a WAV header: %d bytes", len(audio))
	}
	if string(audio[0:4]) != "RIFF" || string(audio[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE markers")
	}
	if string(audio[12:16]) != "fmt " || string(audio[36:40]) != "data" {
		t.Fatalf("missing fmt /data chunk markers")
	}
	sampleRate := binary.LittleEndian.Uint32(audio[24:28])
	if sampleRate != dummySampleRate {
		t.Fatalf("sample rate = %d, want %d", sampleRate, dummySampleRate)
	}
}

func TestDummySynthesizerClampsShortTextToMinDuration(t *testing.T) {
	d := NewDummySynthesizer()
	audio, err := d.Synthesize(context.Background(), "hi", FormatWAV)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	dataSize := binary.LittleEndian.Uint32(audio[40:44])
	wantSamples := int(dummyMinDur * dummySampleRate)
	if int(dataSize) != wantSamples*2 {
		t.Fatalf("data size = %d, want %d", dataSize, wantSamples*2)
	}
}

func TestDummySynthesizerClampsLongTextToMaxDuration(t *testing.T) {
	d := NewDummySynthesizer()
	longText := strings.Repeat("a", 200)
	audio, err := d.Synthesize(context.Background(), longText, FormatWAV)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	dataSize := binary.LittleEndian.Uint32(audio[40:44])
	wantSamples := int(dummyMaxDur * dummySampleRate)
	if int(dataSize) != wantSamples*2 {
		t.Fatalf("data size = %d, want %d", dataSize, wantSamples*2)
	}
}

func TestDummySynthesizerPCMFormatOmitsHeader(t *testing.T) {
	d := NewDummySynthesizer()
	audio, err := d.Synthesize(context.Background(), "hello there", FormatPCM)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(audio) >= 4 && string(audio[0:4]) == "RIFF" {
		t.Fatalf("PCM format should not include a WAV header")
	}
	if len(audio)%2 != 0 {
		t.Fatalf("PCM16 audio must have an even byte length, got %d", len(audio))
	}
}
