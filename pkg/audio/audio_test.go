package audio

import (
	"math"
	"path/filepath"
	"testing"
)

func TestCalculateRMSLevel(t *testing.T) {
	testCases := []struct {
		name     string
		samples  []float32
		expected float32
	}{
		{
			name:     "Empty buffer",
			samples:  []float32{},
			expected: 0,
		},
		{
			name:     "Zero samples",
			samples:  []float32{0, 0, 0, 0},
			expected: 0,
		},
		{
			name:     "Half scale",
			samples:  []float32{0.5, 0.5, 0.5, 0.5},
			expected: 0.5,
		},
		{
			name:     "Alternating full scale",
			samples:  []float32{1.0, -1.0, 1.0, -1.0},
			expected: 1.0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			level := CalculateRMSLevel(tc.samples)

			// Allow for some floating point imprecision
			if tc.expected == 0 && level != 0 {
				t.Errorf("Expected 0, got %f", level)
			} else if tc.expected > 0 && (level < tc.expected*0.95 || level > tc.expected*1.05) {
				t.Errorf("Expected %f, got %f", tc.expected, level)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	stats := Analyze([]float32{0.5, -0.25, 0.25, -0.5})

	if stats.Peak != 0.5 {
		t.Errorf("Expected peak 0.5, got %f", stats.Peak)
	}
	if stats.Mean < 0.37 || stats.Mean > 0.38 {
		t.Errorf("Expected mean ~0.375, got %f", stats.Mean)
	}
}

func TestQualityAdvisory(t *testing.T) {
	if msg := QualityAdvisory(Stats{Peak: 0.0001}); msg == "" {
		t.Error("Expected advisory for silent capture")
	}
	if msg := QualityAdvisory(Stats{Peak: 0.005}); msg == "" {
		t.Error("Expected advisory for very quiet capture")
	}
	if msg := QualityAdvisory(Stats{Peak: 0.3}); msg != "" {
		t.Errorf("Expected no advisory for normal capture, got %q", msg)
	}
}

func TestProcessAudioAccumulates(t *testing.T) {
	// Session constructed directly so no audio hardware is needed
	s := &Session{config: DefaultConfig(), active: true}

	s.processAudio([]float32{0.1, 0.2})
	s.processAudio([]float32{0.3})

	if len(s.frames) != 3 {
		t.Fatalf("Expected 3 buffered samples, got %d", len(s.frames))
	}
	if s.frames[2] != 0.3 {
		t.Errorf("Expected last sample 0.3, got %f", s.frames[2])
	}
}

func TestProcessAudioIgnoredWhenInactive(t *testing.T) {
	s := &Session{config: DefaultConfig(), active: false}

	s.processAudio([]float32{0.1, 0.2})

	if len(s.frames) != 0 {
		t.Errorf("Expected no samples buffered while inactive, got %d", len(s.frames))
	}
}

func TestProcessAudioDropsCorruptBuffers(t *testing.T) {
	s := &Session{config: DefaultConfig(), active: true}

	s.processAudio([]float32{0.1, float32(math.NaN()), 0.2})

	if len(s.frames) != 0 {
		t.Errorf("Expected corrupt buffer to be dropped, got %d samples", len(s.frames))
	}
}

func TestWAVRoundTrip(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.5, -0.5, 1.0, -1.0}
	path := filepath.Join(t.TempDir(), "roundtrip.wav")

	if err := SaveWAV(samples, 16000, path); err != nil {
		t.Fatalf("SaveWAV failed: %v", err)
	}

	decoded, rate, err := LoadWAV(path)
	if err != nil {
		t.Fatalf("LoadWAV failed: %v", err)
	}
	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		diff := decoded[i] - samples[i]
		if diff < -0.001 || diff > 0.001 {
			t.Errorf("Sample %d: expected %f, got %f", i, samples[i], decoded[i])
		}
	}
}

func TestSessionCreation(t *testing.T) {
	// Skip if no audio subsystem is available; normal on headless machines
	s, err := NewSession(DefaultConfig())
	if err != nil {
		t.Skip("Skipping: audio subsystem unavailable")
	}
	defer s.Close()

	if s.IsActive() {
		t.Error("Expected new session to be inactive")
	}
	if _, err := s.Stop(); err != ErrNotActive {
		t.Errorf("Expected ErrNotActive from Stop on idle session, got %v", err)
	}
}
