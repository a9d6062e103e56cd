package audio

import "math"

// Stats summarizes a capture buffer for quality diagnostics
type Stats struct {
	Peak float32 // largest absolute sample value
	Mean float32 // mean absolute sample value
	RMS  float32
}

// CalculateRMSLevel calculates the root mean square level of audio data
func CalculateRMSLevel(buffer []float32) float32 {
	if len(buffer) == 0 {
		return 0
	}

	var sumOfSquares float64
	for _, sample := range buffer {
		sumOfSquares += float64(sample * sample)
	}

	meanSquare := sumOfSquares / float64(len(buffer))
	return float32(math.Sqrt(meanSquare))
}

// Analyze computes peak, mean and RMS levels for a capture buffer
func Analyze(buffer []float32) Stats {
	if len(buffer) == 0 {
		return Stats{}
	}

	var sumAbs, sumSq float64
	var peak float64
	for _, sample := range buffer {
		abs := math.Abs(float64(sample))
		if abs > peak {
			peak = abs
		}
		sumAbs += abs
		sumSq += float64(sample) * float64(sample)
	}

	n := float64(len(buffer))
	return Stats{
		Peak: float32(peak),
		Mean: float32(sumAbs / n),
		RMS:  float32(math.Sqrt(sumSq / n)),
	}
}

// QualityAdvisory returns a human-readable warning for degenerate captures,
// or "" when the signal looks usable. Thresholds follow the levels a typical
// close microphone produces for quiet speech.
func QualityAdvisory(s Stats) string {
	switch {
	case s.Peak < 0.001:
		return "No audio detected - check your microphone"
	case s.Peak < 0.01:
		return "Audio very quiet - speak louder or move closer to the microphone"
	default:
		return ""
	}
}
