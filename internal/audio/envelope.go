package audio

import "math"

const (
	// envelopeNoiseFloor suppresses the ambient-noise floor; raw RMS for
	// speech is small and noisy near silence.
	envelopeNoiseFloor = 0.01

	// envelopeGain maps normal speech loudness to near-full mouth opening.
	envelopeGain = 12
)

// Envelope maps an RMS amplitude into a mouth-openness scalar in [0,1].
// Pure and deterministic for a given input.
func Envelope(rms float64) float64 {
	scaled := (rms - envelopeNoiseFloor) * envelopeGain
	if scaled < 0 {
		return 0
	}
	if scaled > 1 {
		return 1
	}
	return scaled
}

// RMS computes the root-mean-square amplitude of the buffer.
func RMS(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, v := range buf {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf)))
}

// Sample reads the current waveform window from the analyser into buf and
// returns the loudness envelope. The analyser applies its smoothing
// constant internally; this function has no memory across calls.
func Sample(a *Analyser, buf []float64) (float64, error) {
	if err := a.ReadTimeDomain(buf); err != nil {
		return 0, err
	}
	return Envelope(RMS(buf)), nil
}
