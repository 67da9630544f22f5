package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushConstant(a *Analyser, value float64) {
	samples := make([]float64, TransformSize)
	for i := range samples {
		samples[i] = value
	}
	a.Push(samples)
}

func TestAnalyser_ReadTimeDomain_BufferSize(t *testing.T) {
	a := NewAnalyser()
	pushConstant(a, 0.1)
	assert.ErrorIs(t, a.ReadTimeDomain(make([]float64, TransformSize-1)), ErrBufferSize)
	assert.NoError(t, a.ReadTimeDomain(make([]float64, TransformSize)))
}

func TestAnalyser_NoSamplesYet(t *testing.T) {
	a := NewAnalyser()
	assert.ErrorIs(t, a.ReadTimeDomain(make([]float64, TransformSize)), ErrNoSamples)

	a.Push([]float64{0.25})
	assert.NoError(t, a.ReadTimeDomain(make([]float64, TransformSize)))
}

func TestAnalyser_FirstReadUnsmoothed(t *testing.T) {
	a := NewAnalyser()
	pushConstant(a, 0.5)

	buf := make([]float64, TransformSize)
	require.NoError(t, a.ReadTimeDomain(buf))

	for i, v := range buf {
		assert.InDelta(t, 0.5, v, 1e-9, "sample %d", i)
	}
}

func TestAnalyser_SmoothingBlendsReads(t *testing.T) {
	a := NewAnalyser()
	pushConstant(a, 0.5)

	buf := make([]float64, TransformSize)
	require.NoError(t, a.ReadTimeDomain(buf))

	// Second window of louder audio blends against the previous read:
	// 0.5*0.6 + 1.0*0.4 = 0.7
	pushConstant(a, 1.0)
	require.NoError(t, a.ReadTimeDomain(buf))

	for i, v := range buf {
		assert.InDelta(t, 0.7, v, 1e-9, "sample %d", i)
	}
}

func TestAnalyser_OlderSamplesFallOut(t *testing.T) {
	a := NewAnalyser()
	pushConstant(a, 0.2)
	// A second full window displaces the first entirely.
	pushConstant(a, 0.9)

	buf := make([]float64, TransformSize)
	require.NoError(t, a.ReadTimeDomain(buf))

	for _, v := range buf {
		assert.InDelta(t, 0.9, v, 1e-9)
	}
}

func TestAnalyser_PushPCM16(t *testing.T) {
	a := NewAnalyser()

	// Little-endian int16: 0, 16384 (0.5), -32768 (-1.0)
	a.PushPCM16([]byte{0x00, 0x00, 0x00, 0x40, 0x00, 0x80})

	buf := make([]float64, TransformSize)
	require.NoError(t, a.ReadTimeDomain(buf))

	assert.InDelta(t, 0.0, buf[0], 1e-9)
	assert.InDelta(t, 0.5, buf[1], 1e-4)
	assert.InDelta(t, -1.0, buf[2], 1e-9)
}

func TestAnalyser_PushPCM16_OddTrailingByte(t *testing.T) {
	a := NewAnalyser()
	// Trailing odd byte is ignored, not a panic.
	a.PushPCM16([]byte{0x00, 0x40, 0x7F})

	buf := make([]float64, TransformSize)
	require.NoError(t, a.ReadTimeDomain(buf))
	assert.InDelta(t, 0.5, buf[0], 1e-3)
}

func TestAnalyser_Reset(t *testing.T) {
	a := NewAnalyser()
	pushConstant(a, 1.0)

	buf := make([]float64, TransformSize)
	require.NoError(t, a.ReadTimeDomain(buf))

	a.Reset()
	assert.ErrorIs(t, a.ReadTimeDomain(buf), ErrNoSamples)

	// The next window reads unsmoothed, no blend with the pre-reset window.
	pushConstant(a, 0.0)
	require.NoError(t, a.ReadTimeDomain(buf))
	for _, v := range buf {
		assert.Equal(t, 0.0, v)
	}
}
