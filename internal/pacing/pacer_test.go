package pacing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Harvey-Liu/mvfst/internal/congestion"
	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

func TestSelectConfigUsesLargerMinCwndForBBRFamily(t *testing.T) {
	cfg := SelectConfig(congestion.Cubic, 2)
	assert.Equal(t, protocol.ByteCount(2), cfg.MinCwndInMss)
	assert.False(t, cfg.ExperimentalPacer)

	cfg = SelectConfig(congestion.BBR, 2)
	assert.Equal(t, protocol.ByteCount(kMinCwndInMssForBbr), cfg.MinCwndInMss)
	assert.False(t, cfg.ExperimentalPacer)
}

func TestSelectConfigForcesExperimentalPacerForBBR2AndTesting(t *testing.T) {
	for _, ct := range []congestion.Type{congestion.BBR2, congestion.BBRTesting} {
		cfg := SelectConfig(ct, 2)
		assert.True(t, cfg.ExperimentalPacer, ct.String())
		assert.True(t, cfg.FireLoopEarly, ct.String())
		assert.Equal(t, RttFactor{Num: 1, Den: 1}, cfg.DefaultRttFactor)
		assert.Equal(t, RttFactor{Num: 1, Den: 1}, cfg.StartupRttFactor)
	}
}

func TestValidateControllerTypeDowngradesUnpacedBBR(t *testing.T) {
	assert.Equal(t, congestion.Cubic, ValidateControllerType(congestion.BBR, false))
	assert.Equal(t, congestion.BBR, ValidateControllerType(congestion.BBR, true))
	assert.Equal(t, congestion.Cubic, ValidateControllerType(congestion.Cubic, false))
}

func TestGetTimeUntilNextWriteZeroWhenBudgetAvailable(t *testing.T) {
	p := New(congestion.Cubic, 2, 1200, func() uint64 { return 10_000_000 })
	assert.Equal(t, 0, int(p.GetTimeUntilNextWrite(p.lastSent)))
}
