package mvfst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

func TestEcnValidationCommitsAfterThreshold(t *testing.T) {
	c, _, _ := newTestConnection(t)
	c.settings.UseECN = true

	for i := 0; i < ecnValidationThreshold; i++ {
		c.recordEcnPacket(protocol.ECNECT0)
	}

	assert.Equal(t, ECNValidatedECN, c.ecnState)
}

func TestEcnValidationSurvivesCEBelowThreshold(t *testing.T) {
	c, _, _ := newTestConnection(t)
	c.settings.UseECN = true
	c.recordEcnPacket(protocol.ECNECT0) // enter AttemptingECN

	c.recordEcnPacket(protocol.ECNCE)

	assert.Equal(t, ECNAttemptingECN, c.ecnState)
}

func TestEcnValidationFailsOnWrongCodepoint(t *testing.T) {
	c, _, _ := newTestConnection(t)
	c.settings.UseECN = true

	c.recordEcnPacket(protocol.ECNECT0) // enter AttemptingECN
	for i := 1; i < ecnValidationThreshold; i++ {
		c.recordEcnPacket(protocol.ECNECT1) // wrong codepoint for the ECN path
	}

	assert.Equal(t, ECNFailedValidation, c.ecnState)
	assert.Equal(t, protocol.ECNNon, c.socketTOSECN)
}

func TestEcnValidationClearsTOSOnFailure(t *testing.T) {
	c, _, sock := newTestConnection(t)
	c.settings.UseL4sEcn = true
	c.recordEcnPacket(protocol.ECNECT1) // enter AttemptingL4S, applies TOS
	require.NotEmpty(t, sock.TOSCalls)

	for i := 1; i < ecnValidationThreshold; i++ {
		c.recordEcnPacket(protocol.ECNECT0) // wrong codepoint for the L4S path
	}

	last := sock.TOSCalls[len(sock.TOSCalls)-1]
	assert.Equal(t, uint8(protocol.ECNNon), last[1])
}

func TestL4sValidationCommitsWithMixedECT1AndCE(t *testing.T) {
	c, _, _ := newTestConnection(t)
	c.settings.UseL4sEcn = true

	c.recordEcnPacket(protocol.ECNECT1) // enter AttemptingL4S
	for i := 1; i < ecnValidationThreshold; i++ {
		c.recordEcnPacket(protocol.ECNCE)
	}

	assert.Equal(t, ECNValidatedL4S, c.ecnState)
}

func TestNotAttemptedWithoutSettingsStaysIdle(t *testing.T) {
	c, _, _ := newTestConnection(t)
	c.recordEcnPacket(protocol.ECNECT0)
	assert.Equal(t, ECNNotAttempted, c.ecnState)
}
