package quantum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChannelTestPair(t *testing.T, seed int64) (*Computer, *ChannelSet, int) {
	t.Helper()
	c := newTestComputer(seed)
	idx, _ := c.Register(sprout)
	s := NewChannelSet(c, c.log)
	return c, s, idx
}

func excite(t *testing.T, c *Computer, reg int) {
	t.Helper()
	x, err := c.Gates().MatrixFor("X")
	require.NoError(t, err)
	require.NoError(t, c.ApplyGate1Q(reg, x))
}

func TestDecayMonotonicallyDrainsExcitedState(t *testing.T) {
	c, s, reg := newChannelTestPair(t, 1)
	excite(t, c, reg)
	require.NoError(t, s.InstallDecay("γ", reg, 1.0))

	_, prev, err := c.Probability(reg)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, prev, testTol)

	for i := 0; i < 50; i++ {
		s.Tick(0.05)
		_, p1, err := c.Probability(reg)
		require.NoError(t, err)
		assert.LessOrEqual(t, p1, prev+testTol, "excited population must not grow under decay")
		prev = p1
	}
	assert.Less(t, prev, 0.2, "population should have decayed substantially")
}

func TestTickPreservesTraceAndHermiticity(t *testing.T) {
	c, s, reg := newChannelTestPair(t, 2)
	excite(t, c, reg)
	require.NoError(t, s.InstallDecay("γ", reg, 0.8))
	require.NoError(t, s.InstallDrive("Ω", reg, 0.4))

	for i := 0; i < 100; i++ {
		s.Tick(0.02)
	}
	assert.Empty(t, c.Audit(1e-3))
}

func TestPumpRaisesExcitedPopulation(t *testing.T) {
	c, s, reg := newChannelTestPair(t, 3)
	require.NoError(t, s.InstallPump("η", reg, 1.0))

	for i := 0; i < 40; i++ {
		s.Tick(0.05)
	}
	_, p1, err := c.Probability(reg)
	require.NoError(t, err)
	assert.Greater(t, p1, 0.5)
}

func TestDriveCreatesCoherentOscillation(t *testing.T) {
	c, s, reg := newChannelTestPair(t, 4)
	require.NoError(t, s.InstallDrive("Ω", reg, 1.0))

	// A pure coherent drive keeps the state pure while moving population.
	for i := 0; i < 30; i++ {
		s.Tick(0.01)
	}
	_, p1, err := c.Probability(reg)
	require.NoError(t, err)
	assert.Greater(t, p1, 0.01)
	purity, err := c.Purity(reg)
	require.NoError(t, err)
	assert.Greater(t, purity, 0.98)
}

func TestPauseFreezesEvolution(t *testing.T) {
	c, s, reg := newChannelTestPair(t, 5)
	excite(t, c, reg)
	require.NoError(t, s.InstallDecay("γ", reg, 1.0))

	s.Pause()
	assert.True(t, s.Paused())
	for i := 0; i < 20; i++ {
		s.Tick(0.05)
	}
	_, p1, err := c.Probability(reg)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p1, testTol, "paused evolution must not touch the state")

	// Discrete actions still work while paused.
	out, err := c.MeasureAxis(reg)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Bit)

	s.Resume()
	assert.False(t, s.Paused())
	s.Tick(0.05)
	_, p1, err = c.Probability(reg)
	require.NoError(t, err)
	assert.Less(t, p1, 1.0)
}

func TestChannelsPersistAcrossPause(t *testing.T) {
	_, s, reg := newChannelTestPair(t, 6)
	require.NoError(t, s.InstallDecay("γ", reg, 1.0))
	s.Pause()
	s.Resume()
	assert.Len(t, s.Channels(), 1)
}

func TestRemoveChannel(t *testing.T) {
	_, s, reg := newChannelTestPair(t, 7)
	require.NoError(t, s.InstallDecay("γ", reg, 1.0))
	require.NoError(t, s.Remove("γ"))
	assert.ErrorIs(t, s.Remove("γ"), ErrNotFound)
	assert.Empty(t, s.Channels())
}

func TestInstallValidation(t *testing.T) {
	_, s, reg := newChannelTestPair(t, 8)
	assert.ErrorIs(t, s.InstallDecay("γ", 99, 1.0), ErrNotFound)
	assert.ErrorIs(t, s.InstallDecay("γ", reg, -1.0), ErrInvalidState)
	assert.ErrorIs(t, s.InstallTransfer("τ", reg, reg, 1.0), ErrInvalidState)
}

func TestTransferMovesPopulationBetweenRegisters(t *testing.T) {
	c := newTestComputer(9)
	src, _ := c.Register(sprout)
	dst, _ := c.Register(bud)
	s := NewChannelSet(c, c.log)
	excite(t, c, src)

	require.NoError(t, s.InstallTransfer("τ", src, dst, 1.0))
	for i := 0; i < 60; i++ {
		s.Tick(0.05)
	}

	_, pSrc, err := c.Probability(src)
	require.NoError(t, err)
	_, pDst, err := c.Probability(dst)
	require.NoError(t, err)
	assert.Less(t, pSrc, 0.5)
	assert.Greater(t, pDst, 0.3)

	// The transfer channel merged the two registers into one component.
	members, err := c.ComponentMembers(src)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestOneShotDecay(t *testing.T) {
	c, s, reg := newChannelTestPair(t, 10)
	excite(t, c, reg)
	require.NoError(t, s.ApplyDecay(reg, 1.0, 0.1))
	_, p1, err := c.Probability(reg)
	require.NoError(t, err)
	assert.Less(t, p1, 1.0)
	assert.Empty(t, s.Channels(), "one-shot application must not install a channel")

	assert.ErrorIs(t, s.ApplyDecay(reg, 1.0, 0), ErrInvalidState)
	assert.ErrorIs(t, s.ApplyDecay(99, 1.0, 0.1), ErrNotFound)
}

func TestOneShotIgnoresInstalledDynamics(t *testing.T) {
	c, s, reg := newChannelTestPair(t, 15)
	require.NoError(t, s.SetDriver(reg, 5.0, 0))
	require.NoError(t, s.InstallPump("η", reg, 2.0))

	// A zero-rate one-shot integrates a null operator; the installed driver
	// and pump channel must not bleed into the step.
	require.NoError(t, s.ApplyDecay(reg, 0, 0.1))
	purity, err := c.Purity(reg)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, purity, testTol)
	p0, _, err := c.Probability(reg)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p0, testTol)
}

func TestResetToPure(t *testing.T) {
	c, s, reg := newChannelTestPair(t, 11)
	excite(t, c, reg)

	require.NoError(t, s.ResetToPure(reg, 1.0))
	p0, _, err := c.Probability(reg)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p0, testTol)

	assert.ErrorIs(t, s.ResetToPure(reg, 1.5), ErrInvalidState)
}

func TestResetToMixed(t *testing.T) {
	c, s, reg := newChannelTestPair(t, 12)
	require.NoError(t, s.ResetToMixed(reg, 1.0))
	purity, err := c.Purity(reg)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, purity, testTol)
}

func TestResetDecouplesEntangledRegister(t *testing.T) {
	c := newTestComputer(13)
	a, _ := c.Register(sprout)
	b, _ := c.Register(bud)
	require.NoError(t, c.Entangle(a, b))
	s := NewChannelSet(c, c.log)

	require.NoError(t, s.ResetToPure(b, 1.0))
	members, err := c.ComponentMembers(b)
	require.NoError(t, err)
	assert.Equal(t, []int{b}, members)
	p0, _, err := c.Probability(b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p0, testTol)
}

func TestOscillatingDriver(t *testing.T) {
	c, s, reg := newChannelTestPair(t, 14)
	require.NoError(t, s.SetDriver(reg, 1.0, 2*math.Pi))

	for i := 0; i < 50; i++ {
		s.Tick(0.01)
	}
	assert.Greater(t, s.Elapsed(), 0.49)
	assert.Empty(t, c.Audit(1e-3))

	s.ClearDriver(reg)
	before := s.Elapsed()
	s.Tick(0.01)
	assert.InDelta(t, before+0.01, s.Elapsed(), testTol)
}
