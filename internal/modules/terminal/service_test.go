package terminal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/substrate/internal/quantum"
)

var testPairs = []quantum.Pair{
	{Ground: "🌱", Excited: "🌸"},
	{Ground: "🥚", Excited: "🐣"},
	{Ground: "🐚", Excited: "🦀"},
}

func newTestPool(t *testing.T, seed int64, capacity, registers int) (*Pool, *quantum.Computer) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	c := quantum.NewComputer(rng, 1e-9, zerolog.Nop())
	for i := 0; i < registers; i++ {
		_, created := c.Register(testPairs[i])
		require.True(t, created)
	}
	return NewPool("r1", capacity, c, nil, nil, rng, zerolog.Nop()), c
}

type captureRecorder struct {
	regions []string
	results []HarvestResult
}

func (r *captureRecorder) Record(regionID string, result HarvestResult) error {
	r.regions = append(r.regions, regionID)
	r.results = append(r.results, result)
	return nil
}

func TestPoolStartsUnbound(t *testing.T) {
	pool, _ := newTestPool(t, 1, 3, 2)
	for _, term := range pool.Terminals() {
		assert.Equal(t, StateUnbound, term.State)
		assert.Equal(t, -1, term.Register)
	}
}

func TestExploreBindsLowestFreeTerminal(t *testing.T) {
	pool, _ := newTestPool(t, 1, 2, 2)

	first, err := pool.Explore()
	require.NoError(t, err)
	assert.Equal(t, 0, first.ID)
	assert.Equal(t, StateBound, first.State)
	assert.NotEqual(t, -1, first.Register)

	second, err := pool.Explore()
	require.NoError(t, err)
	assert.Equal(t, 1, second.ID)
	assert.NotEqual(t, first.Register, second.Register, "a claimed register must not be rebound")
}

func TestExploreFailsClosedWhenExhausted(t *testing.T) {
	pool, _ := newTestPool(t, 1, 1, 2)

	_, err := pool.Explore()
	require.NoError(t, err)

	// All terminals bound.
	_, err = pool.Explore()
	assert.ErrorIs(t, err, ErrNoTerminalsAvailable)
	assert.ErrorIs(t, err, quantum.ErrInvalidState)

	before := pool.Terminals()

	// All registers claimed: capacity 2 terminals, 1 register.
	pool2, _ := newTestPool(t, 1, 2, 1)
	_, err = pool2.Explore()
	require.NoError(t, err)
	_, err = pool2.Explore()
	assert.ErrorIs(t, err, ErrNoRegistersAvailable)

	// Failed calls leave terminal state untouched.
	assert.Equal(t, before, pool.Terminals())
	assert.Equal(t, StateUnbound, pool2.Terminals()[1].State)
}

func TestExploreFavorsExcitedRegisters(t *testing.T) {
	excited := 0
	trials := 200
	for seed := int64(0); seed < int64(trials); seed++ {
		pool, c := newTestPool(t, seed, 1, 2)
		hot, err := c.Lookup(testPairs[1])
		require.NoError(t, err)
		require.NoError(t, c.ApplyNamedGate("X", hot, -1))

		term, err := pool.Explore()
		require.NoError(t, err)
		if term.Register == hot {
			excited++
		}
	}
	// Weights are 1.05 vs the 0.05 floor, so the hot register dominates
	// while the cold one stays reachable.
	assert.Greater(t, excited, trials*3/4)
	assert.Less(t, excited, trials)
}

func TestMeasureRecordsPreCollapseObservables(t *testing.T) {
	pool, c := newTestPool(t, 7, 1, 1)
	reg, err := c.Lookup(testPairs[0])
	require.NoError(t, err)
	require.NoError(t, c.ApplyNamedGate("H", reg, -1))

	term, err := pool.Explore()
	require.NoError(t, err)

	measured, err := pool.Measure(term.ID)
	require.NoError(t, err)
	assert.Equal(t, StateMeasured, measured.State)
	assert.InDelta(t, 0.5, measured.Probability, 1e-9, "probability is the pre-collapse marginal")
	assert.InDelta(t, 1.0, measured.Purity, 1e-9)
	assert.Contains(t, []string{testPairs[0].Ground, testPairs[0].Excited}, measured.Outcome)
}

func TestMeasureRequiresBoundTerminal(t *testing.T) {
	pool, _ := newTestPool(t, 1, 1, 1)

	_, err := pool.Measure(0)
	assert.ErrorIs(t, err, ErrTerminalNotBound)

	_, err = pool.Measure(99)
	assert.ErrorIs(t, err, quantum.ErrNotFound)
}

func TestPopRequiresMeasuredTerminal(t *testing.T) {
	pool, _ := newTestPool(t, 1, 1, 1)

	_, err := pool.Pop(0)
	assert.ErrorIs(t, err, ErrTerminalNotMeasured)

	_, err = pool.Explore()
	require.NoError(t, err)
	_, err = pool.Pop(0)
	assert.ErrorIs(t, err, ErrTerminalNotMeasured)

	_, err = pool.Pop(99)
	assert.ErrorIs(t, err, quantum.ErrNotFound)
}

func TestPopValuesDeterministicOutcomes(t *testing.T) {
	// Ground state measured with certainty: minimal yield, no excited bonus.
	pool, _ := newTestPool(t, 3, 1, 1)
	term, err := pool.Explore()
	require.NoError(t, err)
	_, err = pool.Measure(term.ID)
	require.NoError(t, err)
	result, err := pool.Pop(term.ID)
	require.NoError(t, err)
	assert.Equal(t, testPairs[0].Ground, result.Outcome)
	assert.Equal(t, 1, result.Value)

	// X-flipped register: certain excited outcome, minimal surprisal doubled.
	pool, c := newTestPool(t, 3, 1, 1)
	reg, err := c.Lookup(testPairs[0])
	require.NoError(t, err)
	require.NoError(t, c.ApplyNamedGate("X", reg, -1))
	term, err = pool.Explore()
	require.NoError(t, err)
	_, err = pool.Measure(term.ID)
	require.NoError(t, err)
	result, err = pool.Pop(term.ID)
	require.NoError(t, err)
	assert.Equal(t, testPairs[0].Excited, result.Outcome)
	assert.Equal(t, 2, result.Value)
}

func TestPopValuesSurprisal(t *testing.T) {
	pool, c := newTestPool(t, 11, 1, 1)
	reg, err := c.Lookup(testPairs[0])
	require.NoError(t, err)
	require.NoError(t, c.ApplyNamedGate("H", reg, -1))

	term, err := pool.Explore()
	require.NoError(t, err)
	_, err = pool.Measure(term.ID)
	require.NoError(t, err)
	result, err := pool.Pop(term.ID)
	require.NoError(t, err)

	base := 1 + int(math.Round(9*0.5))
	if result.Outcome == testPairs[0].Excited {
		assert.Equal(t, base*2, result.Value)
	} else {
		assert.Equal(t, base, result.Value)
	}
}

func TestPopReleasesRegisterForRebinding(t *testing.T) {
	pool, _ := newTestPool(t, 5, 1, 1)

	term, err := pool.Explore()
	require.NoError(t, err)
	claimed := term.Register

	_, err = pool.Measure(term.ID)
	require.NoError(t, err)
	_, err = pool.Pop(term.ID)
	require.NoError(t, err)

	reset, err := pool.Get(term.ID)
	require.NoError(t, err)
	assert.Equal(t, StateUnbound, reset.State)
	assert.Equal(t, -1, reset.Register)
	assert.Empty(t, reset.Outcome)

	rebound, err := pool.Explore()
	require.NoError(t, err)
	assert.Equal(t, claimed, rebound.Register)
}

func TestPopPersistsThroughRecorder(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	c := quantum.NewComputer(rng, 1e-9, zerolog.Nop())
	_, created := c.Register(testPairs[0])
	require.True(t, created)

	recorder := &captureRecorder{}
	pool := NewPool("r1", 1, c, recorder, nil, rng, zerolog.Nop())

	term, err := pool.Explore()
	require.NoError(t, err)
	_, err = pool.Measure(term.ID)
	require.NoError(t, err)
	result, err := pool.Pop(term.ID)
	require.NoError(t, err)

	require.Len(t, recorder.results, 1)
	assert.Equal(t, "r1", recorder.regions[0])
	assert.Equal(t, result, recorder.results[0])
}

func TestHarvestGlobalSweepsBoundAndMeasured(t *testing.T) {
	pool, _ := newTestPool(t, 13, 3, 3)

	first, err := pool.Explore()
	require.NoError(t, err)
	_, err = pool.Explore()
	require.NoError(t, err)
	_, err = pool.Measure(first.ID)
	require.NoError(t, err)

	total, results := pool.HarvestGlobal()
	require.Len(t, results, 2, "bound and measured terminals both harvest")
	sum := 0
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Value, 1)
		sum += r.Value
	}
	assert.Equal(t, sum, total)

	for _, term := range pool.Terminals() {
		assert.Equal(t, StateUnbound, term.State)
	}
}

func TestHarvestGlobalOnIdlePool(t *testing.T) {
	pool, _ := newTestPool(t, 1, 2, 2)
	total, results := pool.HarvestGlobal()
	assert.Zero(t, total)
	assert.Empty(t, results)
}
