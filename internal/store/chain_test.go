package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mashup/internal/chain"
	"github.com/roach88/mashup/internal/testutil"
)

func sampleChain(t *testing.T) *chain.Chain {
	return testutil.BuildChain(t,
		testutil.Text{Pattern: "sol", Body: "Привет Denko. Пью чай\nкофе.", Date: day(2018, 21)},
		testutil.Text{Pattern: "angus", Body: "red green blue", Date: day(2018, 30)},
		testutil.Text{Pattern: "sol", Body: "one two three four", Date: day(2019, 365)},
		testutil.Text{Pattern: "empty", Body: "   ", Date: day(2019, 1)},
	)
}

func TestLoadChain_EmptyDatabase(t *testing.T) {
	s := createTestStore(t)

	c, err := s.LoadChain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, c.Words.Len())
	assert.Empty(t, c.Sources)
}

func TestSaveChain_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	want := sampleChain(t)

	require.NoError(t, s.SaveChain(ctx, want))

	got, err := s.LoadChain(ctx)
	require.NoError(t, err)

	assert.Equal(t, want.Words.Words(), got.Words.Words())
	require.Equal(t, want.Patterns(), got.Patterns())
	for i, src := range want.Sources {
		assert.Equal(t, len(src.Entries), len(got.Sources[i].Entries), src.Pattern)
		for j, e := range src.Entries {
			assert.Equal(t, e, got.Sources[i].Entries[j], "%s entry %d", src.Pattern, j)
		}
	}
}

func TestSaveChain_ReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.SaveChain(ctx, sampleChain(t)))

	smaller := testutil.BuildChain(t, testutil.Text{Pattern: "mix", Body: "a b c", Date: day(2020, 1)})
	require.NoError(t, s.SaveChain(ctx, smaller))

	got, err := s.LoadChain(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mix"}, got.Patterns())
	assert.Equal(t, []string{"a", "b", "c"}, got.Words.Words())
	assert.Equal(t, 1, got.EntryCount())
}

func TestSaveChain_RejectsInvalidChain(t *testing.T) {
	s := createTestStore(t)
	c := chain.New()
	src := c.SourceOrCreate("sol")
	src.Entries = append(src.Entries, chain.Entry{
		Prefix: chain.NewPrefix(0, 1, true),
		Suffix: chain.NewSuffix(2, true),
	})

	err := s.SaveChain(context.Background(), c)
	assert.ErrorIs(t, err, chain.ErrIndexOutOfRange)
}

func TestSaveChain_KeepsGenerations(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.WriteGeneration(ctx, createTestGeneration("g1", "sol", testutil.Epoch)))
	require.NoError(t, s.SaveChain(ctx, sampleChain(t)))

	_, err := s.ReadGeneration(ctx, "g1")
	assert.NoError(t, err)
}

func TestLoadChain_DetectsWordGap(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO words (idx, word) VALUES (0, 'a'), (2, 'c')`)
	require.NoError(t, err)

	_, err = s.LoadChain(ctx)
	assert.ErrorContains(t, err, "word index gap")
}

func TestSourceStats(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.SaveChain(ctx, sampleChain(t)))

	stats, err := s.SourceStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, []SourceStat{
		{Pattern: "sol", Entries: 5, First: day(2018, 21), Last: day(2019, 365)},
		{Pattern: "angus", Entries: 1, First: day(2018, 30), Last: day(2018, 30)},
		{Pattern: "empty", Entries: 0},
	}, stats)
}

func TestSourceStats_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	stats, err := s.SourceStats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats)
	assert.NotNil(t, stats)
}

func TestUnpackStamp(t *testing.T) {
	assert.Equal(t, day(2018, 21), unpackStamp(2018*1000+21))
	assert.Equal(t, day(-1, 5), unpackStamp(-1*1000+5))
}
