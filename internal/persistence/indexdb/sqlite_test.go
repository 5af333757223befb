package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"amoebotsim.ai/internal/sim/system"
)

func TestSQLiteIndex_RoundsAndSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	cfg := system.Config{ID: "sim_test", PinsPerEdge: 2, Seed: 42}

	idx, err := OpenSQLite(path, cfg)
	require.NoError(t, err)
	defer idx.Close()
	require.NotEmpty(t, idx.RunID())

	for r := uint64(0); r < 10; r++ {
		require.NoError(t, idx.WriteRound(system.RoundLogEntry{
			Round:  r,
			Digest: "digest-" + string(rune('a'+r)),
			Beeps:  int(r),
		}))
	}
	idx.RecordSnapshot("/data/save-0.sav", 0, "digest-a", 3)
	idx.RecordSnapshot("/data/save-5.sav", 5, "digest-f", 3)
	idx.Flush()

	ctx := context.Background()

	d, err := idx.DigestForRound(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, "digest-f", d)

	_, err = idx.DigestForRound(ctx, 99)
	require.Error(t, err)

	runs, err := idx.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "sim_test", runs[0].SimID)
	require.Equal(t, int64(42), runs[0].Seed)

	snaps, err := idx.ListSnapshots(ctx, idx.RunID())
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	require.Equal(t, uint64(0), snaps[0].Round)
	require.Equal(t, uint64(5), snaps[1].Round)
	require.Equal(t, "/data/save-5.sav", snaps[1].Path)
}

func TestSQLiteIndex_ReopenAddsRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx1, err := OpenSQLite(path, system.Config{ID: "sim_a", PinsPerEdge: 1})
	require.NoError(t, err)
	first := idx1.RunID()
	require.NoError(t, idx1.Close())

	idx2, err := OpenSQLite(path, system.Config{ID: "sim_b", PinsPerEdge: 1})
	require.NoError(t, err)
	defer idx2.Close()
	require.NotEqual(t, first, idx2.RunID())

	runs, err := idx2.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestSQLiteIndex_WriteAfterCloseIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path, system.Config{ID: "sim_c", PinsPerEdge: 1})
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.WriteRound(system.RoundLogEntry{Round: 0, Digest: "x"}))
}
