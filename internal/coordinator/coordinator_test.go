package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knagel/codesage/internal/embedder"
	"github.com/knagel/codesage/internal/scanner"
)

const playerSource = `using UnityEngine;

public class PlayerController : MonoBehaviour
{
    /// <summary>
    /// Moves the player using the input direction.
    /// </summary>
    public void MovePlayer(Vector3 direction)
    {
        transform.position += direction * speed;
    }
}`

const audioSource = `public class AudioManager
{
    /// <summary>Plays a sound clip.</summary>
    public void PlayClip()
    {
        source.Play();
    }
}`

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestCoordinator(t *testing.T) (*Coordinator, string) {
	t.Helper()
	dataDir := t.TempDir()
	c := New(Config{
		Scanner:   scanner.Config{},
		Workers:   2,
		StorePath: filepath.Join(dataDir, "vectors.bin"),
		CachePath: filepath.Join(dataDir, "index.json"),
	}, embedder.NewHashEmbedder(0, nil))
	return c, dataDir
}

func entryIDs(c *Coordinator) []string {
	entries := c.currentStore().Entries()
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestRebuildIndex(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "Player.cs", playerSource)
	writeSource(t, src, "Audio.cs", audioSource)

	c, dataDir := newTestCoordinator(t)
	assert.Equal(t, StateIdle, c.State())

	stats, err := c.RebuildIndex(context.Background(), []string{src})
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, 2, stats.FilesScanned)
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Zero(t, stats.FilesFailed)
	assert.Greater(t, stats.UnitsIndexed, 0)
	assert.Equal(t, 2, c.FileCount())

	// Both artifacts were persisted.
	_, err = os.Stat(filepath.Join(dataDir, "vectors.bin"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dataDir, "index.json"))
	assert.NoError(t, err)
}

func TestRebuildIndex_Idempotent(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "Player.cs", playerSource)

	c, _ := newTestCoordinator(t)
	_, err := c.RebuildIndex(context.Background(), []string{src})
	require.NoError(t, err)
	first := entryIDs(c)

	_, err = c.RebuildIndex(context.Background(), []string{src})
	require.NoError(t, err)
	second := entryIDs(c)

	assert.Equal(t, first, second)
	assert.Equal(t, len(first), c.UnitCount())
}

func TestQuery_WhileIdleReturnsEmpty(t *testing.T) {
	c, _ := newTestCoordinator(t)

	results := c.Query(context.Background(), "anything at all", 5)
	assert.Empty(t, results)
	assert.Equal(t, StateIdle, c.State())
}

func TestQuery_RanksMovePlayerAboveUnrelated(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "Player.cs", playerSource)
	writeSource(t, src, "Audio.cs", audioSource)

	c, _ := newTestCoordinator(t)
	_, err := c.RebuildIndex(context.Background(), []string{src})
	require.NoError(t, err)

	results := c.Query(context.Background(), "how do I move the player", 10)
	require.NotEmpty(t, results)

	moveRank, audioRank := -1, -1
	for i, res := range results {
		if moveRank < 0 && res.Unit.Name == "PlayerController.MovePlayer" {
			moveRank = i
		}
		if audioRank < 0 && res.Unit.Name == "AudioManager.PlayClip" {
			audioRank = i
		}
	}

	require.GreaterOrEqual(t, moveRank, 0)
	if audioRank >= 0 {
		assert.Less(t, moveRank, audioRank)
	}
}

func TestIncrementalUpdate(t *testing.T) {
	src := t.TempDir()
	playerPath := writeSource(t, src, "Player.cs", playerSource)
	writeSource(t, src, "Audio.cs", audioSource)

	c, _ := newTestCoordinator(t)
	_, err := c.RebuildIndex(context.Background(), []string{src})
	require.NoError(t, err)

	// Change one file, add one, delete one.
	changed := playerSource + "\n// trailing comment\n"
	require.NoError(t, os.WriteFile(playerPath, []byte(changed), 0o644))
	writeSource(t, src, "Enemy.cs", `public class Enemy
{
    public void Attack()
    {
    }
}`)
	require.NoError(t, os.Remove(filepath.Join(src, "Audio.cs")))

	stats, err := c.IncrementalUpdate(context.Background(), []string{src})
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, 2, stats.FilesIndexed) // changed + new
	assert.Equal(t, 1, stats.FilesRemoved)
	assert.Zero(t, stats.FilesSkipped)
	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, 2, c.FileCount())

	// Nothing from the deleted file survives.
	for _, id := range entryIDs(c) {
		assert.NotContains(t, id, "Audio.cs")
	}
}

func TestIncrementalUpdate_SkipsUnchanged(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "Player.cs", playerSource)

	c, _ := newTestCoordinator(t)
	_, err := c.RebuildIndex(context.Background(), []string{src})
	require.NoError(t, err)
	before := entryIDs(c)

	stats, err := c.IncrementalUpdate(context.Background(), []string{src})
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Zero(t, stats.FilesIndexed)
	assert.Equal(t, before, entryIDs(c))
}

func TestClearIndex(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "Player.cs", playerSource)

	c, dataDir := newTestCoordinator(t)
	_, err := c.RebuildIndex(context.Background(), []string{src})
	require.NoError(t, err)
	require.Equal(t, StateReady, c.State())

	require.NoError(t, c.ClearIndex())

	assert.Equal(t, StateIdle, c.State())
	assert.Zero(t, c.UnitCount())
	assert.Zero(t, c.FileCount())

	_, err = os.Stat(filepath.Join(dataDir, "vectors.bin"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dataDir, "index.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestRebuildIndex_CancelledBeforeStart(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "Player.cs", playerSource)

	c, dataDir := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := c.RebuildIndex(ctx, []string{src})
	require.NoError(t, err)
	require.NotNil(t, stats)

	// Nothing was persisted and the prior state is restored.
	assert.Equal(t, StateIdle, c.State())
	assert.Zero(t, c.UnitCount())
	_, err = os.Stat(filepath.Join(dataDir, "vectors.bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestMutation_RejectedWhileLocked(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "Player.cs", playerSource)

	c, _ := newTestCoordinator(t)
	require.True(t, c.lock.tryAcquire())
	defer c.lock.release()

	stats, err := c.RebuildIndex(context.Background(), []string{src})
	assert.NoError(t, err)
	assert.Nil(t, stats)

	stats, err = c.IncrementalUpdate(context.Background(), []string{src})
	assert.NoError(t, err)
	assert.Nil(t, stats)

	assert.NoError(t, c.ClearIndex())
}

func TestPersistence_SurvivesRestart(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "Player.cs", playerSource)

	dataDir := t.TempDir()
	cfg := Config{
		Scanner:   scanner.Config{},
		Workers:   2,
		StorePath: filepath.Join(dataDir, "vectors.bin"),
		CachePath: filepath.Join(dataDir, "index.json"),
	}

	first := New(cfg, embedder.NewHashEmbedder(0, nil))
	_, err := first.RebuildIndex(context.Background(), []string{src})
	require.NoError(t, err)
	ids := entryIDs(first)

	second := New(cfg, embedder.NewHashEmbedder(0, nil))
	assert.Equal(t, StateReady, second.State())
	assert.Equal(t, ids, entryIDs(second))

	results := second.Query(context.Background(), "move the player", 5)
	assert.NotEmpty(t, results)
}
