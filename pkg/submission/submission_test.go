package submission

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, source string, manifest Manifest) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "strategy.sol"), []byte(source), 0o644))

	raw, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), raw, 0o644))

	return dir
}

func TestLoadReadsSourceAndManifest(t *testing.T) {
	dir := writeFixture(t, "contract Strategy {}", Manifest{Author: "alice", SubmittedAt: time.Now()})

	sub, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "contract Strategy {}", sub.Source)
	assert.Equal(t, "alice", sub.Manifest.Author)
	assert.Equal(t, StatusPending, sub.Status)
	assert.NotEqual(t, sub.ID.String(), "")
}

func TestLoadMissingDirReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestRejectAccumulatesErrorsAndSetsStatus(t *testing.T) {
	dir := writeFixture(t, "contract Strategy {}", Manifest{Author: "bob"})
	sub, err := Load(dir)
	require.NoError(t, err)

	sub.Reject([]string{"first error"})
	sub.Reject([]string{"second error"})

	assert.Equal(t, StatusRejected, sub.Status)
	assert.Equal(t, []string{"first error", "second error"}, sub.Errors)
}

func TestAdvanceUpdatesStatus(t *testing.T) {
	dir := writeFixture(t, "contract Strategy {}", Manifest{Author: "carol"})
	sub, err := Load(dir)
	require.NoError(t, err)

	sub.Advance(StatusValidated)
	assert.Equal(t, StatusValidated, sub.Status)
}
