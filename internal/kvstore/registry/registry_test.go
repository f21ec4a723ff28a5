package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "servers.list")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEmptyFile(t *testing.T) {
	reg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Empty(t, reg.Peers())
	assert.False(t, reg.Bridge())
}

func TestLoadPlainPeerList(t *testing.T) {
	reg, err := Load(writeFile(t, "http://127.0.0.1:8002\nhttp://127.0.0.1:8003\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://127.0.0.1:8002", "http://127.0.0.1:8003"}, reg.Peers())
	assert.False(t, reg.Bridge())
}

func TestLoadBridgeMarker(t *testing.T) {
	reg, err := Load(writeFile(t, "* http://127.0.0.1:8002"))
	require.NoError(t, err)
	assert.True(t, reg.Bridge())
	assert.Equal(t, []string{"http://127.0.0.1:8002"}, reg.Peers())
}

func TestLoadBridgeMarkerAlone(t *testing.T) {
	reg, err := Load(writeFile(t, "*"))
	require.NoError(t, err)
	assert.True(t, reg.Bridge())
	assert.Empty(t, reg.Peers())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
