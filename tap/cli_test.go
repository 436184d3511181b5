package tap_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tapkit/tapkit/singer"
	"github.com/tapkit/tapkit/tap"
)

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func fixtureFactory(rows ...map[string]any) tap.StreamFactory {
	return func(*tap.Tap) ([]tap.Stream, error) {
		return []tap.Stream{&memStream{
			name:     "users",
			schema:   usersSchema(),
			keyProps: []string{"id"},
			rows:     rows,
		}}, nil
	}
}

func TestCLIDiscoverWritesCatalog(t *testing.T) {
	cfg := writeTempFile(t, "config.json", `{}`)
	cmd := tap.NewCommand("tap-test", fixtureFactory())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfg, "--discover"})
	require.NoError(t, cmd.Execute())

	catalog, err := singer.ParseCatalog(out.Bytes())
	require.NoError(t, err)
	require.Len(t, catalog.Streams, 1)
	require.Equal(t, "users", catalog.Streams[0].TapStreamID)
	require.True(t, catalog.Streams[0].Selected())
}

func TestCLISyncHonorsCatalogAndState(t *testing.T) {
	cfg := writeTempFile(t, "config.json", `{}`)
	catalog := writeTempFile(t, "catalog.json", `{
		"streams": [{
			"tap_stream_id": "users", "stream": "users",
			"schema": {"type": "object"},
			"metadata": [{"breadcrumb": [], "metadata": {"selected": false}}]
		}]
	}`)
	state := writeTempFile(t, "state.json", `{"bookmarks":{"users":{"replication_key_value":"x"}}}`)

	cmd := tap.NewCommand("tap-test", fixtureFactory(map[string]any{"id": int64(1)}))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfg, "--catalog", catalog, "--state", state})
	require.NoError(t, cmd.Execute())

	// the only stream is deselected, so no messages are emitted
	require.Empty(t, bytes.TrimSpace(out.Bytes()))
}

func TestCLIAbout(t *testing.T) {
	cmd := tap.NewCommand("tap-test", fixtureFactory())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"about"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), `"tap-test"`)
	require.Contains(t, out.String(), `"discover"`)
	require.Regexp(t, `"version": "v\d+\.\d+\.\d+"`, out.String())
}

func TestCLITestConnection(t *testing.T) {
	cfg := writeTempFile(t, "config.json", `{}`)
	cmd := tap.NewCommand("tap-test", fixtureFactory(map[string]any{"id": int64(1)}))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", cfg, "--test-connection"})
	require.NoError(t, cmd.Execute())
	// the connection test emits no protocol messages
	require.Empty(t, bytes.TrimSpace(out.Bytes()))

	bad := tap.NewCommand("tap-test", func(*tap.Tap) ([]tap.Stream, error) {
		return []tap.Stream{&memStream{
			name:       "down",
			schema:     usersSchema(),
			recordsErr: fmt.Errorf("connection refused"),
		}}, nil
	})
	bad.SetOut(&bytes.Buffer{})
	bad.SetErr(&bytes.Buffer{})
	bad.SetArgs([]string{"--config", cfg, "--test-connection"})
	err := bad.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), `"down"`)
}

func TestCLIMissingConfigFileFails(t *testing.T) {
	cmd := tap.NewCommand("tap-test", fixtureFactory())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", "/nonexistent/config.json"})
	require.Error(t, cmd.Execute())
}
