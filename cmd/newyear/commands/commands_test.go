package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/newyear/internal/server"
	"github.com/livetemplate/newyear/internal/store"
)

// run executes the CLI with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand("1.2.3", "abc")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func wishAPI(t *testing.T) (*httptest.Server, store.WishStore) {
	t.Helper()
	st := store.NewMemoryStore()
	ts := httptest.NewServer(server.NewWishHandler(st))
	t.Cleanup(ts.Close)
	return ts, st
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "newyear version 1.2.3\n", out)

	out, err = run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "newyear 1.2.3 (commit: abc)\n", out)
}

func TestWishesAddThenList(t *testing.T) {
	ts, st := wishAPI(t)
	dir := t.TempDir()

	out, err := run(t, "--dir", dir, "wishes", "add", "Alice", "travel", "--url", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved wish for Alice")

	_, err = run(t, "--dir", dir, "wishes", "add", "Alice", "health", "--url", ts.URL)
	require.NoError(t, err)

	wishes, err := st.List(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"travel", "health"}, wishes)

	out, err = run(t, "--dir", dir, "wishes", "list", "Alice", "--url", ts.URL)
	require.NoError(t, err)
	assert.Equal(t, " 1. travel\n 2. health\n", out)

	out, err = run(t, "--dir", dir, "wishes", "list", "Alice", "--url", ts.URL, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Alice","wishes":["travel","health"]}`, out)
}

func TestWishesListEmpty(t *testing.T) {
	ts, _ := wishAPI(t)
	out, err := run(t, "--dir", t.TempDir(), "wishes", "list", "Nobody", "--url", ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "No wishes found.\n", out)
}

func TestWishesListUnknownFormat(t *testing.T) {
	ts, _ := wishAPI(t)
	_, err := run(t, "--dir", t.TempDir(), "wishes", "list", "Alice", "--url", ts.URL, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestWishesArgs(t *testing.T) {
	_, err := run(t, "wishes", "add", "Alice")
	assert.Error(t, err)
}

func TestLoadUsesConfigInDir(t *testing.T) {
	dir := t.TempDir()
	cfgYAML := "title: Office party\nserver:\n  port: 9090\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "newyear.yaml"), []byte(cfgYAML), 0644))

	cfg, path, err := (&globalFlags{dir: dir}).load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "newyear.yaml"), path)
	assert.Equal(t, "Office party", cfg.Title)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Len(t, cfg.Wheel.Prizes, 5)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  wish_threshold: -1\n"), 0644))

	_, _, err := (&globalFlags{configPath: path}).load()
	assert.ErrorContains(t, err, "wish_threshold")
}

func TestNewPlaySession(t *testing.T) {
	flags := &globalFlags{dir: t.TempDir()}

	sess, err := newPlaySession(flags, &playOptions{name: " Alice ", offline: true})
	require.NoError(t, err)
	defer sess.Close()
	assert.Equal(t, "Alice", sess.State().UserName())

	_, err = newPlaySession(flags, &playOptions{name: "  ", offline: true})
	assert.Error(t, err)
}

func TestServeRejectsMissingDir(t *testing.T) {
	_, err := run(t, "--dir", filepath.Join(t.TempDir(), "nope"), "serve")
	assert.ErrorContains(t, err, "directory does not exist")
}
