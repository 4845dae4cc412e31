package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// run parses args and executes the selected command, returning its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("confexport"), kong.Vars{"version": "test"})
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = kctx.Run(&Global{Out: &out}, cli)
	return out.String(), err
}

func contentServer(t *testing.T) *httptest.Server {
	t.Helper()
	page := func(id, title, body string) map[string]any {
		return map[string]any{"id": id, "title": title, "body": map[string]any{"storage": map[string]any{"value": body}}}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/content/100", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "100", "title": "Ops Runbook"})
	})
	mux.HandleFunc("/rest/api/content/100/child/page", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{page("101", "Deploy", "<p>ship it</p>")}})
	})
	mux.HandleFunc("/rest/api/content/101/child/page", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{page("102", "Rollback", "<p>undo</p>")}})
	})
	mux.HandleFunc("/rest/api/content/102/child/page", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confexport.yaml")

	out, err := run(t, "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123456", cfg.Confluence.RootPageID)

	_, err = run(t, "--config", path, "init")
	require.Error(t, err, "existing file needs --force")
	_, err = run(t, "--config", path, "init", "--force")
	require.NoError(t, err)
}

func TestExportAndHistory(t *testing.T) {
	srv := contentServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CONFLUENCE_TOKEN=abc\n"), 0o600))

	cfgPath := filepath.Join(dir, "confexport.yaml")
	yaml := "confluence:\n" +
		"  base_url: " + srv.URL + "\n" +
		"  root_page_id: \"100\"\n" +
		"manifest:\n" +
		"  path: " + filepath.Join(dir, "manifest.db") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	outDir := filepath.Join(dir, "out")
	out, err := run(t, "-c", cfgPath, "export", "--mode", "per-file", "--output", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 pages")

	data, err := os.ReadFile(filepath.Join(outDir, "ops_runbook", "deploy_101", "rollback_102", "102.txt"))
	require.NoError(t, err)
	assert.Equal(t, "### Rollback\n\nundo", string(data))

	out, err = run(t, "-c", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Ops Runbook")
	assert.Contains(t, out, "per-file")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	runID := strings.Fields(lines[1])[0]

	out, err = run(t, "-c", cfgPath, "history", "--run", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "Rollback")
	assert.Contains(t, out, "102")

	out, err = run(t, "-c", cfgPath, "history", "--page", "102")
	require.NoError(t, err)
	assert.Contains(t, out, "Page 102 \"Rollback\" last exported by run "+runID)
	assert.Contains(t, out, filepath.Join("deploy_101", "rollback_102"))

	_, err = run(t, "-c", cfgPath, "history", "--page", "999")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestExportCmd_Errors(t *testing.T) {
	t.Run("invalid mode", func(t *testing.T) {
		_, err := run(t, "export", "--mode", "zip", "--base-url", "https://wiki.example.com", "--root", "1")
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	})

	t.Run("missing base url", func(t *testing.T) {
		_, err := run(t, "export", "--root", "1")
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	})

	t.Run("missing credential file", func(t *testing.T) {
		_, err := run(t, "export", "--root", "1", "--base-url", "https://wiki.example.com",
			"--token-file", filepath.Join(t.TempDir(), "none.env"))
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
		assert.Equal(t, 7, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	})
}

func TestHistoryCmd_NoManifest(t *testing.T) {
	_, err := run(t, "history")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestOverrides_Apply(t *testing.T) {
	cfg := config.Default()
	o := Overrides{Root: "9", Mode: "flat", Output: "/tmp/x", ChunkBytes: 42, BaseURL: "https://w", TokenFile: "t.env"}
	require.NoError(t, o.Apply(cfg))

	assert.Equal(t, "9", cfg.Confluence.RootPageID)
	assert.Equal(t, config.ModeFlat, cfg.Export.Mode)
	assert.Equal(t, "/tmp/x", cfg.Export.OutputDir)
	assert.Equal(t, int64(42), cfg.Export.ChunkBytes)
	assert.Equal(t, "https://w", cfg.Confluence.BaseURL)
	assert.Equal(t, "t.env", cfg.Confluence.TokenFile)

	untouched := config.Default()
	require.NoError(t, Overrides{}.Apply(untouched))
	assert.Equal(t, config.Default(), untouched)
}
