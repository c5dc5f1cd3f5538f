package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/plano/internal/persistence"
)

const shoutDoc = `name: shout
plan:
  sequence: [denoise, upper]
input: "~default~"
`

const listDoc = `name: stats
plan:
  parallel: [upper, len]
aggregate: list
`

type cli struct {
	dir    string
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "plano.toml")
	body := fmt.Sprintf("[log]\nlevel = \"error\"\n\n[store]\nbackend = \"sqlite\"\ndsn = %q\n",
		filepath.Join(dir, "runs.db"))
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o600))
	return &cli{dir: dir, config: cfg}
}

func (c *cli) file(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(c.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func (c *cli) exec(args ...string) (string, error) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", c.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (c *cli) store(t *testing.T) persistence.RunStore {
	t.Helper()
	store, closeFn, err := persistence.Open(context.Background(), persistence.Options{
		Backend: persistence.BackendSQLite,
		DSN:     filepath.Join(c.dir, "runs.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })
	return store
}

func TestRunPrintsOutputAndStoresRun(t *testing.T) {
	c := newCLI(t)
	doc := c.file(t, "shout.yaml", shoutDoc)

	out, err := c.exec("run", doc, "--input", "~ab~c")
	require.NoError(t, err)
	require.Equal(t, "ABC\n", out)

	out, err = c.exec("run", doc)
	require.NoError(t, err)
	require.Equal(t, "DEFAULT\n", out, "document input is the fallback")

	recs, err := c.store(t).ListRuns(context.Background(), persistence.RunFilter{Plan: "shout"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, persistence.StatusCompleted, recs[0].Status)

	out, err = c.exec("runs", "list", "--plan", "shout")
	require.NoError(t, err)
	require.Contains(t, out, recs[0].ID)
	require.Contains(t, out, "COMPLETED")

	out, err = c.exec("runs", "show", recs[0].ID)
	require.NoError(t, err)
	var shown persistence.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	require.Equal(t, recs[0].ID, shown.ID)
}

func TestRunJSONInputAndTrace(t *testing.T) {
	c := newCLI(t)
	doc := c.file(t, "stats.yaml", listDoc)

	out, err := c.exec("run", doc, "--input-json", `"abc"`, "--trace", "--snapshot", "--no-store")
	require.NoError(t, err)
	require.Contains(t, out, "Parallel[0].upper")
	require.Contains(t, out, "Parallel[1].len")
	require.True(t, strings.HasSuffix(out, "[\"ABC\",3]\n"), out)
}

func TestRunFailureReturnsStepError(t *testing.T) {
	c := newCLI(t)
	doc := c.file(t, "shout.yaml", shoutDoc)

	_, err := c.exec("run", doc, "--input-json", "42")
	require.ErrorContains(t, err, "Sequence[0].denoise")

	recs, err := c.store(t).ListRuns(context.Background(), persistence.RunFilter{Status: persistence.StatusFailed})
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestValidate(t *testing.T) {
	c := newCLI(t)
	good := c.file(t, "good.yaml", shoutDoc)
	bad := c.file(t, "bad.yaml", "plan:\n  parallel: [uper, len]\n")

	out, err := c.exec("validate", good)
	require.NoError(t, err)
	require.Contains(t, out, "ok Sequence(Task(denoise), Task(upper))")

	out, err = c.exec("validate", good, bad)
	require.ErrorContains(t, err, "1 of 2 documents invalid")
	require.Contains(t, out, "did you mean upper?")
	require.Contains(t, out, "parallel needs an aggregate function")
}

func TestGraphWithRunOverlay(t *testing.T) {
	c := newCLI(t)
	doc := c.file(t, "shout.yaml", shoutDoc)

	out, err := c.exec("graph", doc)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "graph TD"))

	_, err = c.exec("run", doc)
	require.NoError(t, err)
	recs, err := c.store(t).ListRuns(context.Background(), persistence.RunFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	out, err = c.exec("graph", doc, "--run", recs[0].ID)
	require.NoError(t, err)
	require.Contains(t, out, "classDef ok")

	_, err = c.exec("graph", doc, "--run", "missing")
	require.ErrorIs(t, err, persistence.ErrRunNotFound)
}

func TestActions(t *testing.T) {
	c := newCLI(t)
	out, err := c.exec("actions")
	require.NoError(t, err)
	require.Contains(t, strings.Fields(out), "upper")
}

func TestInvalidConfig(t *testing.T) {
	c := newCLI(t)
	_, err := c.exec("--log-level", "loud", "actions")
	require.ErrorContains(t, err, "invalid configuration")
}
