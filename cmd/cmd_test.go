package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	seed := filepath.Join(dir, "stories.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
stories:
  - id: s1
    slug: hello-world
    status: approved
    title: Hello World
`), 0o600))
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
site:
  base_url: https://stories.example.com
classifier:
  extra_signatures: ["acme-unfurler"]
store:
  backend: memory
  seed_file: `+seed+`
logging:
  level: error
`), 0o600))
	return cfg
}

func TestClassifyCommand(t *testing.T) {
	cfg := writeConfig(t)
	out, err := runCmd(t, "--config", cfg, "classify", "--signature", "house-bot-x",
		"Mozilla/5.0 (X11; Linux x86_64)",
		"Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)",
		"Acme-Unfurler/3",
	)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Equal(t, []string{
		"human\tMozilla/5.0 (X11; Linux x86_64)",
		"crawler\tSlackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)",
		"crawler\tAcme-Unfurler/3",
	}, lines)
}

func TestClassifyRequiresArgs(t *testing.T) {
	_, err := runCmd(t, "classify")
	require.Error(t, err)
}

func TestResolveCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCmd(t, "--config", cfg, "resolve", "hello-world")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "200 OK\n"))
	require.Contains(t, out, `<meta property="og:url" content="https://stories.example.com/story/hello-world"/>`)

	out, err = runCmd(t, "--config", cfg, "resolve", "--user-agent", "Mozilla/5.0", "hello-world")
	require.NoError(t, err)
	require.Equal(t, "302 Found\nLocation: https://stories.example.com/story/hello-world\n", out)

	out, err = runCmd(t, "--config", cfg, "resolve", "missing")
	require.NoError(t, err)
	require.Contains(t, out, "404 Not Found")
}

func TestServeRejectsBadConfig(t *testing.T) {
	_, err := runCmd(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "load config")
}
