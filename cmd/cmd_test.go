// Filename: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScenario = `
name: demo
url: https://demo.example.com
beats:
  - name: open
    duration: 5s
    steps:
      - describe: click the Live Map button
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs a fresh root command and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"record", "plan", "validate", "doctor"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestValidateAcceptsGoodScenario(t *testing.T) {
	path := writeScenario(t, testScenario)
	_, err := execute(t, "validate", path)
	assert.NoError(t, err)
}

func TestValidateRejectsBadScenario(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "missing_url", content: "name: demo\nbeats:\n  - name: x\n    steps: []\n"},
		{name: "unknown_action", content: `
name: demo
url: https://x.test
beats:
  - name: x
    steps:
      - action: levitate
`},
		{name: "bad_scheme", content: `
name: demo
url: ftp://x.test
beats:
  - name: x
    steps:
      - action: wait
        wait: 1s
`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			path := writeScenario(t, tc.content)
			_, err := execute(t, "validate", path)
			assert.Error(t, err)
		})
	}
}

func TestValidateMissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRecordRequiresScenarioArg(t *testing.T) {
	_, err := execute(t, "record")
	assert.Error(t, err)
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, validateURL("https://demo.example.com/app"))
	assert.NoError(t, validateURL("http://localhost:3000"))
	assert.Error(t, validateURL("ftp://x.test"))
	assert.Error(t, validateURL("https://"))
	assert.Error(t, validateURL("://broken"))
}
