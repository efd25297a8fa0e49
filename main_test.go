package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvm/pkg/image"
	"rvm/pkg/vm"
)

const helloSource = `void main() { printf("hello"); }`

func newFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}
	return fs
}

func runCLI(fs afero.Fs, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, fs, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCompileWritesObjectFile(t *testing.T) {
	fs := newFs(t, map[string]string{"hello.c": helloSource})

	code, out, errOut := runCLI(fs, "--in", "hello.c")
	require.Equal(t, 0, code, errOut)
	assert.Regexp(t, `^compiled \d+ bytes -> hello\.rvmo\n$`, out)

	img, err := image.ReadFile(fs, "hello.rvmo")
	require.NoError(t, err)
	assert.Contains(t, img.Symbols, "main")
	assert.Contains(t, img.Symbols, "printf")
}

func TestCompileAndRun(t *testing.T) {
	fs := newFs(t, map[string]string{"hello.c": helloSource})

	code, out, errOut := runCLI(fs, "--in", "hello.c", "--out", "bin/hello.obj", "--run")
	require.Equal(t, 0, code, errOut)
	assert.True(t, strings.HasSuffix(out, "-> bin/hello.obj\nhello"+vm.DefaultCompletionMessage), out)

	exists, err := afero.Exists(fs, "bin/hello.obj")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunBin(t *testing.T) {
	fs := newFs(t, map[string]string{"hello.c": helloSource})
	code, _, errOut := runCLI(fs, "--in", "hello.c")
	require.Equal(t, 0, code, errOut)

	code, out, errOut := runCLI(fs, "--run-bin", "hello.rvmo")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "hello"+vm.DefaultCompletionMessage, out)

	code, out, errOut = runCLI(fs, "--run-bin", "hello.rvmo", "--dump")
	require.Equal(t, 0, code, errOut)
	assert.True(t, strings.HasPrefix(out, "0x11"), out)
	assert.Contains(t, out, "PUSHFRAME")
	assert.Contains(t, out, `.STRING   "hello"`)
}

func TestRunBinRejectsSource(t *testing.T) {
	fs := newFs(t, map[string]string{"hello.c": helloSource})
	code, _, errOut := runCLI(fs, "--run-bin", "hello.c")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "failed to load object file")
}

func TestConfigFile(t *testing.T) {
	fs := newFs(t, map[string]string{
		"hello.c": helloSource,
		"rvm.toml": `
[vm]
completion-message = " [done]"
`,
	})
	code, out, errOut := runCLI(fs, "--in", "hello.c", "--run")
	require.Equal(t, 0, code, errOut)
	assert.True(t, strings.HasSuffix(out, "hello [done]"), out)

	code, _, errOut = runCLI(fs, "--in", "hello.c", "--config", "missing.toml", "--run")
	require.Equal(t, 0, code, "a missing config file falls back to defaults: %s", errOut)

	fs = newFs(t, map[string]string{"hello.c": helloSource, "rvm.toml": "[vm]\nstacksize = 1\n"})
	code, _, errOut = runCLI(fs, "--in", "hello.c")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "configuration error")
}

func TestHibernateAndResume(t *testing.T) {
	fs := newFs(t, map[string]string{
		"hello.c":  helloSource,
		"rvm.toml": "[vm]\ninstruction-limit = 3\n",
	})
	code, out, errOut := runCLI(fs, "--in", "hello.c", "--run", "--hibernate", "hello.hib")
	require.Equal(t, 0, code, errOut)
	assert.True(t, strings.HasSuffix(out, "\nhibernated after 3 instructions -> hello.hib\n"), out)

	code, _, errOut = runCLI(fs, "--resume", "hello.hib", "--hibernate", "again.hib")
	require.Equal(t, 0, code, errOut)
	exists, err := afero.Exists(fs, "again.hib")
	require.NoError(t, err)
	assert.True(t, exists, "a resumed run gets a fresh instruction budget and stops again")

	require.NoError(t, afero.WriteFile(fs, "rvm.toml", nil, 0o644))
	code, out, errOut = runCLI(fs, "--resume", "hello.hib")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "hello"+vm.DefaultCompletionMessage, out)

	code, _, errOut = runCLI(fs, "--resume", "hello.c")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "failed to resume")
}

func TestHelp(t *testing.T) {
	code, out, errOut := runCLI(afero.NewMemMapFs(), "--help")
	assert.Equal(t, 0, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "--run-bin")
}

func TestVerboseLogsToStderr(t *testing.T) {
	fs := newFs(t, map[string]string{"hello.c": helloSource})
	code, _, errOut := runCLI(fs, "--in", "hello.c", "--run", "--verbose")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "run complete")
}

func TestFailures(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		args   []string
		code   int
		stderr string
	}{
		{"No Arguments", nil, nil, 2, "nothing to do"},
		{"Run Without Input", nil, []string{"--run"}, 2, "--run requires --in"},
		{"Run And Run Bin", nil, []string{"--run", "--run-bin", "x.rvmo"}, 2, "either --run or --run-bin"},
		{"Resume And Run", nil, []string{"--resume", "a.hib", "--run-bin", "x.rvmo"}, 2, "--resume cannot be combined"},
		{"Limit Without Hibernate", map[string]string{"hello.c": helloSource, "rvm.toml": "[vm]\ninstruction-limit = 2\n"}, []string{"--in", "hello.c", "--run"}, 1, "instruction limit exceeded"},
		{"Unknown Flag", nil, []string{"--fast"}, 2, "unknown flag: --fast"},
		{"Missing Input", nil, []string{"--in", "nope.c"}, 1, `failed to read input file "nope.c"`},
		{"Compile Error", map[string]string{"bad.c": "void main() {"}, []string{"--in", "bad.c"}, 1, "compilation failed"},
		{"Runtime Error", map[string]string{"sub.c": "void main() { int x = 6 - 2; }"}, []string{"--in", "sub.c", "--run"}, 1, "run failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(newFs(t, tt.files), tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, errOut, tt.stderr)
		})
	}
}
