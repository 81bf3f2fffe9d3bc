package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/santiagomed/assetpipe/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStub writes an executable shell script into dir and returns its path.
func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestExecutor_Run(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "upper", `tr 'a-z' 'A-Z'`)

	e := NewExecutor(dir, 5*time.Second, nil)
	res, err := e.Run(context.Background(), Command{Tool: "upper", Path: stub, Stdin: []byte("body{color:red}")})
	require.NoError(t, err)
	assert.Equal(t, "BODY{COLOR:RED}", string(res.Stdout))
}

func TestExecutor_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "broken", "echo 'syntax error' >&2\nexit 3")

	e := NewExecutor(dir, 5*time.Second, nil)
	_, err := e.Run(context.Background(), Command{Tool: "minify", Path: stub, Args: []string{"--type", "css"}})
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Equal(t, "syntax error", exitErr.Stderr)
	assert.Equal(t, []string{"--type", "css"}, exitErr.Args)
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestExecutor_SpawnFailure(t *testing.T) {
	e := NewExecutor(t.TempDir(), time.Second, nil)
	_, err := e.Run(context.Background(), Command{Tool: "sassc", Path: filepath.Join(t.TempDir(), "missing")})

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, -1, exitErr.ExitCode)
	assert.Error(t, exitErr.Err)
}

func TestExecutor_Timeout(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "slow", "exec sleep 5")

	e := NewExecutor(dir, 100*time.Millisecond, nil)
	_, err := e.Run(context.Background(), Command{Tool: "hugo", Path: stub})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExecutor_Cancelled(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "slow", "exec sleep 5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExecutor(dir, time.Minute, nil)
	_, err := e.Run(ctx, Command{Tool: "sassc", Path: stub})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestExecMinifier_PassesType(t *testing.T) {
	dir := t.TempDir()
	// Echo the arguments followed by stdin.
	stub := writeStub(t, dir, "minify", `printf '%s|' "$@"; cat`)

	m := NewExecMinifier(NewExecutor(dir, 5*time.Second, nil), config.Tool{Path: stub, Args: []string{"-q"}})
	out, err := m.Minify(context.Background(), "js", []byte("let a = 1;"))
	require.NoError(t, err)
	assert.Equal(t, "-q|--type|js|let a = 1;", string(out))
}

func TestBuiltinMinifier(t *testing.T) {
	m := NewBuiltinMinifier()
	require.IsType(t, &BuiltinMinifier{}, m)

	out, err := m.Minify(context.Background(), "css", []byte("body {\n  color: #ff0000;\n}\n"))
	require.NoError(t, err)
	assert.Equal(t, "body{color:red}", string(out))

	out, err = m.Minify(context.Background(), "xml", []byte("<urlset>\n  <url> a </url>\n</urlset>\n"))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "\n")

	_, err = m.Minify(context.Background(), "png", []byte{})
	assert.Error(t, err)
}

func TestSassCompiler_WritesDestination(t *testing.T) {
	dir := t.TempDir()
	// sassc -m -t compressed <src> <dst>
	stub := writeStub(t, dir, "sassc", `cat "$4" > "$5"`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.scss"), []byte("a{b:c}"), 0644))

	c := NewSassCompiler(NewExecutor(dir, 5*time.Second, nil), config.Tool{Path: stub})
	require.NoError(t, c.Compile(context.Background(), "a.scss", "a.css"))

	data, err := os.ReadFile(filepath.Join(dir, "a.css"))
	require.NoError(t, err)
	assert.Equal(t, "a{b:c}", string(data))
}

func TestHugoGenerator_Flags(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "hugo", `echo "$@" > args.txt`)

	tool := config.DefaultConfig().Tools[config.ToolHugo]
	tool.Path = stub
	g := NewHugoGenerator(NewExecutor(dir, 5*time.Second, nil), tool)
	require.NoError(t, g.Generate(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "--cleanDestinationDir --gc --ignoreCache --noChmod --noTimes\n", string(data))
}

func TestHugoGenerator_Failure(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "hugo", "exit 1")

	g := NewHugoGenerator(NewExecutor(dir, 5*time.Second, nil), config.Tool{Path: stub})
	err := g.Generate(context.Background())

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitCode)
}
