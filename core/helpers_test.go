package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/santiagomed/assetpipe/config"
	"github.com/santiagomed/assetpipe/fs"
	"github.com/santiagomed/assetpipe/logger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// upperMinifier stands in for the external minifier by uppercasing its input.
type upperMinifier struct{}

func (upperMinifier) Minify(_ context.Context, _ string, src []byte) ([]byte, error) {
	return bytes.ToUpper(src), nil
}

// MockMinifier is a mock implementation of the minifier
type MockMinifier struct {
	mock.Mock
}

func (m *MockMinifier) Minify(_ context.Context, contentType string, src []byte) ([]byte, error) {
	args := m.Called(contentType, src)
	var out []byte
	if v := args.Get(0); v != nil {
		out = v.([]byte)
	}
	return out, args.Error(1)
}

// fakeCompiler writes the destination itself, like sassc does.
type fakeCompiler struct {
	fs *fs.FileSystem

	mu    sync.Mutex
	calls [][2]string
}

func (c *fakeCompiler) Compile(_ context.Context, src, dst string) error {
	c.mu.Lock()
	c.calls = append(c.calls, [2]string{src, dst})
	c.mu.Unlock()

	data, err := c.fs.ReadFile(src)
	if err != nil {
		return err
	}
	return c.fs.WriteFile(dst, append([]byte("/*compiled*/"), data...))
}

// MockGenerator is a mock implementation of the site generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(_ context.Context) error {
	return m.Called().Error(0)
}

// siteGenerator refuses to run unless every required asset exists, then
// writes a small site.
type siteGenerator struct {
	fs       *fs.FileSystem
	required []string
}

func (g *siteGenerator) Generate(_ context.Context) error {
	for _, path := range g.required {
		if !g.fs.FileExists(path) {
			return fmt.Errorf("asset %s missing at generation time", path)
		}
	}
	if err := g.fs.WriteFile("public/index.html", []byte("<html><body>home</body></html>")); err != nil {
		return err
	}
	return g.fs.WriteFile("public/sitemap.xml", []byte("<urlset><url>/</url></urlset>"))
}

// recordingPublisher keeps every event it receives.
type recordingPublisher struct {
	mu      sync.Mutex
	started []StepType
	results []StepResult
	errors  map[StepType]error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{errors: make(map[StepType]error)}
}

func (p *recordingPublisher) StepStarted(step StepType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, step)
}

func (p *recordingPublisher) PublishStep(result StepResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, result)
}

func (p *recordingPublisher) Error(step StepType, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors[step] = err
}

var sourceTree = map[string]string{
	"src/css/site.css":        "body { color: red }",
	"src/css/print/print.css": "@media print { a { color: black } }",
	"src/scss/main.scss":      "$c: blue; a { color: $c }",
	"src/scss/_vars.scss":     "$c: blue;",
	"src/js/app.js":           "console.log('hello')",
	"src/fonts/serif.ttf":     "ttf-bytes",
	"src/images/logo.png":     "png-bytes",
	"src/favicon.ico":         "ico-bytes",
}

// builtAssets are the stage 1 outputs for sourceTree.
var builtAssets = []string{
	"static/assets/css/site.css",
	"static/assets/css/print/print.css",
	"static/assets/css/main.css",
	"static/assets/js/app.js",
	"static/assets/fonts/serif.ttf",
	"static/assets/images/logo.png",
	"static/favicon.ico",
}

func seed(t *testing.T, fsys *fs.FileSystem, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, fsys.WriteFile(path, []byte(content)))
	}
}

func newTestState(fsys *fs.FileSystem, tools Toolchain) *State {
	return &State{FS: fsys, Tools: tools, Logger: logger.NewNullLogger()}
}

func defaultTestGraph(t *testing.T, mutate ...func(*config.Config)) *Graph {
	t.Helper()
	cfg := config.DefaultConfig()
	for _, m := range mutate {
		m(cfg)
	}
	g, err := NewDefaultGraph(cfg)
	require.NoError(t, err)
	return g
}

// readTree maps every regular file below root, by slash-separated relative
// path, to its content. A missing root yields an empty map.
func readTree(t *testing.T, fsys *fs.FileSystem, root string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := afero.Walk(fsys.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(fsys.Fs, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func isEmptyDir(fsys *fs.FileSystem, dir string) bool {
	empty, err := afero.IsEmpty(fsys.Fs, dir)
	return err == nil && empty && fsys.IsDir(dir)
}
