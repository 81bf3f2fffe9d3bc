package toolchain

import (
	"context"
	"fmt"
	"regexp"

	"github.com/santiagomed/assetpipe/config"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/xml"
)

// BuiltinPath selects the in-process minifier instead of an executable.
const BuiltinPath = "builtin"

// ExecMinifier pipes content through an external minifier invoked as
// `<path> [args] --type <type>`, reading stdin and writing stdout.
type ExecMinifier struct {
	exec *Executor
	tool config.Tool
}

func NewExecMinifier(e *Executor, tool config.Tool) *ExecMinifier {
	return &ExecMinifier{exec: e, tool: tool}
}

func (m *ExecMinifier) Minify(ctx context.Context, contentType string, src []byte) ([]byte, error) {
	args := append(append([]string{}, m.tool.Args...), "--type", contentType)
	res, err := m.exec.Run(ctx, Command{
		Tool:  config.ToolMinify,
		Path:  m.tool.Path,
		Args:  args,
		Stdin: src,
	})
	if err != nil {
		return nil, err
	}
	return res.Stdout, nil
}

// mediaTypes maps the minifier's --type values to MIME types.
var mediaTypes = map[string]string{
	"css":  "text/css",
	"js":   "application/javascript",
	"html": "text/html",
	"xml":  "text/xml",
}

// BuiltinMinifier minifies in process with tdewolff/minify.
type BuiltinMinifier struct {
	m *minify.M
}

func NewBuiltinMinifier() *BuiltinMinifier {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	m.AddFuncRegexp(regexp.MustCompile("[/+]xml$"), xml.Minify)
	return &BuiltinMinifier{m: m}
}

func (b *BuiltinMinifier) Minify(_ context.Context, contentType string, src []byte) ([]byte, error) {
	mediaType, ok := mediaTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("builtin minifier: unsupported type %q", contentType)
	}
	out, err := b.m.Bytes(mediaType, src)
	if err != nil {
		return nil, fmt.Errorf("builtin minifier: %w", err)
	}
	return out, nil
}
