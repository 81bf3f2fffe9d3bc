package toolchain

import (
	"context"

	"github.com/santiagomed/assetpipe/config"
)

// SassCompiler compiles one SCSS file per call with
// `<path> [args] -m -t compressed <src> <dst>`. The compiler writes dst and
// its source map itself.
type SassCompiler struct {
	exec *Executor
	tool config.Tool
}

func NewSassCompiler(e *Executor, tool config.Tool) *SassCompiler {
	return &SassCompiler{exec: e, tool: tool}
}

func (s *SassCompiler) Compile(ctx context.Context, src, dst string) error {
	args := append(append([]string{}, s.tool.Args...), "-m", "-t", "compressed", src, dst)
	_, err := s.exec.Run(ctx, Command{
		Tool: config.ToolSassc,
		Path: s.tool.Path,
		Args: args,
	})
	return err
}
