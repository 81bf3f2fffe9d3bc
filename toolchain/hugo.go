package toolchain

import (
	"context"

	"github.com/santiagomed/assetpipe/config"
)

// HugoGenerator runs the static-site generator once with its configured flags.
type HugoGenerator struct {
	exec *Executor
	tool config.Tool
}

func NewHugoGenerator(e *Executor, tool config.Tool) *HugoGenerator {
	return &HugoGenerator{exec: e, tool: tool}
}

func (h *HugoGenerator) Generate(ctx context.Context) error {
	res, err := h.exec.Run(ctx, Command{
		Tool: config.ToolHugo,
		Path: h.tool.Path,
		Args: append([]string{}, h.tool.Args...),
	})
	if err != nil {
		return err
	}
	if len(res.Stdout) > 0 {
		h.exec.Logger.Debug(string(res.Stdout))
	}
	return nil
}
