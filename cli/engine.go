package cli

import (
	"context"
	"fmt"

	"github.com/santiagomed/assetpipe/config"
	"github.com/santiagomed/assetpipe/core"
	"github.com/santiagomed/assetpipe/fs"
	"github.com/santiagomed/assetpipe/logger"
	"github.com/santiagomed/assetpipe/toolchain"
)

// Engine wires configuration, filesystem and external tools into runnable
// pipelines over the project root.
type Engine struct {
	cfg    *config.Config
	graph  *core.Graph
	state  *core.State
	logger logger.Logger
}

func NewEngine(cfg *config.Config, l logger.Logger) (*Engine, error) {
	if l == nil {
		l = logger.NewNullLogger()
	}

	graph, err := core.NewDefaultGraph(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build task graph: %w", err)
	}

	tools := make(map[string]config.Tool)
	for _, name := range []string{config.ToolMinify, config.ToolSassc, config.ToolHugo} {
		tool, err := cfg.Tool(name)
		if err != nil {
			return nil, err
		}
		tools[name] = tool
	}

	exec := toolchain.NewExecutor(cfg.Root, cfg.ToolTimeout, l.WithField("component", "toolchain"))
	state := &core.State{
		FS: fs.NewOsFileSystem(cfg.Root),
		Tools: core.Toolchain{
			Minifier:  newMinifier(exec, tools[config.ToolMinify]),
			Compiler:  toolchain.NewSassCompiler(exec, tools[config.ToolSassc]),
			Generator: toolchain.NewHugoGenerator(exec, tools[config.ToolHugo]),
		},
		Logger: l,
	}

	return &Engine{cfg: cfg, graph: graph, state: state, logger: l}, nil
}

// newMinifier runs minification in process when the tool path is "builtin"
// and through the configured executable otherwise.
func newMinifier(exec *toolchain.Executor, tool config.Tool) core.Minifier {
	if tool.Path == toolchain.BuiltinPath {
		return toolchain.NewBuiltinMinifier()
	}
	return toolchain.NewExecMinifier(exec, tool)
}

// Graph returns the full task graph.
func (e *Engine) Graph() *core.Graph {
	return e.graph
}

// Plan returns the graph restricted to steps, or the full graph when no
// steps are named.
func (e *Engine) Plan(steps ...core.StepType) (*core.Graph, error) {
	if len(steps) == 0 {
		return e.graph, nil
	}
	return e.graph.Select(steps...)
}

// Run executes the planned graph for steps and publishes progress to pub.
func (e *Engine) Run(ctx context.Context, pub core.StepPublisher, steps ...core.StepType) (*core.Report, error) {
	g, err := e.Plan(steps...)
	if err != nil {
		return nil, err
	}
	e.logger.Debug(fmt.Sprintf("Running steps %v from %s", g.Steps(), e.cfg.Root))

	pipeline := core.NewPipeline(g, e.state, pub)
	pipeline.SetConcurrency(e.cfg.Concurrency)
	return pipeline.Execute(ctx)
}
