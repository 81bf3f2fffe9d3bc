package core

import (
	"fmt"
	"path/filepath"

	"github.com/santiagomed/assetpipe/config"
	"github.com/santiagomed/assetpipe/fs"
)

// Stage names of the default graph.
const (
	StageClean       = "clean"
	StageAssets      = "assets"
	StageGenerate    = "generate"
	StagePostProcess = "postprocess"
	StagePackage     = "package"
)

// Stage is a set of steps with no defined relative order. Every step of a
// stage finishes before the next stage starts.
type Stage struct {
	Name  string
	Steps []Step
}

// Graph is the ordered list of stages for one invocation.
type Graph struct {
	Stages   []Stage
	optional map[StepType]bool
}

func NewGraph(stages ...Stage) (*Graph, error) {
	g := &Graph{Stages: stages, optional: make(map[StepType]bool)}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate rejects empty stages and steps that appear more than once.
func (g *Graph) Validate() error {
	seen := make(map[StepType]string)
	for _, stage := range g.Stages {
		if len(stage.Steps) == 0 {
			return fmt.Errorf("stage %q has no steps", stage.Name)
		}
		for _, step := range stage.Steps {
			if prev, ok := seen[step.Type()]; ok {
				return fmt.Errorf("step %s appears in stage %q and stage %q", step.Type(), prev, stage.Name)
			}
			seen[step.Type()] = stage.Name
		}
	}
	return nil
}

// SetOptional marks steps whose missing sources only warrant a warning.
func (g *Graph) SetOptional(types ...StepType) {
	for _, t := range types {
		g.optional[t] = true
	}
}

func (g *Graph) IsOptional(t StepType) bool {
	return g.optional[t]
}

// Steps lists the step types in stage order.
func (g *Graph) Steps() []StepType {
	var types []StepType
	for _, stage := range g.Stages {
		for _, step := range stage.Steps {
			types = append(types, step.Type())
		}
	}
	return types
}

// Select returns the subgraph holding only the named steps, keeping stage
// order and dropping stages left empty.
func (g *Graph) Select(types ...StepType) (*Graph, error) {
	want := make(map[StepType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	sub := &Graph{optional: g.optional}
	for _, stage := range g.Stages {
		var steps []Step
		for _, step := range stage.Steps {
			if want[step.Type()] {
				steps = append(steps, step)
				delete(want, step.Type())
			}
		}
		if len(steps) > 0 {
			sub.Stages = append(sub.Stages, Stage{Name: stage.Name, Steps: steps})
		}
	}

	for _, t := range types {
		if want[t] {
			return nil, fmt.Errorf("step %s is not part of the build graph", t)
		}
	}
	return sub, nil
}

// NewDefaultGraph builds the asset pipeline described by cfg:
//
//	clean -> {css, scss, js, fonts, images, favicon} -> generate -> {html, xml} -> archive
//
// The post-process stage is present when cfg.PostProcess is set and the
// package stage when cfg.Archive.Path is set.
func NewDefaultGraph(cfg *config.Config) (*Graph, error) {
	src := cfg.SourceDir
	assets := cfg.AssetsDir()
	public := config.PublicDir

	cssDir := filepath.Join(assets, "css")
	jsDir := filepath.Join(assets, "js")
	fontsDir := filepath.Join(assets, "fonts")
	imagesDir := filepath.Join(assets, "images")

	stages := []Stage{
		{Name: StageClean, Steps: []Step{
			&CleanStep{
				Targets:  []string{assets, public},
				Keep:     cfg.Clean.Keep,
				Recreate: []string{cssDir, jsDir, fontsDir, imagesDir},
			},
		}},
		{Name: StageAssets, Steps: []Step{
			&TransformStep{
				Name:        CSS,
				ContentType: "css",
				Source:      fs.Selector{Base: filepath.Join(src, "css"), Include: []string{"**/*.css"}},
				Dest:        cssDir,
			},
			&CompileStep{
				Name: SCSS,
				Source: fs.Selector{
					Base:    filepath.Join(src, "scss"),
					Include: []string{"**/*.scss"},
					Exclude: []string{"**/_*.scss"},
				},
				Dest: cssDir,
			},
			&TransformStep{
				Name:        JS,
				ContentType: "js",
				Source:      fs.Selector{Base: filepath.Join(src, "js"), Include: []string{"**/*.js"}},
				Dest:        jsDir,
			},
			&CopyStep{
				Name:   Fonts,
				Source: fs.Selector{Base: filepath.Join(src, "fonts"), Include: []string{"**/*.otf", "**/*.ttf"}},
				Dest:   fontsDir,
			},
			&CopyStep{
				Name:   Images,
				Source: fs.Selector{Base: filepath.Join(src, "images"), Include: []string{"**/*.jpg", "**/*.png", "**/*.svg"}},
				Dest:   imagesDir,
			},
			&CopyStep{
				Name:   Favicon,
				Source: fs.Selector{Base: src, Include: []string{"favicon.ico"}},
				Dest:   config.StaticDir,
			},
		}},
		{Name: StageGenerate, Steps: []Step{&GenerateStep{}}},
	}

	if cfg.PostProcess {
		stages = append(stages, Stage{Name: StagePostProcess, Steps: []Step{
			&TransformStep{
				Name:        HTML,
				ContentType: "html",
				Source:      fs.Selector{Base: public, Include: []string{"**/*.html"}},
				Dest:        public,
			},
			&TransformStep{
				Name:        XML,
				ContentType: "xml",
				Source:      fs.Selector{Base: public, Include: []string{"**/*.xml"}},
				Dest:        public,
			},
		}})
	}

	if cfg.Archive.Path != "" {
		stages = append(stages, Stage{Name: StagePackage, Steps: []Step{
			&ArchiveStep{Source: public, Path: cfg.Archive.Path},
		}})
	}

	g, err := NewGraph(stages...)
	if err != nil {
		return nil, err
	}
	for _, name := range cfg.OptionalSteps {
		t, err := ParseStepType(name)
		if err != nil {
			return nil, fmt.Errorf("optional_steps: %w", err)
		}
		g.SetOptional(t)
	}
	return g, nil
}
