package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/santiagomed/assetpipe/fs"
	"github.com/santiagomed/assetpipe/logger"
)

type StepType int

const (
	Clean StepType = iota
	CSS
	SCSS
	JS
	Fonts
	Images
	Favicon
	Generate
	HTML
	XML
	Archive
)

var stepNames = [...]string{
	Clean:    "clean",
	CSS:      "css",
	SCSS:     "scss",
	JS:       "js",
	Fonts:    "fonts",
	Images:   "images",
	Favicon:  "favicon",
	Generate: "generate",
	HTML:     "html",
	XML:      "xml",
	Archive:  "archive",
}

// stepAliases are alternative names accepted by ParseStepType.
var stepAliases = map[string]StepType{
	"hugo": Generate,
}

func (t StepType) String() string {
	if t < 0 || int(t) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(t))
	}
	return stepNames[t]
}

// AllStepTypes lists every step in declaration order.
func AllStepTypes() []StepType {
	types := make([]StepType, len(stepNames))
	for i := range stepNames {
		types[i] = StepType(i)
	}
	return types
}

// ParseStepType resolves a step name or alias.
func ParseStepType(name string) (StepType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range stepNames {
		if n == name {
			return StepType(i), nil
		}
	}
	if t, ok := stepAliases[name]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// Kind classifies how a step produces its output.
type Kind int

const (
	KindCleanup Kind = iota
	KindCopy
	KindTransform
	KindCompile
	KindGenerate
	KindPackage
)

func (k Kind) String() string {
	switch k {
	case KindCleanup:
		return "cleanup"
	case KindCopy:
		return "copy"
	case KindTransform:
		return "transform"
	case KindCompile:
		return "compile"
	case KindGenerate:
		return "generate"
	case KindPackage:
		return "package"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Step is one named, immutable build action.
type Step interface {
	Type() StepType
	Kind() Kind
	Execute(ctx context.Context, state *State) error
}

// Minifier rewrites content of the given type (css, js, html or xml).
type Minifier interface {
	Minify(ctx context.Context, contentType string, src []byte) ([]byte, error)
}

// Compiler compiles the SCSS file src into dst, writing dst itself.
type Compiler interface {
	Compile(ctx context.Context, src, dst string) error
}

// Generator materializes the site output from the asset tree.
type Generator interface {
	Generate(ctx context.Context) error
}

// Toolchain bundles the external collaborators steps delegate to.
type Toolchain struct {
	Minifier  Minifier
	Compiler  Compiler
	Generator Generator
}

// State is shared by every step of a run. Steps only share the filesystem;
// the rest is read-only.
type State struct {
	FS     *fs.FileSystem
	Tools  Toolchain
	Logger logger.Logger
}
