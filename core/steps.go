package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/santiagomed/assetpipe/fs"
)

// CleanStep removes prior build output and recreates the empty asset
// directories later steps write into.
type CleanStep struct {
	Targets  []string
	Keep     []string
	Recreate []string
}

func (s *CleanStep) Type() StepType { return Clean }
func (s *CleanStep) Kind() Kind     { return KindCleanup }

func (s *CleanStep) Execute(ctx context.Context, state *State) error {
	for _, target := range s.Targets {
		state.Logger.Debug(fmt.Sprintf("Removing %s", target))
		if err := state.FS.RemoveTree(target, s.Keep); err != nil {
			return &StepError{Step: Clean, Kind: ErrDirectoryClean, Path: target, Err: err}
		}
	}
	for _, dir := range s.Recreate {
		if err := state.FS.EnsureDir(dir); err != nil {
			return &StepError{Step: Clean, Kind: ErrDirectoryClean, Path: dir, Err: err}
		}
	}
	state.Logger.Info(fmt.Sprintf("Cleaned %s", strings.Join(s.Targets, ", ")))
	return nil
}

// CopyStep copies matched sources verbatim, preserving their paths relative
// to the selector base.
type CopyStep struct {
	Name   StepType
	Source fs.Selector
	Dest   string
}

func (s *CopyStep) Type() StepType { return s.Name }
func (s *CopyStep) Kind() Kind     { return KindCopy }

func (s *CopyStep) Execute(ctx context.Context, state *State) error {
	files, err := matchSources(s.Name, ErrCopy, s.Source, state)
	if err != nil {
		return err
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := filepath.Join(s.Source.Base, rel)
		if err := state.FS.CopyFile(src, filepath.Join(s.Dest, rel)); err != nil {
			return &StepError{Step: s.Name, Kind: ErrCopy, Path: src, Err: err}
		}
	}
	state.Logger.Info(fmt.Sprintf("Copied %d files to %s", len(files), s.Dest))
	return nil
}

// TransformStep pipes each matched file through the minifier and writes the
// result to Dest at the same relative path. Dest may equal the source base to
// rewrite files in place.
type TransformStep struct {
	Name        StepType
	ContentType string
	Source      fs.Selector
	Dest        string
}

func (s *TransformStep) Type() StepType { return s.Name }
func (s *TransformStep) Kind() Kind     { return KindTransform }

func (s *TransformStep) Execute(ctx context.Context, state *State) error {
	files, err := matchSources(s.Name, ErrTransform, s.Source, state)
	if err != nil {
		return err
	}
	for _, rel := range files {
		src := filepath.Join(s.Source.Base, rel)
		data, err := state.FS.ReadFile(src)
		if err != nil {
			return &StepError{Step: s.Name, Kind: ErrTransform, Path: src, Err: err}
		}
		out, err := state.Tools.Minifier.Minify(ctx, s.ContentType, data)
		if err != nil {
			return &StepError{Step: s.Name, Kind: ErrTransform, Path: src, Err: err}
		}
		if err := state.FS.WriteFile(filepath.Join(s.Dest, rel), out); err != nil {
			return &StepError{Step: s.Name, Kind: ErrTransform, Path: src, Err: err}
		}
		state.Logger.Debug(fmt.Sprintf("Minified %s (%d -> %d bytes)", src, len(data), len(out)))
	}
	state.Logger.Info(fmt.Sprintf("Minified %d %s files into %s", len(files), s.ContentType, s.Dest))
	return nil
}

// CompileStep hands each matched SCSS file to the compiler, which writes the
// CSS output itself at Dest with the extension changed to .css.
type CompileStep struct {
	Name   StepType
	Source fs.Selector
	Dest   string
}

func (s *CompileStep) Type() StepType { return s.Name }
func (s *CompileStep) Kind() Kind     { return KindCompile }

func (s *CompileStep) Execute(ctx context.Context, state *State) error {
	files, err := matchSources(s.Name, ErrCompile, s.Source, state)
	if err != nil {
		return err
	}
	for _, rel := range files {
		src := filepath.Join(s.Source.Base, rel)
		dst := filepath.Join(s.Dest, strings.TrimSuffix(rel, filepath.Ext(rel))+".css")
		if err := state.FS.EnsureDir(filepath.Dir(dst)); err != nil {
			return &StepError{Step: s.Name, Kind: ErrCompile, Path: src, Err: err}
		}
		if err := state.Tools.Compiler.Compile(ctx, src, dst); err != nil {
			return &StepError{Step: s.Name, Kind: ErrCompile, Path: src, Err: err}
		}
		state.Logger.Debug(fmt.Sprintf("Compiled %s to %s", src, dst))
	}
	state.Logger.Info(fmt.Sprintf("Compiled %d stylesheets into %s", len(files), s.Dest))
	return nil
}

// GenerateStep invokes the site generator once.
type GenerateStep struct{}

func (s *GenerateStep) Type() StepType { return Generate }
func (s *GenerateStep) Kind() Kind     { return KindGenerate }

func (s *GenerateStep) Execute(ctx context.Context, state *State) error {
	if err := state.Tools.Generator.Generate(ctx); err != nil {
		return &StepError{Step: Generate, Kind: ErrGeneration, Err: err}
	}
	state.Logger.Info("Site generated")
	return nil
}

// ArchiveStep zips the generated site into a single deployable file.
type ArchiveStep struct {
	Source string
	Path   string
}

func (s *ArchiveStep) Type() StepType { return Archive }
func (s *ArchiveStep) Kind() Kind     { return KindPackage }

func (s *ArchiveStep) Execute(ctx context.Context, state *State) error {
	count, err := state.FS.WriteToZip(s.Source, s.Path)
	if err != nil {
		return &StepError{Step: Archive, Kind: ErrPackage, Path: s.Path, Err: err}
	}
	state.Logger.Info(fmt.Sprintf("Archived %d files into %s", count, s.Path))
	return nil
}

func matchSources(step StepType, kind error, sel fs.Selector, state *State) ([]string, error) {
	files, err := state.FS.Match(sel)
	if err != nil {
		return nil, &StepError{Step: step, Kind: kind, Path: sel.String(), Err: err}
	}
	if len(files) == 0 {
		return nil, &StepError{Step: step, Kind: ErrSourceNotFound, Path: sel.String()}
	}
	return files, nil
}
