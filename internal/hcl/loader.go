package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/cmdgrid/internal/config"
	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges the blocks into a
// single model. Parameters and commands must be unique across all files, and
// at most one `phases` block may exist.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	origins := make(map[string]string)
	claim := func(kind, name, file string) error {
		key := kind + " " + name
		if prev, ok := origins[key]; ok {
			return fmt.Errorf("%s '%s' is defined in both %s and %s", kind, name, prev, file)
		}
		origins[key] = file
		return nil
	}

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		tr := &translator{src: hclFile.Bytes, file: file}

		for _, p := range root.Phases {
			if model.Phases != nil {
				return nil, nil, fmt.Errorf("duplicate phases block in %s", file)
			}
			model.Phases = &config.Phases{Order: p.Order, Default: p.Default}
		}
		for _, p := range root.Parameters {
			if err := claim("parameter", p.Name, file); err != nil {
				return nil, nil, err
			}
			param, err := tr.parameter(p)
			if err != nil {
				return nil, nil, err
			}
			model.Parameters = append(model.Parameters, param)
		}
		for _, c := range root.Commands {
			cmd, err := tr.command(c)
			if err != nil {
				return nil, nil, err
			}
			for _, name := range commandNames(cmd) {
				if err := claim("command", name, file); err != nil {
					return nil, nil, err
				}
			}
			model.Commands = append(model.Commands, cmd)
		}
	}

	logger.Debug("HCL loading complete.", "parameters", len(model.Parameters), "commands", len(model.Commands))
	return model, NewConverter(), nil
}

// commandNames returns the name of cmd followed by the names of every inline
// command nested in its cycle.
func commandNames(cmd *config.Command) []string {
	names := []string{cmd.Name}
	if cmd.Cycle != nil {
		for _, inline := range cmd.Cycle.Inline {
			names = append(names, commandNames(inline)...)
		}
	}
	return names
}
