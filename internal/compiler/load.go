package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/Frost/edeliver/internal/ir"
)

// LoadFile compiles every pipeline defined in a single CUE file.
func LoadFile(path string) ([]*ir.PipelineSpec, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	ctx := cuecontext.New()
	return CompilePipelines(ctx.CompileBytes(src, cue.Filename(path)))
}

// Select picks the pipeline called name. An empty name selects the only
// pipeline, and is an error when there are several.
func Select(specs []*ir.PipelineSpec, name string) (*ir.PipelineSpec, error) {
	if name == "" {
		if len(specs) == 1 {
			return specs[0], nil
		}
		names := make([]string, len(specs))
		for i, s := range specs {
			names[i] = s.Name
		}
		return nil, fmt.Errorf("%d pipelines defined %v, select one by name", len(specs), names)
	}
	for _, s := range specs {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("pipeline %q not defined", name)
}
