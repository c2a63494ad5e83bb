package compiler

import (
	"encoding/json"
	"fmt"
	"strconv"

	"cuelang.org/go/cue"

	"github.com/Frost/edeliver/internal/ir"
)

// CompilePipeline parses a CUE value into a PipelineSpec.
//
// The value is the pipeline struct itself:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`pipeline: { name: "up", steps: [{use: "soft_purge"}] }`)
//	spec, err := CompilePipeline(v.LookupPath(cue.ParsePath("pipeline")))
//
// If name is omitted, the struct's label is used.
func CompilePipeline(v cue.Value) (*ir.PipelineSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.PipelineSpec{}

	name, err := optionalString(v, "name")
	if err != nil {
		return nil, err
	}
	if name == "" {
		if sels := v.Path().Selectors(); len(sels) > 0 {
			name = sels[len(sels)-1].String()
			if u, err := strconv.Unquote(name); err == nil {
				name = u
			}
		}
	}
	if name == "" {
		return nil, &CompileError{Field: "name", Message: "pipeline name is required", Pos: v.Pos()}
	}
	spec.Name = name

	if spec.Release, err = optionalString(v, "release"); err != nil {
		return nil, err
	}
	if spec.FromVersion, err = optionalString(v, "from_version"); err != nil {
		return nil, err
	}
	if spec.ToVersion, err = optionalString(v, "to_version"); err != nil {
		return nil, err
	}

	stepsVal := v.LookupPath(cue.ParsePath("steps"))
	if !stepsVal.Exists() {
		return nil, &CompileError{Field: "steps", Message: "steps is required", Pos: v.Pos()}
	}
	iter, err := stepsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		step, err := parseStep(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		spec.Steps = append(spec.Steps, step)
	}
	if len(spec.Steps) == 0 {
		return nil, &CompileError{Field: "steps", Message: "at least one step is required", Pos: stepsVal.Pos()}
	}

	return spec, nil
}

// CompilePipelines compiles every pipeline of a file: the single struct at
// "pipeline", or each field of the "pipelines" struct in declaration order.
func CompilePipelines(root cue.Value) ([]*ir.PipelineSpec, error) {
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var specs []*ir.PipelineSpec
	if single := root.LookupPath(cue.ParsePath("pipeline")); single.Exists() {
		spec, err := CompilePipeline(single)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if many := root.LookupPath(cue.ParsePath("pipelines")); many.Exists() {
		iter, err := many.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			spec, err := CompilePipeline(iter.Value())
			if err != nil {
				return nil, err
			}
			specs = append(specs, spec)
		}
	}

	if len(specs) == 0 {
		return nil, &CompileError{Field: "pipeline", Message: "no pipeline or pipelines defined", Pos: root.Pos()}
	}
	return specs, nil
}

// parseStep parses one element of steps.
func parseStep(v cue.Value, idx int) (ir.StepSpec, error) {
	field := fmt.Sprintf("steps[%d]", idx)
	var step ir.StepSpec

	useVal := v.LookupPath(cue.ParsePath("use"))
	if !useVal.Exists() {
		return step, &CompileError{Field: field + ".use", Message: "use is required", Pos: v.Pos()}
	}
	use, err := useVal.String()
	if err != nil {
		return step, formatCUEError(err)
	}
	step.Use = use

	if optsVal := v.LookupPath(cue.ParsePath("options")); optsVal.Exists() {
		step.Options, err = parseOptions(optsVal, field+".options")
		if err != nil {
			return step, err
		}
	}

	if step.Up, err = parseSequence(v, "up", field); err != nil {
		return step, err
	}
	if step.Down, err = parseSequence(v, "down", field); err != nil {
		return step, err
	}
	return step, nil
}

// parseOptions flattens an options struct to strings. Scalars are rendered
// in their plain form; lists and structs as JSON text, so that a unit can
// decode structured options such as runnable args.
// Floats are forbidden.
func parseOptions(v cue.Value, field string) (map[string]string, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	opts := make(map[string]string)
	for iter.Next() {
		name := iter.Label()
		val := iter.Value()
		path := field + "." + name

		if !val.IsConcrete() {
			return nil, &CompileError{Field: path, Message: "option value must be concrete", Pos: val.Pos()}
		}

		switch val.Kind() {
		case cue.StringKind:
			s, err := val.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			opts[name] = s
		case cue.IntKind:
			n, err := val.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			opts[name] = strconv.FormatInt(n, 10)
		case cue.BoolKind:
			b, err := val.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			opts[name] = strconv.FormatBool(b)
		case cue.ListKind, cue.StructKind:
			data, err := val.MarshalJSON()
			if err != nil {
				return nil, formatCUEError(err)
			}
			opts[name] = string(data)
		case cue.FloatKind:
			return nil, &CompileError{Field: path, Message: "float values are forbidden - use int instead", Pos: val.Pos()}
		default:
			return nil, &CompileError{Field: path, Message: fmt.Sprintf("unsupported option kind: %v", val.Kind()), Pos: val.Pos()}
		}
	}
	return opts, nil
}

// parseSequence decodes an optional instruction list through the ir JSON
// codec.
func parseSequence(v cue.Value, name, field string) (ir.Sequence, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return nil, nil
	}
	if _, err := val.List(); err != nil {
		return nil, &CompileError{Field: field + "." + name, Message: "must be a list of instructions", Pos: val.Pos()}
	}

	data, err := val.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var s ir.Sequence
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &CompileError{Field: field + "." + name, Message: err.Error(), Pos: val.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}
