package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Op names used as the "op" discriminator of the JSON form.
const (
	OpPointOfNoReturn    = "point_of_no_return"
	OpLoadModule         = "load_module"
	OpAddModule          = "add_module"
	OpLoad               = "load"
	OpRemove             = "remove"
	OpPurge              = "purge"
	OpDeleteModule       = "delete_module"
	OpUpdate             = "update"
	OpCodeChange         = "code_change"
	OpStart              = "start"
	OpStop               = "stop"
	OpAddApplication     = "add_application"
	OpRemoveApplication  = "remove_application"
	OpRestartApplication = "restart_application"
	OpRestartEmulator    = "restart_emulator"
	OpRestartNewEmulator = "restart_new_emulator"
	OpApply              = "apply"
)

// opFields lists the fields each modeled op may carry besides "op".
// Any other op is opaque and may carry only "args".
var opFields = map[string][]string{
	OpPointOfNoReturn:    nil,
	OpLoadModule:         {"module", "pre_purge", "post_purge", "dep_mods"},
	OpAddModule:          {"module", "dep_mods"},
	OpLoad:               {"module", "pre_purge", "post_purge"},
	OpRemove:             {"module", "pre_purge", "post_purge"},
	OpPurge:              {"modules"},
	OpDeleteModule:       {"module", "dep_mods"},
	OpUpdate:             {"module", "change", "pre_purge", "post_purge", "dep_mods"},
	OpCodeChange:         {"mode", "changes"},
	OpStart:              {"modules"},
	OpStop:               {"modules"},
	OpAddApplication:     {"application", "type"},
	OpRemoveApplication:  {"application"},
	OpRestartApplication: {"application"},
	OpRestartEmulator:    nil,
	OpRestartNewEmulator: nil,
	OpApply:              {"module", "function", "args"},
}

var opaqueFields = []string{"args"}

// IsModeledOp reports whether name is the op of a modeled instruction.
func IsModeledOp(name string) bool {
	_, ok := opFields[name]
	return ok
}

// wireInstruction is the decoding shape of every instruction object.
// Fields not used by an op must be absent; UnmarshalInstruction rejects them.
type wireInstruction struct {
	Op          string            `json:"op"`
	Module      string            `json:"module,omitempty"`
	Modules     []string          `json:"modules,omitempty"`
	DepMods     []string          `json:"dep_mods,omitempty"`
	PrePurge    PurgeMode         `json:"pre_purge,omitempty"`
	PostPurge   PurgeMode         `json:"post_purge,omitempty"`
	Change      json.RawMessage   `json:"change,omitempty"`
	Changes     []wireModuleExtra `json:"changes,omitempty"`
	Mode        string            `json:"mode,omitempty"`
	Application string            `json:"application,omitempty"`
	Type        string            `json:"type,omitempty"`
	Function    string            `json:"function,omitempty"`
	Args        json.RawMessage   `json:"args,omitempty"`
}

type wireModuleExtra struct {
	Module string          `json:"module"`
	Extra  json.RawMessage `json:"extra,omitempty"`
}

// MarshalInstruction encodes a single instruction as a JSON object.
func MarshalInstruction(i Instruction) ([]byte, error) {
	n, err := instructionNode(i)
	if err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

// instructionNode converts an instruction to its JSON node form.
// Empty optional fields are omitted so nil and empty slices encode alike.
func instructionNode(i Instruction) (map[string]any, error) {
	n := map[string]any{}
	put := func(key string, v string) {
		if v != "" {
			n[key] = v
		}
	}
	putList := func(key string, v []string) {
		if len(v) > 0 {
			n[key] = stringNodes(v)
		}
	}
	putPurge := func(pre, post PurgeMode) {
		put("pre_purge", string(pre))
		put("post_purge", string(post))
	}

	switch v := i.(type) {
	case PointOfNoReturn:
		n["op"] = OpPointOfNoReturn
	case LoadModule:
		n["op"] = OpLoadModule
		n["module"] = v.Module
		putPurge(v.PrePurge, v.PostPurge)
		putList("dep_mods", v.DepMods)
	case AddModule:
		n["op"] = OpAddModule
		n["module"] = v.Module
		putList("dep_mods", v.DepMods)
	case Load:
		n["op"] = OpLoad
		n["module"] = v.Module
		putPurge(v.PrePurge, v.PostPurge)
	case Remove:
		n["op"] = OpRemove
		n["module"] = v.Module
		putPurge(v.PrePurge, v.PostPurge)
	case Purge:
		n["op"] = OpPurge
		n["modules"] = stringNodes(v.Modules)
	case DeleteModule:
		n["op"] = OpDeleteModule
		n["module"] = v.Module
		putList("dep_mods", v.DepMods)
	case Update:
		n["op"] = OpUpdate
		n["module"] = v.Module
		if v.Change != nil {
			c, err := termNode(v.Change)
			if err != nil {
				return nil, fmt.Errorf("update change: %w", err)
			}
			n["change"] = c
		}
		putPurge(v.PrePurge, v.PostPurge)
		putList("dep_mods", v.DepMods)
	case CodeChange:
		n["op"] = OpCodeChange
		put("mode", v.Mode)
		changes := make([]any, len(v.Modules))
		for idx, me := range v.Modules {
			c := map[string]any{"module": me.Module}
			if me.Extra != nil {
				extra, err := termNode(me.Extra)
				if err != nil {
					return nil, fmt.Errorf("code_change extra for %s: %w", me.Module, err)
				}
				c["extra"] = extra
			}
			changes[idx] = c
		}
		n["changes"] = changes
	case Start:
		n["op"] = OpStart
		n["modules"] = stringNodes(v.Modules)
	case Stop:
		n["op"] = OpStop
		n["modules"] = stringNodes(v.Modules)
	case AddApplication:
		n["op"] = OpAddApplication
		n["application"] = v.Application
		put("type", v.Type)
	case RemoveApplication:
		n["op"] = OpRemoveApplication
		n["application"] = v.Application
	case RestartApplication:
		n["op"] = OpRestartApplication
		n["application"] = v.Application
	case RestartEmulator:
		n["op"] = OpRestartEmulator
	case RestartNewEmulator:
		n["op"] = OpRestartNewEmulator
	case Apply:
		n["op"] = OpApply
		n["module"] = v.Module
		n["function"] = v.Function
		args, err := termNodes(v.Args)
		if err != nil {
			return nil, fmt.Errorf("apply args: %w", err)
		}
		n["args"] = args
	case Opaque:
		if v.Name == "" {
			return nil, fmt.Errorf("opaque instruction without a name")
		}
		if IsModeledOp(v.Name) {
			return nil, fmt.Errorf("opaque instruction %q shadows a modeled op", v.Name)
		}
		n["op"] = v.Name
		if len(v.Args) > 0 {
			args, err := termNodes(v.Args)
			if err != nil {
				return nil, fmt.Errorf("%s args: %w", v.Name, err)
			}
			n["args"] = args
		}
	case nil:
		return nil, fmt.Errorf("nil instruction")
	default:
		if reflect.ValueOf(i).Kind() == reflect.Pointer {
			return nil, fmt.Errorf("instruction %T must be a value, not a pointer", i)
		}
		return nil, fmt.Errorf("unsupported instruction type: %T", i)
	}
	return n, nil
}

// checkFields rejects fields the op does not use.
func checkFields(op string, present map[string]json.RawMessage) error {
	allowed, modeled := opFields[op]
	if !modeled {
		allowed = opaqueFields
	}
	var extra []string
	for k := range present {
		if k != "op" && !slices.Contains(allowed, k) {
			extra = append(extra, k)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	slices.Sort(extra)
	if !modeled {
		return fmt.Errorf("%s: opaque instructions carry only \"args\", got %s", op, strings.Join(extra, ", "))
	}
	return fmt.Errorf("%s: unexpected field %s", op, strings.Join(extra, ", "))
}

func stringNodes(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// UnmarshalInstruction decodes a JSON instruction object.
// Unknown op names decode to Opaque, which may carry only "args". Unknown
// fields, and fields the op does not use, are rejected.
func UnmarshalInstruction(data []byte) (Instruction, error) {
	var w wireInstruction
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode instruction: %w", err)
	}
	if w.Op == "" {
		return nil, fmt.Errorf("instruction is missing \"op\"")
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return nil, fmt.Errorf("decode instruction: %w", err)
	}
	if err := checkFields(w.Op, present); err != nil {
		return nil, err
	}
	if !ValidPurgeModes[w.PrePurge] || !ValidPurgeModes[w.PostPurge] {
		return nil, fmt.Errorf("%s: invalid purge mode (pre=%q post=%q)", w.Op, w.PrePurge, w.PostPurge)
	}

	needModule := func() error {
		if w.Module == "" {
			return fmt.Errorf("%s: \"module\" is required", w.Op)
		}
		return nil
	}
	needApplication := func() error {
		if w.Application == "" {
			return fmt.Errorf("%s: \"application\" is required", w.Op)
		}
		return nil
	}

	switch w.Op {
	case OpPointOfNoReturn:
		return PointOfNoReturn{}, nil
	case OpLoadModule:
		if err := needModule(); err != nil {
			return nil, err
		}
		return LoadModule{Module: w.Module, PrePurge: w.PrePurge, PostPurge: w.PostPurge, DepMods: w.DepMods}, nil
	case OpAddModule:
		if err := needModule(); err != nil {
			return nil, err
		}
		return AddModule{Module: w.Module, DepMods: w.DepMods}, nil
	case OpLoad:
		if err := needModule(); err != nil {
			return nil, err
		}
		return Load{Module: w.Module, PrePurge: w.PrePurge, PostPurge: w.PostPurge}, nil
	case OpRemove:
		if err := needModule(); err != nil {
			return nil, err
		}
		return Remove{Module: w.Module, PrePurge: w.PrePurge, PostPurge: w.PostPurge}, nil
	case OpPurge:
		return Purge{Modules: w.Modules}, nil
	case OpDeleteModule:
		if err := needModule(); err != nil {
			return nil, err
		}
		return DeleteModule{Module: w.Module, DepMods: w.DepMods}, nil
	case OpUpdate:
		if err := needModule(); err != nil {
			return nil, err
		}
		u := Update{Module: w.Module, PrePurge: w.PrePurge, PostPurge: w.PostPurge, DepMods: w.DepMods}
		if len(w.Change) > 0 {
			c, err := UnmarshalTerm(w.Change)
			if err != nil {
				return nil, fmt.Errorf("update change: %w", err)
			}
			u.Change = c
		}
		return u, nil
	case OpCodeChange:
		cc := CodeChange{Mode: w.Mode}
		for _, c := range w.Changes {
			me := ModuleExtra{Module: c.Module}
			if len(c.Extra) > 0 {
				extra, err := UnmarshalTerm(c.Extra)
				if err != nil {
					return nil, fmt.Errorf("code_change extra for %s: %w", c.Module, err)
				}
				me.Extra = extra
			}
			cc.Modules = append(cc.Modules, me)
		}
		return cc, nil
	case OpStart:
		return Start{Modules: w.Modules}, nil
	case OpStop:
		return Stop{Modules: w.Modules}, nil
	case OpAddApplication:
		if err := needApplication(); err != nil {
			return nil, err
		}
		return AddApplication{Application: w.Application, Type: w.Type}, nil
	case OpRemoveApplication:
		if err := needApplication(); err != nil {
			return nil, err
		}
		return RemoveApplication{Application: w.Application}, nil
	case OpRestartApplication:
		if err := needApplication(); err != nil {
			return nil, err
		}
		return RestartApplication{Application: w.Application}, nil
	case OpRestartEmulator:
		return RestartEmulator{}, nil
	case OpRestartNewEmulator:
		return RestartNewEmulator{}, nil
	case OpApply:
		if err := needModule(); err != nil {
			return nil, err
		}
		if w.Function == "" {
			return nil, fmt.Errorf("apply: \"function\" is required")
		}
		args, err := decodeArgs(w.Args)
		if err != nil {
			return nil, fmt.Errorf("apply args: %w", err)
		}
		return Apply{Module: w.Module, Function: w.Function, Args: args}, nil
	default:
		args, err := decodeArgs(w.Args)
		if err != nil {
			return nil, fmt.Errorf("%s args: %w", w.Op, err)
		}
		return Opaque{Name: w.Op, Args: args}, nil
	}
}

func decodeArgs(raw json.RawMessage) ([]Term, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return unmarshalTerms(raw)
}

// FormatInstruction renders an instruction in a compact, human-readable form,
// e.g. "load_module(A)" or "apply(Logger.info, \"x\")".
func FormatInstruction(i Instruction) string {
	switch v := i.(type) {
	case PointOfNoReturn:
		return OpPointOfNoReturn
	case LoadModule:
		return OpLoadModule + "(" + v.Module + purgeSuffix(v.PrePurge, v.PostPurge) + ")"
	case AddModule:
		return OpAddModule + "(" + v.Module + ")"
	case Load:
		return OpLoad + "(" + v.Module + purgeSuffix(v.PrePurge, v.PostPurge) + ")"
	case Remove:
		return OpRemove + "(" + v.Module + purgeSuffix(v.PrePurge, v.PostPurge) + ")"
	case Purge:
		return OpPurge + "(" + strings.Join(v.Modules, ", ") + ")"
	case DeleteModule:
		return OpDeleteModule + "(" + v.Module + ")"
	case Update:
		return OpUpdate + "(" + v.Module + purgeSuffix(v.PrePurge, v.PostPurge) + ")"
	case CodeChange:
		mods := make([]string, len(v.Modules))
		for idx, me := range v.Modules {
			mods[idx] = me.Module
		}
		return OpCodeChange + "(" + strings.Join(mods, ", ") + ")"
	case Start:
		return OpStart + "(" + strings.Join(v.Modules, ", ") + ")"
	case Stop:
		return OpStop + "(" + strings.Join(v.Modules, ", ") + ")"
	case AddApplication:
		return OpAddApplication + "(" + v.Application + ")"
	case RemoveApplication:
		return OpRemoveApplication + "(" + v.Application + ")"
	case RestartApplication:
		return OpRestartApplication + "(" + v.Application + ")"
	case RestartEmulator:
		return OpRestartEmulator
	case RestartNewEmulator:
		return OpRestartNewEmulator
	case Apply:
		s := OpApply + "(" + v.Module + "." + v.Function
		if len(v.Args) > 0 {
			s += ", " + formatTerms(v.Args)
		}
		return s + ")"
	case Opaque:
		return v.Name + "(" + formatTerms(v.Args) + ")"
	default:
		return fmt.Sprintf("%v", i)
	}
}

func purgeSuffix(pre, post PurgeMode) string {
	if pre == "" && post == "" {
		return ""
	}
	return ", " + string(pre) + "/" + string(post)
}
