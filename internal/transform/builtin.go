package transform

import (
	"fmt"
	"strconv"

	"github.com/Frost/edeliver/internal/edit"
	"github.com/Frost/edeliver/internal/ir"
)

// Names of the built-in units.
const (
	UnitInsertBeforePointOfNoReturn = "insert_before_point_of_no_return"
	UnitInsertAfterPointOfNoReturn  = "insert_after_point_of_no_return"
	UnitAppendAfterPointOfNoReturn  = "append_after_point_of_no_return"
	UnitAppend                      = "append"
	UnitInfo                        = "info"
	UnitSoftPurge                   = "soft_purge"
	UnitRunnable                    = "runnable"
	UnitSleep                       = "sleep"
	UnitCheckProcesses              = "check_processes_running_old_code"
)

// Units invoked by the predefined runnables.
const (
	SleepModule          = "Elixir.Edeliver.Relup.Instructions.Sleep"
	CheckProcessesModule = "Elixir.Edeliver.Relup.Instructions.CheckProcessesRunningOldCode"
)

// DefaultLogger is the module receiving info messages.
const DefaultLogger = "Logger"

func builtins() map[string]Transformer {
	return map[string]Transformer{
		UnitInsertBeforePointOfNoReturn: payloadUnit(edit.InsertBeforePointOfNoReturnSplit),
		UnitInsertAfterPointOfNoReturn:  payloadUnit(edit.InsertAfterPointOfNoReturnSplit),
		UnitAppendAfterPointOfNoReturn:  payloadUnit(edit.AppendAfterPointOfNoReturnSplit),
		UnitAppend:                      payloadUnit(edit.AppendSplit),
		UnitInfo:                        Info{},
		UnitSoftPurge:                   Func(SoftPurgeAll),
		UnitRunnable:                    Runnable{},
		UnitSleep:                       Sleep{},
		UnitCheckProcesses:              Runnable{Module: CheckProcessesModule},
	}
}

// payloadUnit inserts the step's own instructions with a split edit.
type payloadUnit func(s ir.Set, up, down ir.Sequence) ir.Set

func (p payloadUnit) Transform(s ir.Set, cfg Config) ir.Set {
	return p(s, cfg.Up, cfg.DownOrUp())
}

func (p payloadUnit) Validate(cfg Config) error {
	if len(cfg.Up) == 0 && len(cfg.Down) == 0 {
		return fmt.Errorf("no instructions to insert: set \"up\" (and optionally \"down\")")
	}
	return nil
}

// Info logs up_message right after the commit point during upgrade and
// down_message right before it during rollback. A side without a message
// is left unchanged.
type Info struct{}

func (Info) Transform(s ir.Set, cfg Config) ir.Set {
	logger := cfg.Option("logger", DefaultLogger)
	var up, down ir.Sequence
	if msg := cfg.Option("up_message", ""); msg != "" {
		up = ir.Sequence{logInfo(logger, msg)}
	}
	if msg := cfg.Option("down_message", ""); msg != "" {
		down = ir.Sequence{logInfo(logger, msg)}
	}

	return edit.InsertAfterPointOfNoReturnSplit(s, up, down)
}

func (Info) Validate(cfg Config) error {
	if cfg.Option("up_message", "") == "" && cfg.Option("down_message", "") == "" {
		return fmt.Errorf("info: set up_message or down_message")
	}
	return nil
}

func logInfo(logger, msg string) ir.Apply {
	return ir.Apply{Module: logger, Function: "info", Args: []ir.Term{ir.String(msg)}}
}

// SoftPurgeAll replaces brutal_purge with soft_purge on every load, remove
// and update instruction of both sides, so that processes still running old
// code are not killed by the upgrade.
func SoftPurgeAll(s ir.Set, _ Config) ir.Set {
	return ir.Set{Up: softPurge(s.Up), Down: softPurge(s.Down)}
}

func softPurge(s ir.Sequence) ir.Sequence {
	if s == nil {
		return nil
	}
	out := make(ir.Sequence, len(s))
	for i, instr := range s {
		switch v := instr.(type) {
		case ir.LoadModule:
			v.PrePurge, v.PostPurge = soften(v.PrePurge), soften(v.PostPurge)
			out[i] = v
		case ir.Load:
			v.PrePurge, v.PostPurge = soften(v.PrePurge), soften(v.PostPurge)
			out[i] = v
		case ir.Remove:
			v.PrePurge, v.PostPurge = soften(v.PrePurge), soften(v.PostPurge)
			out[i] = v
		case ir.Update:
			v.PrePurge, v.PostPurge = soften(v.PrePurge), soften(v.PostPurge)
			out[i] = v
		default:
			out[i] = instr
		}
	}
	return out
}

func soften(m ir.PurgeMode) ir.PurgeMode {
	if m == ir.BrutalPurge {
		return ir.SoftPurge
	}
	return m
}

// Sleep pauses the upgrade for the configured number of seconds right after
// the commit point.
type Sleep struct{}

func (Sleep) Transform(s ir.Set, cfg Config) ir.Set {
	seconds, err := strconv.ParseInt(cfg.Option("seconds", "0"), 10, 64)
	if err != nil {
		return s
	}
	r := Runnable{Module: SleepModule, Args: []ir.Term{ir.Int(seconds)}}
	return r.Transform(s, Config{})
}

func (Sleep) Validate(cfg Config) error {
	raw := cfg.Option("seconds", "")
	if raw == "" {
		return fmt.Errorf("sleep: \"seconds\" is required")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("sleep: \"seconds\" must be a non-negative integer, got %q", raw)
	}
	return nil
}
