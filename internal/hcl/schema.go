package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Phases     []*phasesBlock    `hcl:"phases,block"`
	Parameters []*parameterBlock `hcl:"parameter,block"`
	Commands   []*commandBlock   `hcl:"command,block"`
	Remain     hcl.Body          `hcl:",remain"`
}

type phasesBlock struct {
	Order   []string `hcl:"order"`
	Default string   `hcl:"default,optional"`
}

type parameterBlock struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Type        hcl.Expression `hcl:"type,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Aliases     []string       `hcl:"aliases,optional"`
	Bind        string         `hcl:"bind,optional"`
	Required    bool           `hcl:"required,optional"`
	Immutable   bool           `hcl:"immutable,optional"`
	Switch      []string       `hcl:"switch,optional"`
}

type commandBlock struct {
	Name          string      `hcl:"name,label"`
	Description   string      `hcl:"description,optional"`
	Action        string      `hcl:"action,optional"`
	Requires      []string    `hcl:"requires,optional"`
	After         []string    `hcl:"after,optional"`
	Before        []string    `hcl:"before,optional"`
	RequireBefore []string    `hcl:"require_before,optional"`
	Next          []string    `hcl:"next,optional"`
	Phase         string      `hcl:"phase,optional"`
	Trigger       string      `hcl:"trigger,optional"`
	Framework     bool        `hcl:"framework,optional"`
	Cycle         *cycleBlock `hcl:"cycle,block"`
}

type cycleBlock struct {
	Name      string          `hcl:"name,label"`
	Init      string          `hcl:"init,optional"`
	Condition hcl.Expression  `hcl:"condition,optional"`
	LoopStart string          `hcl:"loop_start,optional"`
	LoopEnd   string          `hcl:"loop_end,optional"`
	End       string          `hcl:"end,optional"`
	Commands  []string        `hcl:"commands,optional"`
	Inline    []*commandBlock `hcl:"command,block"`
}
