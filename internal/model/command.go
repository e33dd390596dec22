// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Command structure, the atomic unit the scheduler
// orders and the runner executes.
//
// Why four relation lists?
//
// Users express ordering in two strengths. After/Before are hints: they order
// commands that happen to be scheduled together but never pull anything into
// the run. RequireBefore/Next are binding: the referenced commands are queued
// automatically. Registration folds the binding lists into the hint lists so the
// resolver sees a single graph, while the scheduler still knows which
// references it has to enqueue.
package model

import "context"

// DefaultPhase is the phase a command lands in when it does not name one and
// no other default has been configured.
const DefaultPhase = "main"

// Action is the work a command performs. It may read or write the value store
// through whatever it closed over, and any error it returns aborts the run.
type Action func(ctx context.Context) error

// Command is the format-agnostic definition of a single command.
type Command struct {
	Name        string
	Description string
	Action      Action

	// Required lists parameter names that must be present in the value store
	// before Action runs. For commands hosting a cycle it also holds the
	// aggregated requirements of every member.
	Required []string

	// After ("goes after") and Before ("goes before") are ordering hints.
	After  []CommandRef
	Before []CommandRef

	// RequireBefore and Next are binding: referenced commands are enqueued
	// together with this one.
	RequireBefore []CommandRef
	Next          []CommandRef

	Phase string
	// Trigger names a parameter; setting it enqueues this command.
	Trigger string
	// Framework marks commands contributed by the framework rather than the
	// application.
	Framework bool

	Cycle *Cycle
}

// Clone returns a copy of the command with its slices detached from the
// original. Inline references and the cycle are shared.
func (c *Command) Clone() *Command {
	if c == nil {
		return nil
	}
	out := *c
	out.Required = append([]string(nil), c.Required...)
	out.After = append([]CommandRef(nil), c.After...)
	out.Before = append([]CommandRef(nil), c.Before...)
	out.RequireBefore = append([]CommandRef(nil), c.RequireBefore...)
	out.Next = append([]CommandRef(nil), c.Next...)
	return &out
}

// AfterNames returns the names of the "goes after" references. Inline
// references contribute the name of their definition.
func (c *Command) AfterNames() []string { return RefNames(c.After) }

// BeforeNames returns the names of the "goes before" references.
func (c *Command) BeforeNames() []string { return RefNames(c.Before) }

// Binding returns the names of every command that must be enqueued together
// with this one: its require-before list followed by its next-commands list.
func (c *Command) Binding() []string {
	out := RefNames(c.RequireBefore)
	for _, name := range RefNames(c.Next) {
		out = AppendUnique(out, name)
	}
	return out
}

// AppendUnique appends each value that is not already present in list,
// preserving order.
func AppendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}
