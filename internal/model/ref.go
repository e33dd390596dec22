// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines CommandRef, the tagged union accepted anywhere a command
// is expected.
//
// Why a tagged union instead of `any`?
//
// Definitions may reference a command by name or embed a full definition in
// place. Branching on a dynamic type at every use site spreads that decision
// across the codebase. A small closed type makes the two cases explicit, and
// registration collapses every Inline into a Ref once.
package model

// CommandRef is either a reference to a command by name or an inline
// definition. The zero value is an empty reference.
type CommandRef struct {
	name   string
	inline *Command
}

// Ref references an already (or later) registered command by name.
func Ref(name string) CommandRef {
	return CommandRef{name: name}
}

// Inline embeds a full command definition. Registering the owner registers
// the inline definition first and replaces it with Ref(def.Name).
func Inline(def *Command) CommandRef {
	return CommandRef{inline: def}
}

// Refs is a convenience for building a list of name references.
func Refs(names ...string) []CommandRef {
	out := make([]CommandRef, 0, len(names))
	for _, n := range names {
		out = append(out, Ref(n))
	}
	return out
}

// Name returns the referenced command name.
func (r CommandRef) Name() string {
	if r.inline != nil {
		return r.inline.Name
	}
	return r.name
}

// Definition returns the inline definition, if any.
func (r CommandRef) Definition() (*Command, bool) {
	return r.inline, r.inline != nil
}

// IsInline reports whether the reference carries its own definition.
func (r CommandRef) IsInline() bool {
	return r.inline != nil
}

// RefNames maps references to their names, dropping empty ones and
// duplicates.
func RefNames(refs []CommandRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if n := r.Name(); n != "" {
			out = AppendUnique(out, n)
		}
	}
	return out
}
