// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Cycle structure, the repeatable sub-schedule that can
// be attached to a command.
//
// Why compare callables by code pointer?
//
// Modular applications may register the same cycle from several places, and
// that must be a no-op, while a genuinely different cycle for the same command
// is a configuration error. Go functions are not comparable, so identity is
// approximated by the function's code pointer. Closures built at load time
// share one code pointer, which is why declarative sources also record a
// Source fingerprint describing what the closures were built from.
package model

import (
	"context"
	"reflect"
	"slices"
)

// Hook is one of a cycle's lifecycle callables.
type Hook func(ctx context.Context) error

// Condition decides whether a cycle runs another iteration.
type Condition func(ctx context.Context) (bool, error)

// Cycle describes a bounded loop attached to a parent command:
//
//	Init
//	while Condition {
//	    LoopStart
//	    <member commands, resolved into dependency order>
//	    LoopEnd
//	}
//	End
type Cycle struct {
	Name      string
	Init      Hook
	Condition Condition
	LoopStart Hook
	LoopEnd   Hook
	End       Hook
	Commands  []CommandRef

	// Source optionally fingerprints the declarative definition the callables
	// were built from.
	Source string
}

// MemberNames returns the member command names in declaration order.
func (c *Cycle) MemberNames() []string {
	if c == nil {
		return nil
	}
	return RefNames(c.Commands)
}

// Same reports whether two cycle definitions are interchangeable: same name,
// same members, same callables and same declarative source.
func (c *Cycle) Same(other *Cycle) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Name != other.Name || c.Source != other.Source {
		return false
	}
	if !slices.Equal(c.MemberNames(), other.MemberNames()) {
		return false
	}
	return sameFunc(c.Init, other.Init) &&
		sameFunc(c.Condition, other.Condition) &&
		sameFunc(c.LoopStart, other.LoopStart) &&
		sameFunc(c.LoopEnd, other.LoopEnd) &&
		sameFunc(c.End, other.End)
}

func sameFunc(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.IsNil() || vb.IsNil() {
		return va.IsNil() == vb.IsNil()
	}
	return va.Pointer() == vb.Pointer()
}
