// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model defines the in-memory representation of everything the
// orchestration core schedules: commands, the references between them, and the
// cycles that repeat a group of commands.
//
// # Core Concepts
//
// The model is built around a few key structures:
//
//   - Command: a named unit of work. It carries an Action, the parameters it
//     needs, its ordering hints, the phase it belongs to and, optionally, a
//     Cycle.
//
//   - CommandRef: a tagged union used wherever a command is expected. It is
//     either a reference to a command by name or an inline Command definition.
//     Registration resolves every inline definition exactly once, so the rest of
//     the system only ever sees plain names.
//
//   - Cycle: a bounded, repeatable sub-schedule attached to one parent command
//     (init, then loop-start / members / loop-end while the condition holds,
//     then end).
//
// Why a separate model package?
//
// The registries, the resolver, the scheduler and the cycle engine all share
// these types. Keeping them free of behaviour avoids import cycles between the
// packages that operate on them.
package model
