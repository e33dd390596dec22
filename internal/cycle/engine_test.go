package cycle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cmdgrid/internal/command"
	"github.com/vk/cmdgrid/internal/model"
	"github.com/vk/cmdgrid/internal/param"
	"github.com/vk/cmdgrid/internal/runner"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

type fixture struct {
	params   *param.Registry
	store    *param.Store
	commands *command.Registry
	engine   *Engine
}

func newFixture(t *testing.T, maxDepth int) *fixture {
	t.Helper()
	params := param.NewRegistry()
	store := param.NewStore(params)
	commands := command.NewRegistry("main")
	return &fixture{
		params:   params,
		store:    store,
		commands: commands,
		engine:   New(commands, runner.New(store), maxDepth),
	}
}

func (f *fixture) command(t *testing.T, def *model.Command) {
	t.Helper()
	require.NoError(t, f.commands.Register(def))
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	v, ok := f.store.Get("count")
	require.True(t, ok)
	var n int
	require.NoError(t, gocty.FromCtyValue(v, &n))
	return n
}

func never(context.Context) (bool, error) { return false, nil }

// times returns a condition that holds exactly n times.
func times(n int) model.Condition {
	return func(context.Context) (bool, error) {
		if n == 0 {
			return false, nil
		}
		n--
		return true, nil
	}
}

func TestExecute_CountLoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	zero := cty.NumberIntVal(0)
	require.NoError(t, f.params.Register(param.Definition{Name: "count", Type: cty.Number, Default: &zero}))

	runs := 0
	f.command(t, &model.Command{Name: "loop"})
	f.command(t, &model.Command{
		Name:     "inc",
		Required: []string{"count"},
		Action: func(ctx context.Context) error {
			runs++
			return f.store.Set(ctx, "count", cty.NumberIntVal(int64(f.count(t)+1)))
		},
	})
	require.NoError(t, f.engine.Register("loop", &model.Cycle{
		Name: "counter",
		Condition: func(context.Context) (bool, error) {
			return f.count(t) < 3, nil
		},
		Commands: model.Refs("inc"),
	}))

	loop, err := f.commands.Get("loop")
	require.NoError(t, err)
	require.NoError(t, f.engine.Dispatch(ctx, loop))

	assert.Equal(t, 3, runs)
	assert.Equal(t, 3, f.count(t))
}

func TestExecute_HookCounts(t *testing.T) {
	f := newFixture(t, 0)
	calls := map[string]int{}
	hook := func(name string) model.Hook {
		return func(context.Context) error {
			calls[name]++
			return nil
		}
	}
	f.command(t, &model.Command{Name: "parent"})
	f.command(t, &model.Command{Name: "member", Action: func(context.Context) error {
		calls["member"]++
		return nil
	}})
	require.NoError(t, f.engine.Register("parent", &model.Cycle{
		Name:      "hooks",
		Init:      hook("init"),
		Condition: times(4),
		LoopStart: hook("loop_start"),
		LoopEnd:   hook("loop_end"),
		End:       hook("end"),
		Commands:  model.Refs("member"),
	}))

	require.NoError(t, f.engine.Execute(context.Background(), "parent"))

	assert.Equal(t, map[string]int{
		"init":       1,
		"loop_start": 4,
		"member":     4,
		"loop_end":   4,
		"end":        1,
	}, calls)
}

func TestExecute_ZeroIterations(t *testing.T) {
	f := newFixture(t, 0)
	ended := false
	f.command(t, &model.Command{Name: "parent"})
	f.command(t, &model.Command{Name: "member", Action: func(context.Context) error {
		t.Fatal("member must not run")
		return nil
	}})
	require.NoError(t, f.engine.Register("parent", &model.Cycle{
		Condition: never,
		End:       func(context.Context) error { ended = true; return nil },
		Commands:  model.Refs("member"),
	}))

	require.NoError(t, f.engine.Execute(context.Background(), "parent"))
	assert.True(t, ended)
}

func TestExecute_NoCycleIsNoop(t *testing.T) {
	f := newFixture(t, 0)
	f.command(t, &model.Command{Name: "plain"})
	assert.NoError(t, f.engine.Execute(context.Background(), "plain"))
}

func TestExecute_MemberOrder(t *testing.T) {
	f := newFixture(t, 0)
	var order []string
	record := func(name string) model.Action {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	f.command(t, &model.Command{Name: "parent"})
	f.command(t, &model.Command{Name: "b", Action: record("b"), After: model.Refs("a")})
	f.command(t, &model.Command{Name: "a", Action: record("a")})
	require.NoError(t, f.engine.Register("parent", &model.Cycle{
		Condition: times(2),
		Commands:  model.Refs("b", "a"),
	}))

	require.NoError(t, f.engine.Execute(context.Background(), "parent"))
	assert.Equal(t, []string{"a", "b", "a", "b"}, order)
}

func TestExecute_Errors(t *testing.T) {
	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }

	testCases := []struct {
		name  string
		cycle func() *model.Cycle
		stage string
	}{
		{"init", func() *model.Cycle { return &model.Cycle{Init: fail, Condition: times(1)} }, StageInit},
		{"condition", func() *model.Cycle {
			return &model.Cycle{Condition: func(context.Context) (bool, error) { return false, boom }}
		}, StageCondition},
		{"loop start", func() *model.Cycle { return &model.Cycle{LoopStart: fail, Condition: times(1)} }, StageLoopStart},
		{"loop end", func() *model.Cycle { return &model.Cycle{LoopEnd: fail, Condition: times(1)} }, StageLoopEnd},
		{"end", func() *model.Cycle { return &model.Cycle{End: fail, Condition: times(1)} }, StageEnd},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 0)
			f.command(t, &model.Command{Name: "parent"})
			f.command(t, &model.Command{Name: "member"})
			cy := tc.cycle()
			cy.Name = "failing"
			cy.Commands = model.Refs("member")
			require.NoError(t, f.engine.Register("parent", cy))

			err := f.engine.Execute(context.Background(), "parent")
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)

			var execErr *ExecutionError
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, "failing", execErr.Cycle)
			assert.Equal(t, tc.stage, execErr.Stage)
			assert.Empty(t, f.engine.ActiveCycle(), "active cycle is restored after a failure")
		})
	}

	t.Run("member action", func(t *testing.T) {
		f := newFixture(t, 0)
		f.command(t, &model.Command{Name: "parent"})
		f.command(t, &model.Command{Name: "member", Action: fail})
		require.NoError(t, f.engine.Register("parent", &model.Cycle{Name: "outer", Condition: times(1), Commands: model.Refs("member")}))

		err := f.engine.Execute(context.Background(), "parent")
		assert.ErrorIs(t, err, boom)
		assert.EqualError(t, err, "cycle 'outer' failed in command 'member': boom")
	})

	t.Run("missing parameter in member", func(t *testing.T) {
		f := newFixture(t, 0)
		require.NoError(t, f.params.Register(param.Definition{Name: "token"}))
		f.command(t, &model.Command{Name: "parent"})
		f.command(t, &model.Command{Name: "member", Required: []string{"token"}})
		require.NoError(t, f.engine.Register("parent", &model.Cycle{Name: "outer", Condition: times(1), Commands: model.Refs("member")}))

		err := f.engine.Execute(context.Background(), "parent")
		var missing *runner.MissingParameterError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "token", missing.Parameter)
	})
}

func TestExecute_ActiveCycle(t *testing.T) {
	f := newFixture(t, 0)
	var seen []string
	observe := func(label string) model.Action {
		return func(context.Context) error {
			seen = append(seen, label+"="+f.engine.ActiveCycle())
			return nil
		}
	}
	f.command(t, &model.Command{Name: "outer_host"})
	f.command(t, &model.Command{Name: "inner_host", Action: observe("inner_host")})
	f.command(t, &model.Command{Name: "inner_member", Action: observe("inner_member")})
	f.command(t, &model.Command{Name: "after_inner", Action: observe("after_inner"), After: model.Refs("inner_host")})

	require.NoError(t, f.engine.Register("inner_host", &model.Cycle{Name: "inner", Condition: times(1), Commands: model.Refs("inner_member")}))
	require.NoError(t, f.engine.Register("outer_host", &model.Cycle{Name: "outer", Condition: times(1), Commands: model.Refs("inner_host", "after_inner")}))

	assert.Empty(t, f.engine.ActiveCycle())
	require.NoError(t, f.engine.Execute(context.Background(), "outer_host"))

	assert.Equal(t, []string{
		"inner_host=outer",
		"inner_member=inner",
		"after_inner=outer",
	}, seen)
	assert.Empty(t, f.engine.ActiveCycle())
}

func TestRegister_MissingFields(t *testing.T) {
	f := newFixture(t, 0)
	f.command(t, &model.Command{Name: "parent"})
	f.command(t, &model.Command{Name: "member"})

	err := f.engine.Register("parent", &model.Cycle{Name: "c", Commands: model.Refs("member")})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.ErrorContains(t, err, "missing 'condition'")

	err = f.engine.Register("parent", &model.Cycle{Name: "c", Condition: never})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.ErrorContains(t, err, "missing 'commands'")

	err = f.engine.Register("parent", nil)
	assert.ErrorIs(t, err, ErrMissingField)

	err = f.engine.Register("ghost", &model.Cycle{Condition: never, Commands: model.Refs("member")})
	assert.ErrorIs(t, err, command.ErrUnknownCommand)
}

func TestRegister_UnknownMember(t *testing.T) {
	f := newFixture(t, 0)
	f.command(t, &model.Command{Name: "parent"})
	err := f.engine.Register("parent", &model.Cycle{Condition: never, Commands: model.Refs("ghost")})
	assert.ErrorIs(t, err, command.ErrUnknownCommand)
	_, attached := f.engine.Cycle("parent")
	assert.False(t, attached)
}

func TestRegister_Idempotent(t *testing.T) {
	f := newFixture(t, 0)
	f.command(t, &model.Command{Name: "parent", Required: []string{"p"}})
	f.command(t, &model.Command{Name: "member", Required: []string{"m"}})
	cy := &model.Cycle{Name: "c", Condition: never, Commands: model.Refs("member")}

	require.NoError(t, f.engine.Register("parent", cy))
	require.NoError(t, f.engine.Register("parent", cy))
	require.NoError(t, f.engine.Register("parent", &model.Cycle{Name: "c", Condition: never, Commands: model.Refs("member")}))

	parent, _ := f.commands.Lookup("parent")
	assert.Equal(t, []string{"p", "m"}, parent.Required, "no duplicate state")
	require.NotNil(t, parent.Cycle)
	assert.Equal(t, "c", parent.Cycle.Name)
}

func TestRegister_Conflict(t *testing.T) {
	base := func() *model.Cycle {
		return &model.Cycle{Name: "c", Condition: never, Commands: model.Refs("member")}
	}
	testCases := []struct {
		name   string
		mutate func(c *model.Cycle)
	}{
		{"different condition", func(c *model.Cycle) {
			c.Condition = func(context.Context) (bool, error) { return true, nil }
		}},
		{"different members", func(c *model.Cycle) { c.Commands = model.Refs("member", "other") }},
		{"different name", func(c *model.Cycle) { c.Name = "renamed" }},
		{"added hook", func(c *model.Cycle) { c.End = func(context.Context) error { return nil } }},
		{"different source", func(c *model.Cycle) { c.Source = "count < 4" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 0)
			f.command(t, &model.Command{Name: "parent"})
			f.command(t, &model.Command{Name: "member"})
			f.command(t, &model.Command{Name: "other"})
			require.NoError(t, f.engine.Register("parent", base()))

			changed := base()
			tc.mutate(changed)
			err := f.engine.Register("parent", changed)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConflict)
			assert.ErrorContains(t, err, "command 'parent'")
		})
	}
}

func TestRegister_PhaseMismatch(t *testing.T) {
	t.Run("direct member", func(t *testing.T) {
		f := newFixture(t, 0)
		f.command(t, &model.Command{Name: "parent", Phase: "main"})
		f.command(t, &model.Command{Name: "setup_step", Phase: "setup"})

		err := f.engine.Register("parent", &model.Cycle{Name: "loop", Condition: never, Commands: model.Refs("setup_step")})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPhaseMismatch)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "setup_step", verr.Command)
		assert.Equal(t, "loop", verr.Cycle)
		assert.ErrorContains(t, err, "command 'setup_step' in cycle 'loop' runs in phase 'setup'")
	})

	t.Run("nested member", func(t *testing.T) {
		f := newFixture(t, 0)
		f.command(t, &model.Command{Name: "parent"})
		f.command(t, &model.Command{Name: "inner_host"})
		f.command(t, &model.Command{Name: "deep"})
		require.NoError(t, f.engine.Register("inner_host", &model.Cycle{Name: "inner", Condition: never, Commands: model.Refs("deep")}))

		// Moving a nested member to another phase invalidates any new tree that
		// contains it.
		f.command(t, &model.Command{Name: "deep", Phase: "teardown"})

		err := f.engine.Register("parent", &model.Cycle{Name: "outer", Condition: never, Commands: model.Refs("inner_host")})
		assert.ErrorIs(t, err, ErrPhaseMismatch)
		assert.ErrorContains(t, err, "command 'deep' in cycle 'inner'")
		_, attached := f.engine.Cycle("parent")
		assert.False(t, attached, "nothing is committed on failure")
	})
}

// chain registers hosts c0..c<n> where every ci carries a cycle over c<i+1>,
// attaching the innermost cycle first. It returns the error of the last
// registration.
func chain(t *testing.T, f *fixture, n int) error {
	t.Helper()
	for i := 0; i <= n; i++ {
		f.command(t, &model.Command{Name: fmt.Sprintf("c%d", i)})
	}
	var err error
	for i := n - 1; i >= 0; i-- {
		err = f.engine.Register(fmt.Sprintf("c%d", i), &model.Cycle{
			Name:      fmt.Sprintf("cycle%d", i),
			Condition: never,
			Commands:  model.Refs(fmt.Sprintf("c%d", i+1)),
		})
		if err != nil {
			return err
		}
	}
	return err
}

func TestRegister_Depth(t *testing.T) {
	t.Run("five levels are allowed by default", func(t *testing.T) {
		f := newFixture(t, 0)
		assert.NoError(t, chain(t, f, 5))
	})

	t.Run("six levels exceed the default", func(t *testing.T) {
		f := newFixture(t, 0)
		err := chain(t, f, 6)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDepthExceeded)
		assert.ErrorContains(t, err, "maximum is 5")
		_, attached := f.engine.Cycle("c0")
		assert.False(t, attached)
	})

	t.Run("custom limit", func(t *testing.T) {
		f := newFixture(t, 2)
		assert.ErrorIs(t, chain(t, f, 3), ErrDepthExceeded)
	})

	t.Run("self reference is bounded", func(t *testing.T) {
		f := newFixture(t, 0)
		f.command(t, &model.Command{Name: "loop"})
		err := f.engine.Register("loop", &model.Cycle{Condition: never, Commands: model.Refs("loop")})
		assert.ErrorIs(t, err, ErrDepthExceeded)
	})

	t.Run("attaching an inner cycle late revalidates outer trees", func(t *testing.T) {
		f := newFixture(t, 2)
		for _, name := range []string{"a", "b", "c", "d"} {
			f.command(t, &model.Command{Name: name})
		}
		require.NoError(t, f.engine.Register("a", &model.Cycle{Name: "ca", Condition: never, Commands: model.Refs("b")}))
		require.NoError(t, f.engine.Register("b", &model.Cycle{Name: "cb", Condition: never, Commands: model.Refs("c")}))
		err := f.engine.Register("c", &model.Cycle{Name: "cc", Condition: never, Commands: model.Refs("d")})
		assert.ErrorIs(t, err, ErrDepthExceeded)
	})
}

func TestRegister_Aggregation(t *testing.T) {
	f := newFixture(t, 0)
	f.command(t, &model.Command{Name: "parent", Required: []string{"own"}})
	f.command(t, &model.Command{Name: "inner_host", Required: []string{"host"}})
	f.command(t, &model.Command{Name: "deep", Required: []string{"deep", "shared"}})
	f.command(t, &model.Command{Name: "sibling", Required: []string{"shared", "sibling"}})

	require.NoError(t, f.engine.Register("inner_host", &model.Cycle{Name: "inner", Condition: never, Commands: model.Refs("deep")}))
	require.NoError(t, f.engine.Register("parent", &model.Cycle{Name: "outer", Condition: never, Commands: model.Refs("inner_host", "sibling")}))

	parent, _ := f.commands.Lookup("parent")
	assert.Equal(t, []string{"own", "host", "deep", "shared", "sibling"}, parent.Required)

	inner, _ := f.commands.Lookup("inner_host")
	assert.Equal(t, []string{"host", "deep", "shared"}, inner.Required)

	for _, name := range []string{"inner_host", "deep", "sibling"} {
		assert.False(t, f.commands.Invocable(name), "%s is consumed by a cycle", name)
	}
	assert.True(t, f.commands.Invocable("parent"))
}

func TestRegister_InlineMembers(t *testing.T) {
	f := newFixture(t, 0)
	f.command(t, &model.Command{Name: "parent", Phase: "build"})

	ran := 0
	inner := &model.Command{
		Name: "nested_host",
		Cycle: &model.Cycle{
			Name:      "nested",
			Condition: times(2),
			Commands: []model.CommandRef{model.Inline(&model.Command{
				Name:   "leaf",
				Action: func(context.Context) error { ran++; return nil },
			})},
		},
	}
	require.NoError(t, f.engine.Register("parent", &model.Cycle{
		Name:      "outer",
		Condition: times(1),
		Commands:  []model.CommandRef{model.Inline(inner)},
	}))

	leaf, ok := f.commands.Lookup("leaf")
	require.True(t, ok)
	assert.Equal(t, "build", leaf.Phase, "inline members inherit the host phase")
	assert.False(t, f.commands.Invocable("leaf"))

	cy, ok := f.engine.Cycle("parent")
	require.True(t, ok)
	assert.Equal(t, []string{"nested_host"}, cy.MemberNames())
	assert.False(t, cy.Commands[0].IsInline())

	require.NoError(t, f.engine.Execute(context.Background(), "parent"))
	assert.Equal(t, 2, ran)
}

func TestRegister_FailureRollsBackInlineMembers(t *testing.T) {
	f := newFixture(t, 0)
	f.command(t, &model.Command{Name: "parent"})
	f.command(t, &model.Command{Name: "member"})
	require.NoError(t, f.engine.Register("parent", &model.Cycle{Name: "c", Condition: never, Commands: model.Refs("member")}))

	err := f.engine.Register("parent", &model.Cycle{
		Name:      "c",
		Condition: never,
		Commands: []model.CommandRef{
			model.Ref("member"),
			model.Inline(&model.Command{Name: "extra"}),
		},
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.False(t, f.commands.Has("extra"), "inline members of a rejected cycle are not kept")

	err = f.engine.Register("parent", &model.Cycle{
		Name:      "c",
		Condition: never,
		Commands:  []model.CommandRef{model.Inline(&model.Command{Name: "late", Phase: "teardown"})},
	})
	assert.Error(t, err)
	assert.False(t, f.commands.Has("late"))

	cy, ok := f.engine.Cycle("parent")
	require.True(t, ok)
	assert.Equal(t, []string{"member"}, cy.MemberNames())
}

func TestRegisterCommand_RevalidatesTrees(t *testing.T) {
	f := newFixture(t, 2)
	require.NoError(t, f.engine.RegisterCommand(&model.Command{Name: "leaf", Required: []string{"a"}}))
	require.NoError(t, f.engine.RegisterCommand(&model.Command{Name: "inner"}))
	require.NoError(t, f.engine.Register("inner", &model.Cycle{Name: "ci", Condition: never, Commands: model.Refs("leaf")}))
	require.NoError(t, f.engine.RegisterCommand(&model.Command{
		Name:  "outer",
		Cycle: &model.Cycle{Name: "co", Condition: never, Commands: model.Refs("inner")},
	}))

	// Dropping a requirement from the leaf removes it from every host.
	require.NoError(t, f.engine.RegisterCommand(&model.Command{Name: "leaf", Required: []string{"b"}}))
	outer, _ := f.commands.Lookup("outer")
	assert.Equal(t, []string{"b"}, outer.Required)
	inner, _ := f.commands.Lookup("inner")
	assert.Equal(t, []string{"b"}, inner.Required)

	// Giving the leaf a cycle of its own nests the tree too deep.
	require.NoError(t, f.engine.RegisterCommand(&model.Command{Name: "deep"}))
	err := f.engine.RegisterCommand(&model.Command{
		Name:  "leaf",
		Cycle: &model.Cycle{Name: "cl", Condition: never, Commands: model.Refs("deep")},
	})
	assert.ErrorIs(t, err, ErrDepthExceeded)
	_, attached := f.engine.Cycle("leaf")
	assert.False(t, attached)
	leaf, _ := f.commands.Lookup("leaf")
	assert.Equal(t, []string{"b"}, leaf.Required)
	assert.True(t, f.commands.Invocable("deep"))

	assert.Error(t, f.engine.RegisterCommand(nil))
}
