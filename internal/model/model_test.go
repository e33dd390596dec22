package model

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRef(t *testing.T) {
	byName := Ref("build")
	assert.Equal(t, "build", byName.Name())
	assert.False(t, byName.IsInline())
	_, ok := byName.Definition()
	assert.False(t, ok)

	inline := Inline(&Command{Name: "publish"})
	assert.Equal(t, "publish", inline.Name())
	assert.True(t, inline.IsInline())
	def, ok := inline.Definition()
	require.True(t, ok)
	assert.Equal(t, "publish", def.Name)

	refs := []CommandRef{Ref("a"), {}, Inline(&Command{Name: "b"}), Ref("a")}
	if diff := cmp.Diff([]string{"a", "b"}, RefNames(refs)); diff != "" {
		t.Errorf("RefNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestCommand_CloneAndBinding(t *testing.T) {
	orig := &Command{
		Name:          "B",
		Required:      []string{"token"},
		RequireBefore: Refs("A"),
		Next:          Refs("C", "A"),
	}
	clone := orig.Clone()
	clone.Required[0] = "changed"
	clone.Next = append(clone.Next, Ref("D"))

	assert.Equal(t, []string{"token"}, orig.Required)
	assert.Len(t, orig.Next, 2)
	assert.Equal(t, []string{"A", "C"}, orig.Binding())
	assert.Nil(t, (*Command)(nil).Clone())
}

func TestAppendUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, AppendUnique([]string{"a"}, "b", "a", "c", "b"))
	assert.Equal(t, []string{"x"}, AppendUnique(nil, "x"))
}

func TestCycle_Same(t *testing.T) {
	hook := func(context.Context) error { return nil }
	other := func(context.Context) error { return nil }
	cond := func(context.Context) (bool, error) { return false, nil }

	base := &Cycle{Name: "loop", Init: hook, Condition: cond, Commands: Refs("a", "b")}
	same := &Cycle{Name: "loop", Init: hook, Condition: cond, Commands: []CommandRef{Ref("a"), Inline(&Command{Name: "b"})}}

	assert.True(t, base.Same(same))
	assert.True(t, (*Cycle)(nil).Same(nil))
	assert.False(t, base.Same(nil))

	testCases := []struct {
		name   string
		modify func(c *Cycle)
	}{
		{"name", func(c *Cycle) { c.Name = "other" }},
		{"members", func(c *Cycle) { c.Commands = Refs("b", "a") }},
		{"hook", func(c *Cycle) { c.Init = other }},
		{"missing hook", func(c *Cycle) { c.Init = nil }},
		{"extra hook", func(c *Cycle) { c.End = hook }},
		{"source", func(c *Cycle) { c.Source = "param.count < 3" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			changed := *base
			tc.modify(&changed)
			assert.False(t, base.Same(&changed))
		})
	}
}

func TestCycle_MemberNames(t *testing.T) {
	assert.Nil(t, (*Cycle)(nil).MemberNames())
	c := &Cycle{Commands: []CommandRef{Ref("x"), Inline(&Command{Name: "y"})}}
	assert.Equal(t, []string{"x", "y"}, c.MemberNames())
}
