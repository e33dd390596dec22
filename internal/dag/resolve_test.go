package dag

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edges(t *testing.T, g *Graph, pairs ...[2]string) {
	t.Helper()
	for _, p := range pairs {
		require.NoError(t, g.AddEdge(p[0], p[1]))
	}
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		name  string
		edges [][2]string
		input []string
		want  []string
	}{
		{
			name:  "no relations keeps request order",
			input: []string{"c", "a", "b"},
			want:  []string{"c", "a", "b"},
		},
		{
			name:  "require before and next",
			edges: [][2]string{{"A", "B"}, {"B", "C"}},
			input: []string{"B", "A", "C"},
			want:  []string{"A", "B", "C"},
		},
		{
			name:  "reverse chain",
			edges: [][2]string{{"a", "b"}, {"b", "c"}},
			input: []string{"c", "b", "a"},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "independent commands stay in place around a chain",
			edges: [][2]string{{"a", "b"}},
			input: []string{"x", "b", "y", "a"},
			want:  []string{"x", "y", "a", "b"},
		},
		{
			name:  "diamond",
			edges: [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
			input: []string{"d", "c", "b", "a"},
			want:  []string{"a", "c", "b", "d"},
		},
		{
			name:  "relations outside the set are ignored",
			edges: [][2]string{{"a", "outside"}, {"outside", "b"}},
			input: []string{"b", "a"},
			want:  []string{"b", "a"},
		},
		{
			name:  "duplicates are dropped",
			edges: [][2]string{{"a", "b"}},
			input: []string{"b", "a", "b", "a"},
			want:  []string{"a", "b"},
		},
		{
			name:  "unknown commands are placed",
			input: []string{"ghost"},
			want:  []string{"ghost"},
		},
		{
			name:  "empty input",
			input: nil,
			want:  []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := New()
			edges(t, g, tc.edges...)

			got, err := g.Resolve(tc.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_Cycle(t *testing.T) {
	g := New()
	edges(t, g, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"})

	_, err := g.Resolve([]string{"free", "a", "b", "c"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircularDependency))

	var circ *CircularDependencyError
	require.ErrorAs(t, err, &circ)
	assert.Equal(t, []string{"a", "b", "c"}, circ.Remaining)
	assert.ErrorContains(t, err, "circular dependency between commands: a, b, c")
}

func TestResolve_RespectsEveryRelation(t *testing.T) {
	g := New()
	edges(t, g,
		[2]string{"fetch", "build"},
		[2]string{"lint", "build"},
		[2]string{"build", "test"},
		[2]string{"build", "package"},
		[2]string{"test", "publish"},
		[2]string{"package", "publish"},
	)
	input := []string{"publish", "package", "test", "build", "lint", "fetch"}

	got, err := g.Resolve(input)
	require.NoError(t, err)
	require.ElementsMatch(t, input, got)

	pos := make(map[string]int, len(got))
	for i, name := range got {
		pos[name] = i
	}
	for _, name := range got {
		for _, next := range g.Before(name) {
			assert.Less(t, pos[name], pos[next], "%s must run before %s", name, next)
		}
		for _, prev := range g.After(name) {
			assert.Less(t, pos[prev], pos[name], "%s must run after %s", name, prev)
		}
	}
}
