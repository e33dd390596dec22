package dag

import "slices"

// Resolve orders the given commands so that every command comes after the
// ones it goes after and before the ones it goes before. Relations to
// commands outside of names are ignored, duplicates are dropped and unknown
// names are treated as commands without relations.
//
// Each pass places the earliest requested command whose predecessors have all
// been placed, so commands that are free to go in any order keep the order in
// which they were requested.
func (g *Graph) Resolve(names []string) ([]string, error) {
	working := make([]string, 0, len(names))
	inSet := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || inSet[name] {
			continue
		}
		inSet[name] = true
		working = append(working, name)
	}

	predecessors := make(map[string][]string, len(working))
	for _, name := range working {
		for _, prev := range g.After(name) {
			if inSet[prev] {
				predecessors[name] = append(predecessors[name], prev)
			}
		}
	}

	placed := make(map[string]bool, len(working))
	out := make([]string, 0, len(working))
	for len(working) > 0 {
		idx := slices.IndexFunc(working, func(name string) bool {
			for _, prev := range predecessors[name] {
				if !placed[prev] {
					return false
				}
			}
			return true
		})
		if idx < 0 {
			return nil, &CircularDependencyError{Remaining: slices.Clone(working)}
		}
		placed[working[idx]] = true
		out = append(out, working[idx])
		working = slices.Delete(working, idx, idx+1)
	}
	return out, nil
}
