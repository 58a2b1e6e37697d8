package executor

import (
	"fmt"
	"sort"
)

// topoSort orders tools so every tool runs after its declared
// dependencies, using Kahn's algorithm with a lexicographic tie-break
// so start order is reproducible. deps maps a tool to its
// prerequisites. A cycle is a configuration error.
func topoSort(tools []string, deps map[string][]string) ([]string, error) {
	present := make(map[string]bool, len(tools))
	for _, t := range tools {
		present[t] = true
	}

	indegree := make(map[string]int, len(tools))
	dependents := make(map[string][]string)
	for _, t := range tools {
		indegree[t] = 0
	}
	for t, prereqs := range deps {
		if !present[t] {
			continue
		}
		for _, p := range prereqs {
			if !present[p] {
				continue
			}
			indegree[t]++
			dependents[p] = append(dependents[p], t)
		}
	}

	var ready []string
	for _, t := range tools {
		if indegree[t] == 0 {
			ready = append(ready, t)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(tools))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		released := false
		for _, d := range dependents[next] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(order) != len(tools) {
		var stuck []string
		for t, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, t)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: involving %v", ErrDependencyCycle, stuck)
	}

	return order, nil
}
