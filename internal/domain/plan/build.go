package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
)

// Build produces an execution plan for the given team. The team may name
// the same kind more than once; repeats become additional units of that
// kind, batched into ceiling-sized waves inside their phase.
//
// The dependency graph is restricted to kinds present in the team:
// dependencies on absent kinds count as already satisfied. A cycle in
// the restricted graph fails the build before any unit exists.
func Build(req request.ContentRequest, team []agent.Kind, cat *agent.Catalog) (*Plan, error) {
	if len(team) == 0 {
		return nil, fmt.Errorf("empty agent team: %w", ErrPlanning)
	}

	counts := make(map[agent.Kind]int)
	var kinds []agent.Kind
	for _, k := range team {
		if counts[k] == 0 {
			kinds = append(kinds, k)
		}
		counts[k]++
	}

	for _, k := range kinds {
		if _, err := cat.Lookup(k); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPlanning, err)
		}
	}

	layers, err := layerKinds(kinds, cat)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		ID:        uuid.New().String(),
		RequestID: req.ID,
		Domain:    req.Domain,
		CreatedAt: time.Now().UTC(),
	}
	var total time.Duration
	for i, layer := range layers {
		phase := Phase{Index: i}
		var phaseDur time.Duration
		for _, k := range layer {
			def, _ := cat.Lookup(k)
			n := counts[k]
			for j := 0; j < n; j++ {
				phase.Units = append(phase.Units, Unit{
					ID:        uuid.New().String(),
					AgentKind: k,
					Phase:     i,
					Wave:      j / def.ConcurrencyCeiling,
					Status:    UnitPending,
				})
			}
			waves := (n + def.ConcurrencyCeiling - 1) / def.ConcurrencyCeiling
			if d := time.Duration(waves) * def.Estimate(req.Complexity); d > phaseDur {
				phaseDur = d
			}
		}
		p.Phases = append(p.Phases, phase)
		total += phaseDur
	}
	p.EstimatedDuration = total
	return p, nil
}

// layerKinds computes a topological layering of the distinct kinds with
// Kahn's algorithm, considering only dependencies inside the team.
func layerKinds(kinds []agent.Kind, cat *agent.Catalog) ([][]agent.Kind, error) {
	inTeam := make(map[agent.Kind]struct{}, len(kinds))
	for _, k := range kinds {
		inTeam[k] = struct{}{}
	}

	inDegree := make(map[agent.Kind]int, len(kinds))
	dependents := make(map[agent.Kind][]agent.Kind, len(kinds))
	for _, k := range kinds {
		deps, err := cat.DependenciesOf(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPlanning, err)
		}
		for _, dep := range deps {
			if _, ok := inTeam[dep]; !ok {
				continue
			}
			inDegree[k]++
			dependents[dep] = append(dependents[dep], k)
		}
	}

	var layers [][]agent.Kind
	ready := make([]agent.Kind, 0, len(kinds))
	for _, k := range kinds {
		if inDegree[k] == 0 {
			ready = append(ready, k)
		}
	}
	visited := 0
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		layers = append(layers, ready)
		visited += len(ready)

		var next []agent.Kind
		for _, k := range ready {
			for _, dep := range dependents[k] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		ready = next
	}

	if visited != len(kinds) {
		var residue []string
		for _, k := range kinds {
			if inDegree[k] > 0 {
				residue = append(residue, string(k))
			}
		}
		sort.Strings(residue)
		return nil, fmt.Errorf("%w: %w among %s", ErrPlanning, ErrCyclicDependency, strings.Join(residue, ", "))
	}
	return layers, nil
}
