package snapshot

import (
	"codesnap/internal/errors"
	"codesnap/internal/scan"
)

// topologicalOrder orders the loaded services so that every declared
// dependency present in the build set precedes its dependents. Dependencies
// outside the build set are ignored. The seed order fixes the iteration, so
// the result is deterministic for a given request.
//
// Cycles among the declared dependencies are fatal.
func topologicalOrder(seed []string, scans map[string]*scan.StoredScan) ([]string, error) {
	// Adjacency: service -> declared dependencies restricted to the build set.
	deps := make(map[string][]string, len(scans))
	for serviceID, stored := range scans {
		var relevant []string
		for _, dep := range scan.ParseServiceDependencies(stored.ServiceDependencies) {
			if _, ok := scans[dep]; ok {
				relevant = append(relevant, dep)
			}
		}
		deps[serviceID] = relevant
	}

	sorted := make([]string, 0, len(scans))
	visited := map[string]bool{}
	visiting := map[string]bool{}

	var visit func(serviceID string) error
	visit = func(serviceID string) error {
		if visiting[serviceID] {
			return errors.Newf(errors.CyclicDependency,
				"cyclic dependency detected involving service: %s", serviceID)
		}
		if visited[serviceID] {
			return nil
		}

		visiting[serviceID] = true
		for _, dep := range deps[serviceID] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(visiting, serviceID)
		visited[serviceID] = true
		sorted = append(sorted, serviceID)
		return nil
	}

	for _, serviceID := range seed {
		if _, ok := scans[serviceID]; !ok {
			continue
		}
		if err := visit(serviceID); err != nil {
			return nil, err
		}
	}

	return sorted, nil
}
