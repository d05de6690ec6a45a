// Package model keeps the console view of the remote agents and reconciles it with
// the id listings returned by the backend.
package model

// Diff is the outcome of comparing the remote id listing with the tracked ids
type Diff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Empty is true when nothing has to change
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// ComputeDiff returns the ids present remotely but not locally (added) and the ids tracked
// locally but gone remotely (removed). Both results follow the order of their input.
func ComputeDiff(remote, local []string) Diff {
	remoteSet := toSet(remote)
	localSet := toSet(local)

	return Diff{
		Added:   subtract(remote, localSet),
		Removed: subtract(local, remoteSet),
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func subtract(ids []string, other map[string]struct{}) []string {
	res := make([]string, 0)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := other[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}
