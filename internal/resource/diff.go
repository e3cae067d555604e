package resource

// Diff returns the items of old whose key is missing from updated and the
// items of updated whose key is missing from old, both in input order.
func Diff[T Identifiable](old, updated []T) (removed []T, added []T) {
	oldKeys := make(map[string]struct{}, len(old))
	for _, item := range old {
		oldKeys[item.Key()] = struct{}{}
	}
	newKeys := make(map[string]struct{}, len(updated))
	for _, item := range updated {
		newKeys[item.Key()] = struct{}{}
	}

	for _, item := range old {
		if _, ok := newKeys[item.Key()]; !ok {
			removed = append(removed, item)
		}
	}
	for _, item := range updated {
		if _, ok := oldKeys[item.Key()]; !ok {
			added = append(added, item)
		}
	}
	return removed, added
}

type Kind string

const (
	KindWorkspace Kind = "workspace"
	KindPro       Kind = "pro"
)

type Op string

const (
	OpAdded   Op = "added"
	OpRemoved Op = "removed"
)

// Change is one menu update: a resource of Kind identified by ID was added
// or removed.
type Change struct {
	Kind Kind   `json:"kind"`
	Op   Op     `json:"op"`
	ID   string `json:"id"`
}

func Changes[T Identifiable](kind Kind, removed, added []T) []Change {
	changes := make([]Change, 0, len(removed)+len(added))
	for _, item := range removed {
		changes = append(changes, Change{Kind: kind, Op: OpRemoved, ID: item.Key()})
	}
	for _, item := range added {
		changes = append(changes, Change{Kind: kind, Op: OpAdded, ID: item.Key()})
	}
	return changes
}
