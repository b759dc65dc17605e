package deps

import "fmt"

// SelectRoots returns the traversal roots: every package named name, or the
// workspace members when name is empty.
func SelectRoots(md *Metadata, name string) ([]string, error) {
	var roots []string
	if name != "" {
		for _, p := range md.Packages {
			if p.Name == name {
				roots = append(roots, p.ID)
			}
		}
		if len(roots) == 0 {
			return nil, fmt.Errorf("%w: no package named %q", ErrNoPackages, name)
		}
		return roots, nil
	}

	known := make(map[string]bool, len(md.Packages))
	for _, p := range md.Packages {
		known[p.ID] = true
	}
	for _, id := range md.WorkspaceMembers {
		if known[id] {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 {
		return nil, ErrNoPackages
	}
	return roots, nil
}
