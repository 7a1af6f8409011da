// Package groups provides the static, config-driven group directory: which
// rights a directory group holds. A remote directory can replace it behind
// the same access.GroupDirectory interface.
package groups

import (
	"fmt"
	"strings"

	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
)

// StaticDirectory answers group-right lookups from a fixed table.
type StaticDirectory struct {
	rights map[string]access.Rights
}

var _ access.GroupDirectory = (*StaticDirectory)(nil)

// NewStaticDirectory builds a directory from an explicit mapping.
func NewStaticDirectory(mapping map[string]access.Rights) *StaticDirectory {
	rights := make(map[string]access.Rights, len(mapping))
	for g, r := range mapping {
		rights[g] = r
	}
	return &StaticDirectory{rights: rights}
}

// HasRight reports whether the group holds the required right.
func (d *StaticDirectory) HasRight(group string, required access.Right) bool {
	return d.rights[group].Has(required)
}

// Groups returns the configured group names, for diagnostics.
func (d *StaticDirectory) Groups() []string {
	out := make([]string, 0, len(d.rights))
	for g := range d.rights {
		out = append(out, g)
	}
	return out
}

// ParseDirectory parses the AUTHZ_GROUP_RIGHTS format:
// group:right|right[;group:right...], e.g. "finance-team:read|write;auditors:read".
// Blank entries are skipped; unknown right names fail loudly so a typo cannot
// silently drop access.
func ParseDirectory(spec string) (*StaticDirectory, error) {
	mapping := make(map[string]access.Rights)
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		group, list, found := strings.Cut(entry, ":")
		group = strings.TrimSpace(group)
		if !found || group == "" {
			return nil, fmt.Errorf("group rights: malformed entry %q", entry)
		}

		var rights access.Rights
		for _, name := range strings.Split(list, "|") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			r, err := access.ParseRight(name)
			if err != nil {
				return nil, fmt.Errorf("group rights: entry %q: %w", entry, err)
			}
			rights = rights.Union(access.NewRights(r))
		}
		if rights.IsEmpty() {
			return nil, fmt.Errorf("group rights: entry %q grants nothing", entry)
		}

		// Later entries for the same group merge rather than overwrite.
		mapping[group] = mapping[group].Union(rights)
	}
	return NewStaticDirectory(mapping), nil
}
