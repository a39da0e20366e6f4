package teardown

import (
	"strings"

	"github.com/letsgo-sh/ops/pkg/types"
)

// Select validates requested category names against catalog and returns the
// concrete categories to remove. Names are matched case-insensitively and
// "all" expands to every concrete category in the catalog. Every unknown
// name is reported in a single *types.InvalidSelectionError. Blank names are
// ignored, so an empty request yields an empty selection.
func Select(requested []string, catalog []types.ArtifactCategory) (types.SelectionSet, error) {
	known := make(map[string]types.ArtifactCategory, len(catalog))
	for _, c := range catalog {
		known[strings.ToLower(string(c))] = c
	}

	selection := types.SelectionSet{}
	var unknown []string
	for _, raw := range requested {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		c, ok := known[name]
		if !ok {
			unknown = append(unknown, raw)
			continue
		}
		if c.IsMeta() {
			for _, member := range catalog {
				if !member.IsMeta() {
					selection[member] = true
				}
			}
			continue
		}
		selection[c] = true
	}

	if len(unknown) > 0 {
		return nil, types.NewInvalidSelectionError(unknown, types.CatalogNames(catalog))
	}
	return selection, nil
}
