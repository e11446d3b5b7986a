package auxfiles

import (
	"strings"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"
)

// vscriptEntries returns one entry per script named in a "vscripts"
// property. Names are space separated and may omit the .nut extension.
func vscriptEntries(entities []bsp.Entity) []entry {
	seen := make(map[string]struct{})
	var out []entry
	for _, e := range entities {
		for _, p := range e.Properties {
			if !strings.EqualFold(p.Key, "vscripts") {
				continue
			}
			for _, name := range strings.Fields(p.Value) {
				script, ok := entityPath(name)
				if !ok {
					continue
				}
				if _, ok := seen[script]; ok {
					continue
				}
				seen[script] = struct{}{}

				rel := "scripts/vscripts/" + script
				candidates := []candidate{{internal: rel, rel: rel}}
				if !strings.HasSuffix(script, ".nut") {
					candidates = append(candidates, candidate{internal: rel + ".nut", rel: rel + ".nut"})
				}
				out = append(out, entry{kind: KindVScript, candidates: candidates})
			}
		}
	}
	return out
}
