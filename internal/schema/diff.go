package schema

import (
	"fmt"
	"maps"

	"dairos.szuro.net/pkg/dai"
)

// Diff lists the differences between a stored and a freshly built schema.
// Node ids are compared as well since links refer to them.
func Diff(stored, built dai.Schema) []string {
	var diffs []string
	if stored.Device != built.Device {
		diffs = append(diffs, fmt.Sprintf("device %q != %q", stored.Device, built.Device))
	}

	if len(stored.Nodes) != len(built.Nodes) {
		diffs = append(diffs, fmt.Sprintf("node count %d != %d", len(stored.Nodes), len(built.Nodes)))
	}
	for i := 0; i < min(len(stored.Nodes), len(built.Nodes)); i++ {
		a, b := stored.Nodes[i], built.Nodes[i]
		switch {
		case a.ID != b.ID || a.Kind != b.Kind || a.Name != b.Name:
			diffs = append(diffs, fmt.Sprintf("node %d: %s %s#%d != %s %s#%d", i, a.Kind, a.Name, a.ID, b.Kind, b.Name, b.ID))
		case !maps.Equal(a.Properties, b.Properties):
			diffs = append(diffs, fmt.Sprintf("node %d: %s properties differ", i, a.Name))
		}
	}

	if len(stored.Links) != len(built.Links) {
		diffs = append(diffs, fmt.Sprintf("link count %d != %d", len(stored.Links), len(built.Links)))
	}
	for i := 0; i < min(len(stored.Links), len(built.Links)); i++ {
		if stored.Links[i] != built.Links[i] {
			diffs = append(diffs, fmt.Sprintf("link %d: %+v != %+v", i, stored.Links[i], built.Links[i]))
		}
	}
	return diffs
}
