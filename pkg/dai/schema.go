package dai

import (
	"encoding/json"
)

// SchemaNode describes one graph node.
type SchemaNode struct {
	ID         int               `json:"id"`
	Kind       NodeKind          `json:"kind"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
}

// SchemaLink describes one connection between nodes.
type SchemaLink struct {
	FromNode   int    `json:"from_node"`
	FromOutput string `json:"from_output"`
	ToNode     int    `json:"to_node"`
	ToInput    string `json:"to_input"`
}

// Schema is a serialisable snapshot of the graph. It carries no session
// identifiers so two builds with identical inputs produce equal schemas.
type Schema struct {
	Device string       `json:"device"`
	Nodes  []SchemaNode `json:"nodes"`
	Links  []SchemaLink `json:"links"`
}

// Schema returns a snapshot of the current graph.
func (p *Pipeline) Schema() Schema {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Schema{
		Nodes: make([]SchemaNode, 0, len(p.nodes)),
		Links: make([]SchemaLink, 0, len(p.links)),
	}
	if p.device != nil {
		s.Device = p.device.ProductName()
	}
	for _, n := range p.nodes {
		s.Nodes = append(s.Nodes, SchemaNode{
			ID:         n.ID(),
			Kind:       n.Kind(),
			Name:       n.Name(),
			Properties: n.properties(),
		})
	}
	for _, l := range p.links {
		s.Links = append(s.Links, SchemaLink(l))
	}
	return s
}

// JSON encodes the schema. Map keys are emitted sorted so the encoding is stable.
func (s Schema) JSON() ([]byte, error) {
	return json.Marshal(s)
}
