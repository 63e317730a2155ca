package plugin

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"dairos.szuro.net/pkg/dai"
)

// PlanRequestToProto encodes a request for the wire.
func PlanRequestToProto(r PlanRequest) (*structpb.Struct, error) {
	params := make(map[string]any, len(r.Params))
	for k, v := range r.Params {
		params[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"device_name": r.DeviceName,
		"mxid":        r.MxID,
		"product":     r.Product,
		"sockets":     socketsToAny(r.Sockets),
		"params":      params,
		"rs_compat":   r.RsCompat,
		"nn_type":     r.NNType,
	})
}

// ProtoToPlanRequest decodes a request received over the wire.
func ProtoToPlanRequest(s *structpb.Struct) (PlanRequest, error) {
	m := s.AsMap()
	sockets, err := anyToSockets(m["sockets"])
	if err != nil {
		return PlanRequest{}, err
	}
	params, _ := m["params"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}
	return PlanRequest{
		DeviceName: stringField(m, "device_name"),
		MxID:       stringField(m, "mxid"),
		Product:    stringField(m, "product"),
		Sockets:    sockets,
		Params:     params,
		RsCompat:   boolField(m, "rs_compat"),
		NNType:     stringField(m, "nn_type"),
	}, nil
}

// PlanToProto encodes a plan for the wire.
func PlanToProto(pl Plan) (*structpb.Struct, error) {
	nodes := make([]any, 0, len(pl.Nodes))
	for _, n := range pl.Nodes {
		nodes = append(nodes, map[string]any{
			"name":    n.Name,
			"kind":    n.Kind,
			"sockets": socketsToAny(n.Sockets),
			"nn_mode": n.NNMode,
			"align":   n.Align.String(),
		})
	}
	return structpb.NewStruct(map[string]any{"nodes": nodes})
}

// ProtoToPlan decodes a plan received over the wire.
func ProtoToPlan(s *structpb.Struct) (Plan, error) {
	raw, _ := s.AsMap()["nodes"].([]any)
	pl := Plan{Nodes: make([]NodeSpec, 0, len(raw))}
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return Plan{}, fmt.Errorf("plan node %d is %T, not an object", i, item)
		}
		sockets, err := anyToSockets(m["sockets"])
		if err != nil {
			return Plan{}, fmt.Errorf("plan node %d: %w", i, err)
		}
		align := dai.AUTO
		if a := stringField(m, "align"); a != "" {
			if align, err = dai.ParseCameraBoardSocket(a); err != nil {
				return Plan{}, fmt.Errorf("plan node %d: %w", i, err)
			}
		}
		pl.Nodes = append(pl.Nodes, NodeSpec{
			Name:    stringField(m, "name"),
			Kind:    stringField(m, "kind"),
			Sockets: sockets,
			NNMode:  stringField(m, "nn_mode"),
			Align:   align,
		})
	}
	return pl, nil
}

// InfoToProto encodes plugin metadata.
func InfoToProto(info PluginInfo) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"name":        info.Name,
		"interface":   info.Interface,
		"version":     info.Version,
		"description": info.Description,
		"author":      info.Author,
	})
}

// ProtoToInfo decodes plugin metadata.
func ProtoToInfo(s *structpb.Struct) PluginInfo {
	m := s.AsMap()
	return PluginInfo{
		Name:        stringField(m, "name"),
		Interface:   stringField(m, "interface"),
		Version:     stringField(m, "version"),
		Description: stringField(m, "description"),
		Author:      stringField(m, "author"),
	}
}

func socketsToAny(sockets []dai.CameraBoardSocket) []any {
	out := make([]any, 0, len(sockets))
	for _, s := range sockets {
		out = append(out, s.String())
	}
	return out
}

func anyToSockets(v any) ([]dai.CameraBoardSocket, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("sockets must be a list, got %T", v)
	}
	sockets := make([]dai.CameraBoardSocket, 0, len(raw))
	for _, item := range raw {
		name, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("socket must be a string, got %T", item)
		}
		s, err := dai.ParseCameraBoardSocket(name)
		if err != nil {
			return nil, err
		}
		sockets = append(sockets, s)
	}
	return sockets, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}
