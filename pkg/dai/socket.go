package dai

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CameraBoardSocket identifies a physical camera input on a device.
type CameraBoardSocket int

const (
	AUTO CameraBoardSocket = iota - 1
	CAM_A
	CAM_B
	CAM_C
	CAM_D
	CAM_E
	CAM_F
	CAM_G
	CAM_H
)

var socketNames = map[CameraBoardSocket]string{
	AUTO:  "AUTO",
	CAM_A: "CAM_A",
	CAM_B: "CAM_B",
	CAM_C: "CAM_C",
	CAM_D: "CAM_D",
	CAM_E: "CAM_E",
	CAM_F: "CAM_F",
	CAM_G: "CAM_G",
	CAM_H: "CAM_H",
}

// legacy aliases still found in older driver configs
var socketAliases = map[string]CameraBoardSocket{
	"RGB":    CAM_A,
	"CENTER": CAM_A,
	"LEFT":   CAM_B,
	"RIGHT":  CAM_C,
}

func (s CameraBoardSocket) String() string {
	if name, ok := socketNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CameraBoardSocket(%d)", int(s))
}

// Valid reports whether s names a concrete socket (AUTO is not one).
func (s CameraBoardSocket) Valid() bool {
	return s >= CAM_A && s <= CAM_H
}

// ParseCameraBoardSocket accepts canonical names (CAM_A), legacy aliases (LEFT)
// and is case insensitive.
func ParseCameraBoardSocket(name string) (CameraBoardSocket, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range socketNames {
		if n == upper {
			return s, nil
		}
	}
	if s, ok := socketAliases[upper]; ok {
		return s, nil
	}
	return AUTO, fmt.Errorf("unknown camera board socket %q", name)
}

func (s CameraBoardSocket) MarshalYAML() (any, error) {
	return s.String(), nil
}

func (s *CameraBoardSocket) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseCameraBoardSocket(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
