package spawner

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/internal/util"
	"gopkg.in/yaml.v3"
)

var errNoBlueprint = errors.New("no blueprint in model output")

// ParseBlueprints extracts blueprints from model output. YAML and JSON are
// both accepted (optionally wrapped in a markdown fence), as a single
// mapping, a sequence, or a mapping with an "agents" key holding a sequence.
// Blueprints are normalized but not validated.
func ParseBlueprints(text string) ([]core.Blueprint, error) {
	body := util.StripFences(text)
	if body == "" {
		return nil, errNoBlueprint
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedBlueprint, err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errNoBlueprint
	}

	root := doc.Content[0]

	var bps []core.Blueprint
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&bps); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedBlueprint, err)
		}
	case yaml.MappingNode:
		if agents := mappingValue(root, "agents"); agents != nil {
			if err := agents.Decode(&bps); err != nil {
				return nil, fmt.Errorf("%w: %v", core.ErrMalformedBlueprint, err)
			}
			break
		}
		var bp core.Blueprint
		if err := root.Decode(&bp); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedBlueprint, err)
		}
		bps = []core.Blueprint{bp}
	default:
		return nil, fmt.Errorf("%w: unexpected %s", core.ErrMalformedBlueprint, body)
	}

	for i := range bps {
		bps[i] = Normalize(bps[i])
	}

	return bps, nil
}

// ParseBlueprint parses model output expected to hold exactly one blueprint
// and validates it.
func ParseBlueprint(text string) (core.Blueprint, error) {
	bps, err := ParseBlueprints(text)
	if err != nil {
		return core.Blueprint{}, err
	}
	if len(bps) == 0 {
		return core.Blueprint{}, errNoBlueprint
	}
	if err := bps[0].Validate(); err != nil {
		return core.Blueprint{}, err
	}
	return bps[0], nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// Normalize trims fields, drops blank patterns and derives a missing id from
// the name.
func Normalize(bp core.Blueprint) core.Blueprint {
	bp.ID = strings.TrimSpace(bp.ID)
	bp.Name = strings.TrimSpace(bp.Name)
	bp.Instruction = strings.TrimSpace(bp.Instruction)

	patterns := make([]string, 0, len(bp.Patterns))
	for _, p := range bp.Patterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	bp.Patterns = patterns

	if bp.ID == "" && bp.Name != "" {
		bp.ID = Slug(bp.Name) + "-" + core.NewID()[:8]
	}

	return bp
}

// Slug lower-cases s and joins its alphanumeric runs with dashes.
func Slug(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, "-")
}
