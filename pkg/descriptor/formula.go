package descriptor

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/daviddao/liftplan/pkg/model"
)

// ErrSyntax is returned for documents that do not have the expected shape.
var ErrSyntax = errors.New("descriptor syntax error")

func syntaxErr(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, n.Line, fmt.Sprintf(format, args...))
}

// formulaNode decodes a precondition tree. Each node is a mapping with a
// single key naming the connective.
type formulaNode struct {
	f model.Formula
}

func (fn *formulaNode) UnmarshalYAML(n *yaml.Node) error {
	f, err := decodeFormula(n)
	if err != nil {
		return err
	}
	fn.f = f
	return nil
}

type quantifierDoc struct {
	Vars []model.VarDecl `yaml:"vars"`
	Body yaml.Node       `yaml:"body"`
}

type implyDoc struct {
	If   yaml.Node `yaml:"if"`
	Then yaml.Node `yaml:"then"`
}

func singleKey(n *yaml.Node) (string, *yaml.Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, syntaxErr(n, "expected a mapping with exactly one key")
	}
	return n.Content[0].Value, n.Content[1], nil
}

func decodeFormula(n *yaml.Node) (model.Formula, error) {
	if n.Kind == 0 || n.Tag == "!!null" {
		return nil, nil
	}
	key, val, err := singleKey(n)
	if err != nil {
		return nil, err
	}
	switch key {
	case "atom":
		return decodeAtom(val)
	case "and", "or":
		if val.Kind != yaml.SequenceNode {
			return nil, syntaxErr(val, "%s takes a list", key)
		}
		parts := make([]model.Formula, 0, len(val.Content))
		for _, c := range val.Content {
			f, err := decodeFormula(c)
			if err != nil {
				return nil, err
			}
			parts = append(parts, f)
		}
		if key == "and" {
			return model.And(parts), nil
		}
		return model.Or(parts), nil
	case "not":
		inner, err := decodeFormula(val)
		if err != nil {
			return nil, err
		}
		return model.Not{Inner: inner}, nil
	case "imply":
		var d implyDoc
		if err := val.Decode(&d); err != nil {
			return nil, err
		}
		cond, err := decodeFormula(&d.If)
		if err != nil {
			return nil, err
		}
		then, err := decodeFormula(&d.Then)
		if err != nil {
			return nil, err
		}
		return model.Imply{If: cond, Then: then}, nil
	case "exists", "forall":
		var d quantifierDoc
		if err := val.Decode(&d); err != nil {
			return nil, err
		}
		body, err := decodeFormula(&d.Body)
		if err != nil {
			return nil, err
		}
		if key == "exists" {
			return model.Exists{Vars: d.Vars, Body: body}, nil
		}
		return model.ForAll{Vars: d.Vars, Body: body}, nil
	default:
		return nil, syntaxErr(n, "unknown connective %q", key)
	}
}

// decodeAtom reads [predicate, arg...].
func decodeAtom(n *yaml.Node) (model.Atom, error) {
	var parts []string
	if n.Kind != yaml.SequenceNode {
		return model.Atom{}, syntaxErr(n, "atom must be a list [predicate, args...]")
	}
	if err := n.Decode(&parts); err != nil {
		return model.Atom{}, err
	}
	if len(parts) == 0 || parts[0] == "" {
		return model.Atom{}, syntaxErr(n, "atom without predicate")
	}
	return model.Atom{Predicate: parts[0], Args: parts[1:]}, nil
}

// effectNode decodes one effect: {add: [...]}, {delete: [...]} or the
// unsupported {when: ...}.
type effectNode struct {
	e model.EffectDef
}

func (en *effectNode) UnmarshalYAML(n *yaml.Node) error {
	key, val, err := singleKey(n)
	if err != nil {
		return err
	}
	switch key {
	case "add", "delete":
		a, err := decodeAtom(val)
		if err != nil {
			return err
		}
		en.e = model.EffectDef{Kind: model.Add, Atom: a}
		if key == "delete" {
			en.e.Kind = model.Delete
		}
		return nil
	case "when":
		return fmt.Errorf("%w: conditional effect at line %d", model.ErrUnsupportedPreconditionForm, n.Line)
	default:
		return syntaxErr(n, "unknown effect %q", key)
	}
}
