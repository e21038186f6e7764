package descriptor

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/daviddao/liftplan/pkg/model"
)

type problemDoc struct {
	Problem string         `yaml:"problem"`
	Domain  string         `yaml:"domain"`
	Objects []model.Object `yaml:"objects"`
	Init    [][]string     `yaml:"init"`
	Goal    []goalNode     `yaml:"goal"`
}

// goalNode is [pred, obj...] or {not: [pred, obj...]}.
type goalNode struct {
	sign  model.Sign
	parts []string
}

func (g *goalNode) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		key, val, err := singleKey(n)
		if err != nil {
			return err
		}
		if key != "not" {
			return syntaxErr(n, "goal literal must be a list or {not: [...]}")
		}
		g.sign = model.Negative
		n = val
	}
	if n.Kind != yaml.SequenceNode {
		return syntaxErr(n, "goal literal must be a list [predicate, objects...]")
	}
	return n.Decode(&g.parts)
}

func groundFact(parts []string, objects *model.ObjectTable) (model.Fact, error) {
	if len(parts) == 0 {
		return model.Fact{}, fmt.Errorf("%w: empty fact", ErrSyntax)
	}
	args := make(model.Tuple, len(parts)-1)
	for i, name := range parts[1:] {
		id, ok := objects.Lookup(name)
		if !ok {
			return model.Fact{}, fmt.Errorf("%s: %w: unknown object %q", parts[0], model.ErrInvalidObjectReference, name)
		}
		args[i] = id
	}
	return model.Fact{Predicate: parts[0], Args: args}, nil
}

// LoadProblem reads a problem document against d. The object table holds
// the domain constants first, then the problem objects in order.
func LoadProblem(d *model.Domain, r io.Reader) (*model.Problem, error) {
	if d == nil {
		return nil, fmt.Errorf("load problem: %w", model.ErrNoDomain)
	}
	var doc problemDoc
	if err := decode(r, &doc); err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	if doc.Problem == "" {
		return nil, fmt.Errorf("load problem: %w: missing problem name", ErrSyntax)
	}
	if doc.Domain != "" && doc.Domain != d.Name {
		return nil, fmt.Errorf("load problem %s: %w: %s, loaded %s", doc.Problem, model.ErrDomainMismatch, doc.Domain, d.Name)
	}

	objects := append(append([]model.Object(nil), d.Constants...), doc.Objects...)
	table, err := model.NewObjectTable(objects)
	if err != nil {
		return nil, fmt.Errorf("load problem %s: %w", doc.Problem, err)
	}
	init := make([]model.Fact, 0, len(doc.Init))
	for _, parts := range doc.Init {
		f, err := groundFact(parts, table)
		if err != nil {
			return nil, fmt.Errorf("load problem %s: init: %w", doc.Problem, err)
		}
		init = append(init, f)
	}
	goal := make([]model.GoalLiteral, 0, len(doc.Goal))
	for _, g := range doc.Goal {
		f, err := groundFact(g.parts, table)
		if err != nil {
			return nil, fmt.Errorf("load problem %s: goal: %w", doc.Problem, err)
		}
		goal = append(goal, model.GoalLiteral{Sign: g.sign, Fact: f})
	}
	return model.NewProblem(d, doc.Problem, objects, init, goal)
}

// LoadProblemFile reads a problem document from path.
func LoadProblemFile(d *model.Domain, path string) (*model.Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	return LoadProblem(d, bytes.NewReader(data))
}
