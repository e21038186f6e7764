// Package descriptor reads planning domains and problems from YAML
// documents and builds validated model values from them.
//
// A domain document:
//
//	domain: logistics
//	types: {truck: vehicle, vehicle: object, location: object}
//	predicates:
//	  at: [vehicle, location]
//	  handempty: []
//	constants:
//	  - {name: depot, type: location}
//	actions:
//	  - name: drive
//	    parameters: [{name: t, type: truck}, {name: from, type: location}, {name: to, type: location}]
//	    precondition:
//	      and:
//	        - atom: [at, t, from]
//	        - not: {atom: [at, t, to]}
//	        - exists: {vars: [{name: c, type: city}], body: {atom: [in-city, to, c]}}
//	    effects:
//	      - delete: [at, t, from]
//	      - add: [at, t, to]
//
// Preconditions may also use or, imply and forall, and effects may use
// when; those forms are parsed and then rejected with
// model.ErrUnsupportedPreconditionForm.
package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/daviddao/liftplan/pkg/model"
)

type domainDoc struct {
	Domain     string            `yaml:"domain"`
	Types      map[string]string `yaml:"types"`
	Predicates yaml.Node         `yaml:"predicates"`
	Constants  []model.Object    `yaml:"constants"`
	Actions    []actionDoc       `yaml:"actions"`
}

type actionDoc struct {
	Name         string          `yaml:"name"`
	Parameters   []model.VarDecl `yaml:"parameters"`
	Precondition formulaNode     `yaml:"precondition"`
	Effects      []effectNode    `yaml:"effects"`
}

func decode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty document", ErrSyntax)
		}
		return err
	}
	return nil
}

// LoadDomain reads a domain document. Any invalid schema aborts the whole
// domain.
func LoadDomain(r io.Reader) (*model.Domain, error) {
	var doc domainDoc
	if err := decode(r, &doc); err != nil {
		return nil, fmt.Errorf("load domain: %w", err)
	}
	if doc.Domain == "" {
		return nil, fmt.Errorf("load domain: %w: missing domain name", ErrSyntax)
	}
	h, err := BuildHierarchy(doc.Types)
	if err != nil {
		return nil, fmt.Errorf("load domain %s: %w", doc.Domain, err)
	}
	preds, err := decodePredicates(&doc.Predicates)
	if err != nil {
		return nil, fmt.Errorf("load domain %s: %w", doc.Domain, err)
	}
	schemas := make([]*model.Schema, 0, len(doc.Actions))
	for _, a := range doc.Actions {
		def := model.ActionDef{
			Name:         a.Name,
			Params:       a.Parameters,
			Precondition: a.Precondition.f,
		}
		for _, e := range a.Effects {
			def.Effects = append(def.Effects, e.e)
		}
		s, err := model.CompileSchema(def)
		if err != nil {
			return nil, fmt.Errorf("load domain %s: %w", doc.Domain, err)
		}
		schemas = append(schemas, s)
	}
	return model.NewDomain(doc.Domain, h, preds, doc.Constants, schemas)
}

// decodePredicates reads the predicates mapping in declaration order.
func decodePredicates(n *yaml.Node) ([]model.Predicate, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, syntaxErr(n, "predicates must be a mapping of name to parameter types")
	}
	preds := make([]model.Predicate, 0, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		p := model.Predicate{Name: n.Content[i].Value}
		if err := n.Content[i+1].Decode(&p.Params); err != nil {
			return nil, fmt.Errorf("predicate %s: %w", p.Name, err)
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// LoadDomainFile reads a domain document from path.
func LoadDomainFile(path string) (*model.Domain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load domain: %w", err)
	}
	return LoadDomain(bytes.NewReader(data))
}
