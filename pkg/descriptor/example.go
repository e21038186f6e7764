package descriptor

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/daviddao/liftplan/pkg/model"
)

//go:embed examples/*.yaml
var examples embed.FS

// Example returns the bundled logistics domain and problem.
func Example() (*model.Domain, *model.Problem, error) {
	dy, py, err := ExampleFiles()
	if err != nil {
		return nil, nil, fmt.Errorf("example: %w", err)
	}
	d, err := LoadDomain(bytes.NewReader(dy))
	if err != nil {
		return nil, nil, fmt.Errorf("example: %w", err)
	}
	p, err := LoadProblem(d, bytes.NewReader(py))
	if err != nil {
		return nil, nil, fmt.Errorf("example: %w", err)
	}
	return d, p, nil
}

// ExampleFiles returns the raw example documents.
func ExampleFiles() (domain, problem []byte, err error) {
	if domain, err = examples.ReadFile("examples/logistics-domain.yaml"); err != nil {
		return nil, nil, err
	}
	if problem, err = examples.ReadFile("examples/logistics-problem.yaml"); err != nil {
		return nil, nil, err
	}
	return domain, problem, nil
}
