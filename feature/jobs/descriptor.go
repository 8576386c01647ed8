package jobs

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrValidation is returned for a descriptor that cannot be run. The job is
// skipped; nothing is sent to the remote side.
var ErrValidation = errors.New("invalid job descriptor")

// Descriptor is the content of a job descriptor file.
type Descriptor struct {
	// Mapper is the local mapper script.
	Mapper string `yaml:"mapper"`
	// Reducer is the local reducer script.
	Reducer string `yaml:"reducer"`
	// Input is the local input path, relative to the local root.
	Input string `yaml:"input"`
	// Output is the output directory, relative to the local root.
	Output string `yaml:"output"`
}

// ParseDescriptor reads a descriptor and checks that all four fields are set.
func ParseDescriptor(r io.Reader) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty descriptor", ErrValidation)
		}
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"mapper", d.Mapper},
		{"reducer", d.Reducer},
		{"input", d.Input},
		{"output", d.Output},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return &d, nil
}
