// Package inputfile reads registration inputs from a YAML file.
//
// The file has the shape
//
//	username: alice
//	password: AAAaaa999999
//	password_again: AAAaaa999999
//
// Missing keys are empty strings.
package inputfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/regform/internal/registration"
)

// Load reads and parses the input file at path.
func Load(path string) (registration.Fields, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is provided by the user
	if err != nil {
		return registration.Fields{}, fmt.Errorf("reading input file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return registration.Fields{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes YAML input. Unknown keys are rejected so typos such as
// "passwordAgain" are not silently ignored.
func Parse(data []byte) (registration.Fields, error) {
	var f registration.Fields

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return registration.Fields{}, nil
		}
		return registration.Fields{}, fmt.Errorf("parsing input: %w", err)
	}
	return f, nil
}
