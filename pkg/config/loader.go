package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// configValidate checks struct tags; field names are reported by yaml key.
var configValidate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field constraints. It does not
// check that the succession mapping is a bijection; graph construction does.
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := configValidate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateNetwork(&cfg.Network); err != nil {
		return fmt.Errorf("network validation failed: %w", err)
	}

	return nil
}

// validateNetwork validates the executor offsets against the node count
func validateNetwork(n *Network) error {
	if n.Quorum > len(n.ExecutorOffsets) {
		return fmt.Errorf("quorum %d exceeds the number of executor offsets (%d)", n.Quorum, len(n.ExecutorOffsets))
	}

	seen := make(map[int]int, len(n.ExecutorOffsets))
	for _, off := range n.ExecutorOffsets {
		r := off % n.Nodes
		if r == 0 {
			return fmt.Errorf("executor offset %d is a multiple of nodes (%d)", off, n.Nodes)
		}
		if prev, dup := seen[r]; dup {
			return fmt.Errorf("executor offsets %d and %d coincide modulo %d", prev, off, n.Nodes)
		}
		seen[r] = off
	}

	return nil
}

// formatValidationError flattens validator errors into a single message
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
