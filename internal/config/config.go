// Package config reads the optional YAML configuration file and validates
// the option structs the commands build from their flags.
//
// The file holds one section per command. Keys are flag names and values are
// applied only to flags the user did not set on the command line:
//
//	deps:
//	  depth: 2
//	  no-dev: true
//	  exclude: ["windows-*", "*-sys"]
//	fn-graph:
//	  public-only: true
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no file is named.
const DefaultFile = ".rust-grapher.yaml"

// ErrInvalid is returned for malformed configuration and invalid options.
var ErrInvalid = errors.New("invalid configuration")

// File is a parsed configuration file.
type File struct {
	// Path is where the file was read from; empty when no file was found.
	Path     string
	Sections map[string]map[string]any
}

// Load reads the configuration at path. An empty path tries DefaultFile and
// yields an empty File when it does not exist; a named file must exist.
func Load(path string) (*File, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes configuration data read from path.
func Parse(path string, data []byte) (*File, error) {
	sections := map[string]map[string]any{}
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return &File{Path: path, Sections: sections}, nil
}

// Apply sets the flags of command that the user left unset from the
// command's section. Unknown keys are an error.
func (f *File) Apply(command string, flags *pflag.FlagSet) error {
	section := f.Sections[command]
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fl := flags.Lookup(key)
		if fl == nil {
			return fmt.Errorf("%w: %s: unknown key %q in section %q", ErrInvalid, f.Path, key, command)
		}
		if fl.Changed {
			continue
		}
		value, err := flagValue(section[key])
		if err != nil {
			return fmt.Errorf("%w: %s: %s.%s: %v", ErrInvalid, f.Path, command, key, err)
		}
		if err := flags.Set(key, value); err != nil {
			return fmt.Errorf("%w: %s: %s.%s: %v", ErrInvalid, f.Path, command, key, err)
		}
	}
	return nil
}

// flagValue renders a decoded YAML value in the text form pflag parses.
// Lists become comma-separated values for slice flags.
func flagValue(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, err := flagValue(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	case map[string]any:
		return "", errors.New("nested mappings are not supported")
	default:
		return fmt.Sprint(v), nil
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the validate tags of v, which must be a struct or a
// pointer to one.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
