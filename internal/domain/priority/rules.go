package priority

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	rulesFilePermission = 0o600
	rulesFileHeader     = "# studyprio classifier rules\n"
)

// LoadThresholds reads a YAML rules file. Keys missing from the file keep
// their default values; unknown keys, malformed YAML and invalid values fail
// with a *ConfigurationError.
func LoadThresholds(_ context.Context, path string) (Thresholds, error) {
	if strings.TrimSpace(path) == "" {
		return Thresholds{}, &ConfigurationError{Key: "rules_file", Reason: "path is empty"}
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Thresholds{}, &ConfigurationError{Key: "rules_file", Reason: "cannot load " + path, Err: err}
	}

	if unknown := unknownKeys(k.Keys()); len(unknown) > 0 {
		return Thresholds{}, &ConfigurationError{Key: strings.Join(unknown, ","), Reason: "unknown rules key"}
	}

	t := DefaultThresholds()
	if err := k.UnmarshalWithConf("", &t, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Thresholds{}, &ConfigurationError{Key: "rules_file", Reason: "cannot decode " + path, Err: err}
	}
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}

// SaveThresholds validates t and writes it to path as YAML.
func SaveThresholds(_ context.Context, path string, t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}

	k := koanf.New(".")
	for key, value := range t.Map() {
		if err := k.Set(key, value); err != nil {
			return &ConfigurationError{Key: key, Reason: "cannot set", Err: err}
		}
	}
	body, err := k.Marshal(yaml.Parser())
	if err != nil {
		return &ConfigurationError{Key: "rules_file", Reason: "cannot encode", Err: err}
	}

	if err := os.WriteFile(path, append([]byte(rulesFileHeader), body...), rulesFilePermission); err != nil {
		return &ConfigurationError{Key: "rules_file", Reason: "cannot write " + path, Err: err}
	}
	return nil
}

func unknownKeys(keys []string) []string {
	known := DefaultThresholds().Map()
	var unknown []string
	for _, key := range keys {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}
