package matcher

import (
	"os"

	"gopkg.in/yaml.v3"

	errs "phonetic-name-match/pkg/errors"
)

// LoadConfig reads a YAML engine override from path. Fields omitted in the
// file keep their defaults; an empty path returns DefaultConfig unchanged.
// The merged result is validated before it is returned.
func LoadConfig(path string) (Config, error) {
	const op = "matcher.LoadConfig"
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errs.NewConfig(op, "cannot read engine config file", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errs.NewConfig(op, "cannot parse engine config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
