package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config mirrors drsbrowser.yaml. Flags override file values.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`
	Encoding   string `yaml:"encoding"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8000",
		DataDir:    ".",
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "Failed to read config %q", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "Failed to parse config %q", path)
	}

	if cfg.Encoding != "" {
		if err := SetEncoding(cfg.Encoding); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}
