package config

import (
	"io/ioutil"
	"os"

	"github.com/Velocidex/yaml/v2"
	errors "github.com/pkg/errors"
)

type loader_func func(self *Loader) (*Config, error)

// The loader builds a validated config from a number of possible
// sources in priority order.
type Loader struct {
	loaders []loader_func
}

func (self *Loader) WithFileLoader(filename string) *Loader {
	if filename == "" {
		return self
	}

	result := self.Copy()
	result.loaders = append(result.loaders, func(self *Loader) (*Config, error) {
		return read_config_from_file(filename)
	})
	return result
}

func (self *Loader) WithEnvLoader(env_var string) *Loader {
	result := self.Copy()
	result.loaders = append(result.loaders, func(self *Loader) (*Config, error) {
		env_config := os.Getenv(env_var)
		if env_config == "" {
			return nil, errors.Errorf("Env var %v is not set", env_var)
		}
		return read_config_from_file(env_config)
	})
	return result
}

// Fall back to built in defaults when no other source produced a
// config.
func (self *Loader) WithDefaultConfig() *Loader {
	result := self.Copy()
	result.loaders = append(result.loaders, func(self *Loader) (*Config, error) {
		return GetDefaultConfig(), nil
	})
	return result
}

func (self *Loader) Copy() *Loader {
	return &Loader{
		loaders: append([]loader_func{}, self.loaders...),
	}
}

func (self *Loader) LoadAndValidate() (*Config, error) {
	for _, loader := range self.loaders {
		result, err := loader(self)
		if err == nil {
			return validate(result)
		}
	}
	return nil, errors.New("Unable to load config from any source.")
}

// Fill in defaults for missing sections so consumers do not need nil
// checks everywhere.
func validate(config_obj *Config) (*Config, error) {
	defaults := GetDefaultConfig()

	if config_obj.Datastore == nil {
		config_obj.Datastore = defaults.Datastore
	}
	if config_obj.Extraction == nil {
		config_obj.Extraction = defaults.Extraction
	}
	if config_obj.Extraction.Workers <= 0 {
		config_obj.Extraction.Workers = defaults.Extraction.Workers
	}
	if config_obj.Anomaly == nil {
		config_obj.Anomaly = defaults.Anomaly
	}
	if config_obj.Anomaly.ScoreThreshold <= 0 {
		config_obj.Anomaly.ScoreThreshold = defaults.Anomaly.ScoreThreshold
	}
	if config_obj.Anomaly.AdjacencyWindowSeconds <= 0 {
		config_obj.Anomaly.AdjacencyWindowSeconds = defaults.Anomaly.AdjacencyWindowSeconds
	}
	if config_obj.Anomaly.MediumScore <= 0 {
		config_obj.Anomaly.MediumScore = defaults.Anomaly.MediumScore
	}
	if config_obj.Anomaly.HighScore <= 0 {
		config_obj.Anomaly.HighScore = defaults.Anomaly.HighScore
	}
	if config_obj.Anomaly.CriticalScore <= 0 {
		config_obj.Anomaly.CriticalScore = defaults.Anomaly.CriticalScore
	}
	if config_obj.Anomaly.MediumScore >= config_obj.Anomaly.HighScore ||
		config_obj.Anomaly.HighScore >= config_obj.Anomaly.CriticalScore {
		return nil, errors.New(
			"Anomaly risk bands must be strictly increasing " +
				"(MediumScore < HighScore < CriticalScore)")
	}
	if config_obj.Logging == nil {
		config_obj.Logging = defaults.Logging
	}

	return config_obj, nil
}

func read_config_from_file(filename string) (*Config, error) {
	result := &Config{}

	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open config file %v", filename)
	}

	err = yaml.UnmarshalStrict(data, result)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to parse config file %v", filename)
	}
	return result, nil
}
