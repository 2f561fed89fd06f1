package state

import (
	"os"
	"path"
)

// State holds application state.
type State struct {
	Config  *Config
	Metrics *Metrics

	configPath string
}

// LoadOrInit loads the state from the specified base path.
// If the state is not initialized (i.e. config files etc. not created), the
// state is initialized.
func LoadOrInit(basePath string) (*State, error) {
	configPath := path.Join(basePath, "config.yaml")

	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}

	if err := CreateConfigIfNotExists(configPath); err != nil {
		return nil, err
	}
	config, err := ReadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.PopulateFromEnvironment(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &State{
		Config:  config,
		Metrics: NewMetrics(),

		configPath: configPath,
	}, nil
}

// Store stores the state to the same location it was read from.
func (s *State) Store() error {
	return s.Config.Store(s.configPath)
}
