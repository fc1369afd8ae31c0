package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch reads configPath and calls onChange with the reloaded configuration
// every time the file is written. A reload that fails to parse or validate is
// passed as an error and the previous configuration stays in effect.
// The returned Config is the initial one.
func Watch(configPath string, onChange func(*Config, error)) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("watch requires a config file path")
	}
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := LoadFromViper(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := LoadFromViper(v)
		if err == nil {
			err = next.Validate()
		}
		if err != nil {
			onChange(nil, fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}
		onChange(next, nil)
	})
	v.WatchConfig()
	return cfg, nil
}
