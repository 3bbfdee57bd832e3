package cmd

import (
	"encoding/json"
	"io"

	"github.com/zenprocess/open-lovable-cf/internal/app"
	"github.com/zenprocess/open-lovable-cf/internal/config"
	"github.com/zenprocess/open-lovable-cf/internal/errors"
)

// loadConfig reads the config file named by --config, or the default one.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.ConfigError("loading configuration", err)
	}
	return cfg, nil
}

// getApp returns the application, building it from the config on first use.
func getApp() (*app.App, error) {
	if app.Default != nil {
		return app.Default, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(app.WithConfig(cfg))
	if err != nil {
		return nil, err
	}
	app.SetDefault(a)
	return a, nil
}

func writeJSONIndent(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
