package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/TobiSchelling/trendfinder/internal/config"
)

// applyEnv copies TRENDFINDER_* environment overrides onto cfg.
func applyEnv(cfg *config.Config, v *viper.Viper) error {
	if v.IsSet("query") {
		cfg.Trends.Query = v.GetString("query")
	}
	if v.IsSet("max_results") {
		n := v.GetInt("max_results")
		if n <= 0 {
			return fmt.Errorf("TRENDFINDER_MAX_RESULTS must be a positive integer, got %q", v.GetString("max_results"))
		}
		cfg.Trends.MaxResults = n
	}
	if v.IsSet("provider") {
		cfg.Enrichment.Provider = v.GetString("provider")
	}
	if v.IsSet("log_level") {
		cfg.Logging.Level = v.GetString("log_level")
	}
	if v.IsSet("data_dir") {
		cfg.Output.DataDir = v.GetString("data_dir")
	}
	return nil
}
