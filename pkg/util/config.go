package util

import (
	"fmt"

	"github.com/spf13/viper"
)

// ReadConfig loads config.yaml from configPath (./data/ when empty) into the global viper instance.
func ReadConfig(configPath string) error {
	if configPath == "" {
		configPath = "./data/"
	}
	viper.SetConfigName("config")
	viper.AddConfigPath(configPath)

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}
