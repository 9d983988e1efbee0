// Package config loads filevault configuration with Viper.
//
// Values come from a YAML file (config.yml), an optional .env file loaded
// through godotenv, and environment variables. Environment variables are
// mapped onto nested keys, so FILEVAULT_STORAGE_PUBLIC_PATH (with the
// FILEVAULT_ prefix) or STORAGE_PUBLIC_PATH set storage.public.path.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.Load("filevault", &cfg, config.WithEnvPrefix("FILEVAULT"))
package config
