// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML config file schema. Pointer fields distinguish
// "unset" from zero values so file settings only override what they name.
type FileConfig struct {
	Server struct {
		ListenAddr     *string  `yaml:"listenAddr"`
		MetricsAddr    *string  `yaml:"metricsAddr"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		MaxUploadMB    *int     `yaml:"maxUploadMB"`
		RateLimitRPM   *int     `yaml:"rateLimitRPM"`
	} `yaml:"server"`

	Log struct {
		Level   *string `yaml:"level"`
		Service *string `yaml:"service"`
	} `yaml:"log"`

	Store struct {
		Backend    *string `yaml:"backend"`
		DataDir    *string `yaml:"dataDir"`
		SQLitePath *string `yaml:"sqlitePath"`
	} `yaml:"store"`

	Supabase struct {
		URL *string `yaml:"url"`
	} `yaml:"supabase"`

	Classifier struct {
		Model *string  `yaml:"model"`
		RPS   *float64 `yaml:"rps"`
	} `yaml:"classifier"`

	Parse struct {
		BaseURL        *string `yaml:"baseURL"`
		TimeoutSeconds *int    `yaml:"timeoutSeconds"`
	} `yaml:"parse"`

	OCR struct {
		TesseractPath *string  `yaml:"tesseractPath"`
		Languages     []string `yaml:"languages"`
	} `yaml:"ocr"`

	Redis struct {
		Addr *string `yaml:"addr"`
		DB   *int    `yaml:"db"`
	} `yaml:"redis"`

	Workers *int `yaml:"workers"`

	Tracing struct {
		Enabled    *bool    `yaml:"enabled"`
		Exporter   *string  `yaml:"exporter"`
		Endpoint   *string  `yaml:"endpoint"`
		SampleRate *float64 `yaml:"sampleRate"`
	} `yaml:"tracing"`
}

// LoadFileConfig parses a YAML config file strictly (unknown keys rejected).
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}
