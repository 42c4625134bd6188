package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mmnews/internal/model"
)

// SourcesConfig is YAML config structure
// sources:
//   - name: BBC Burmese
//     url: https://www.bbc.com/burmese
type SourcesConfig struct {
	Sources []struct {
		Name string `yaml:"name"`
		URL  string `yaml:"url"`
	} `yaml:"sources"`
}

// LoadSources reads the configured source list from a YAML file.
func LoadSources(path string) ([]model.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg SourcesConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	var sources []model.Source
	for _, s := range cfg.Sources {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("source entry needs both name and url")
		}
		sources = append(sources, model.Source{Name: s.Name, URL: s.URL, IsActive: true})
	}
	return sources, nil
}
