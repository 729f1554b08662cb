package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/scoremerge/internal/merge"
)

// ProjectConfig holds project-level settings loaded from scoremerge.yml.
type ProjectConfig struct {
	Policy       string `yaml:"policy,omitempty"`
	InboxDir     string `yaml:"inboxDir,omitempty"`
	OutputDir    string `yaml:"outputDir,omitempty"`
	HistoryDB    string `yaml:"historyDB,omitempty"`
	ListenAddr   string `yaml:"listenAddr,omitempty"`
	QuestionsCSV string `yaml:"questionsCSV,omitempty"`
	Verbose      bool   `yaml:"verbose,omitempty"`
}

// Load attempts to read scoremerge.yml or scoremerge.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"scoremerge.yml", "scoremerge.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// MergePolicy parses the configured policy, defaulting when unset.
func (c *ProjectConfig) MergePolicy() (merge.Policy, error) {
	return merge.ParsePolicy(c.Policy)
}
