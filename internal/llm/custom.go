package llm

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CustomProvider declares an extra OpenAI-compatible provider.
type CustomProvider struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	BaseURL      string `yaml:"base_url"`
	Path         string `yaml:"path"`
	DefaultModel string `yaml:"default_model"`
	ResponsePath string `yaml:"response_path"`
}

type providersFile struct {
	Providers []CustomProvider `yaml:"providers"`
}

// LoadProviders reads custom providers from a YAML file of the form:
//
//	providers:
//	  - id: local-vllm
//	    name: vLLM
//	    base_url: http://localhost:8000
//	    default_model: qwen2
func LoadProviders(path string) ([]*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "llm: read providers file %s", path)
	}
	return ParseProviders(data)
}

// ParseProviders decodes the YAML providers document.
func ParseProviders(data []byte) ([]*Provider, error) {
	var f providersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "llm: parse providers file")
	}

	out := make([]*Provider, 0, len(f.Providers))
	seen := make(map[string]bool, len(f.Providers))
	for i, cp := range f.Providers {
		if cp.ID == "" || cp.BaseURL == "" {
			return nil, eris.Errorf("llm: providers[%d]: id and base_url are required", i)
		}
		if seen[cp.ID] {
			return nil, eris.Errorf("llm: providers[%d]: duplicate id %q", i, cp.ID)
		}
		seen[cp.ID] = true
		out = append(out, cp.provider())
	}
	return out, nil
}

func (cp CustomProvider) provider() *Provider {
	name := cp.Name
	if name == "" {
		name = cp.ID
	}
	path := cp.Path
	if path == "" {
		path = "/v1/chat/completions"
	}
	p := openAICompatible(cp.ID, name, cp.BaseURL, path, cp.DefaultModel)
	if cp.ResponsePath != "" {
		p.HTTP.ResponsePath = cp.ResponsePath
	}
	return p
}
