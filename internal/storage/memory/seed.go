package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

type seedFile struct {
	Stories []preview.Story `yaml:"stories"`
}

// LoadSeedFile reads stories from a YAML document of the form
//
//	stories:
//	  - id: s1
//	    slug: hello
//	    status: approved
//	    title: Hello
func LoadSeedFile(path string) ([]preview.Story, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(raw, path)
}

// ParseSeed decodes a seed document read from source.
func ParseSeed(raw []byte, source string) ([]preview.Story, error) {
	var doc seedFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", source, err)
	}
	for i, st := range doc.Stories {
		if st.ID == "" {
			return nil, fmt.Errorf("seed file %s: story %d has no id", source, i)
		}
	}
	return doc.Stories, nil
}
