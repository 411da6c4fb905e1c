// Package knowledge loads the static company profile and few-shot examples
// that every generation prompt is built from.
package knowledge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Load reads the company profile and the example file. Both must exist and
// be well-formed; any problem is returned as an error before a run starts.
func Load(profilePath, examplesPath string) (*model.Knowledge, error) {
	profile, err := LoadProfile(profilePath)
	if err != nil {
		return nil, err
	}
	examples, err := LoadExamples(examplesPath)
	if err != nil {
		return nil, err
	}
	return &model.Knowledge{Profile: profile, Examples: examples}, nil
}

// LoadProfile reads the plain-text company profile.
func LoadProfile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "knowledge: read profile %s", path)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", eris.Errorf("knowledge: profile %s is empty", path)
	}
	return text, nil
}

// LoadExamples reads few-shot examples from a JSON or YAML list of
// {industry, email_body} records.
func LoadExamples(path string) ([]model.Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "knowledge: read examples %s", path)
	}

	var examples []model.Example
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &examples)
	default:
		err = json.Unmarshal(data, &examples)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "knowledge: parse examples %s", path)
	}

	if len(examples) == 0 {
		return nil, eris.Errorf("knowledge: examples %s contains no records", path)
	}
	for i, ex := range examples {
		if strings.TrimSpace(ex.Industry) == "" || strings.TrimSpace(ex.EmailBody) == "" {
			return nil, eris.Errorf("knowledge: example %d in %s needs both industry and email_body", i+1, path)
		}
	}
	return examples, nil
}
