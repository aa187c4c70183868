package parser

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/io-crosscheck/backend/internal/models"
)

// ParseCrosscheckRules parses a YAML rules overlay with extra strip
// suffixes and IO catalog patterns. The built-in tables stay as they
// are; the overlay only extends them.
func ParseCrosscheckRules(filePath string) (*models.CrosscheckRules, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseCrosscheckRulesFromReader(file)
}

// ParseCrosscheckRulesFromReader parses rules from an io.Reader.
func ParseCrosscheckRulesFromReader(r io.Reader) (*models.CrosscheckRules, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var rules models.CrosscheckRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, err
	}

	return &rules, nil
}
