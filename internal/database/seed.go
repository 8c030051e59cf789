package database

import (
	"fmt"
	"os"
	"strings"

	"labreserve/internal/models"

	"gopkg.in/yaml.v2"
)

type laboratoriesFile struct {
	Laboratories []models.Laboratory `yaml:"laboratories"`
}

// LoadLaboratories reads the laboratory seed file.
func LoadLaboratories(path string) ([]models.Laboratory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read laboratories: %w", err)
	}

	var file laboratoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse laboratories: %w", err)
	}

	if err := ValidateLaboratories(file.Laboratories); err != nil {
		return nil, err
	}
	return file.Laboratories, nil
}

// ValidateLaboratories rejects zero or duplicate ids and unnamed entries.
func ValidateLaboratories(labs []models.Laboratory) error {
	seen := make(map[int64]bool, len(labs))
	for _, lab := range labs {
		if lab.ID <= 0 {
			return fmt.Errorf("laboratory '%s' has invalid ID %d", lab.Name, lab.ID)
		}
		if strings.TrimSpace(lab.Name) == "" {
			return fmt.Errorf("laboratory %d has empty name", lab.ID)
		}
		if lab.Capacity < 0 {
			return fmt.Errorf("laboratory %d has negative capacity", lab.ID)
		}
		if seen[lab.ID] {
			return fmt.Errorf("duplicate laboratory ID found: %d", lab.ID)
		}
		seen[lab.ID] = true
	}
	return nil
}
