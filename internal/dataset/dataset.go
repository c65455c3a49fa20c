// Package dataset provides the static climate dataset: causes, effects and solutions
// for every known (city, issue) pair.
//
// The dataset is loaded once at startup and never mutated afterwards, so a *Dataset is
// safe for concurrent reads without locking.
package dataset

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/BTreeMap/ClimateCanvas/internal/models"
)

//go:embed climate_data.yaml
var embeddedData []byte

var (
	// ErrEmptyDataset is returned when a dataset file defines no cities.
	ErrEmptyDataset = errors.New("dataset defines no cities")

	defaultOnce    sync.Once
	defaultDataset *Dataset
)

// Dataset is an immutable city -> issue -> content table.
type Dataset struct {
	entries map[string]map[string]models.ClimateIssueData
}

// Parse decodes and validates a YAML dataset.
func Parse(data []byte) (*Dataset, error) {
	var raw map[string]map[string]models.ClimateIssueData
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyDataset
	}
	for city, issues := range raw {
		if strings.TrimSpace(city) == "" {
			return nil, errors.New("dataset contains an empty city name")
		}
		if len(issues) == 0 {
			return nil, fmt.Errorf("city %q defines no issues", city)
		}
		for issue, content := range issues {
			if strings.TrimSpace(issue) == "" {
				return nil, fmt.Errorf("city %q contains an empty issue name", city)
			}
			if len(content.Causes) == 0 || len(content.Effects) == 0 || len(content.Solutions) == 0 {
				return nil, fmt.Errorf("%s/%s must define causes, effects and solutions", city, issue)
			}
		}
	}
	return &Dataset{entries: raw}, nil
}

// Load reads the dataset from path, or the embedded copy when path is empty.
func Load(path string) (*Dataset, error) {
	if path == "" {
		slog.Debug("dataset.Load: using embedded dataset")
		return Parse(embeddedData)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file %s: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset file %s: %w", path, err)
	}
	slog.Debug("dataset.Load: dataset loaded from file", "path", path, "cities", len(d.entries))
	return d, nil
}

// Default returns the embedded dataset, parsed on first use.
func Default() *Dataset {
	defaultOnce.Do(func() {
		d, err := Parse(embeddedData)
		if err != nil {
			panic(fmt.Sprintf("embedded climate dataset is invalid: %v", err))
		}
		defaultDataset = d
	})
	return defaultDataset
}

// Lookup returns a copy of the content for an issue in a city.
func (d *Dataset) Lookup(city, issue string) (models.ClimateIssueData, bool) {
	issues, ok := d.entries[city]
	if !ok {
		return models.ClimateIssueData{}, false
	}
	content, ok := issues[issue]
	if !ok {
		return models.ClimateIssueData{}, false
	}
	return models.ClimateIssueData{
		Causes:    append([]string(nil), content.Causes...),
		Effects:   append([]string(nil), content.Effects...),
		Solutions: append([]string(nil), content.Solutions...),
	}, true
}

// Has reports whether the (city, issue) pair is known.
func (d *Dataset) Has(city, issue string) bool {
	_, ok := d.entries[city][issue]
	return ok
}

// Issues returns the sorted issue names of a city.
func (d *Dataset) Issues(city string) ([]string, bool) {
	issues, ok := d.entries[city]
	if !ok {
		return nil, false
	}
	names := make([]string, 0, len(issues))
	for name := range issues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, true
}

// Cities returns every city with its issues, sorted by city name.
func (d *Dataset) Cities() []models.CityIssues {
	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	cities := make([]models.CityIssues, 0, len(names))
	for _, name := range names {
		issues, _ := d.Issues(name)
		cities = append(cities, models.CityIssues{City: name, Issues: issues})
	}
	return cities
}
