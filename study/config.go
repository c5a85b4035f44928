package study

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"

	"github.com/carbocation/urinestudy"
	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
)

// Config is the optional YAML configuration shared by the CLI and the web
// dashboard. Command-line flags override it.
type Config struct {
	ConfigPath string `yaml:"-"`

	Policy       string             `yaml:"policy"`
	Labels       string             `yaml:"labels"`
	CustomLabels *classify.LabelSet `yaml:"custom_labels"`
	DecimalComma bool               `yaml:"decimal_comma"`

	Layout    string            `yaml:"layout"`
	HeaderRow *int              `yaml:"header_row"`
	Sheet     string            `yaml:"sheet"`
	Columns   map[string]string `yaml:"columns"`

	Workers int    `yaml:"workers"`
	Output  string `yaml:"output"`
	Port    int    `yaml:"port"`
}

func ParseConfigFromPath(path string) (Config, error) {
	path = urinestudy.ExpandHome(path)

	f, err := os.Open(path)
	if err != nil {
		return Config{ConfigPath: path}, pfx.Err(err)
	}
	defer f.Close()

	out, err := ParseConfig(f)
	out.ConfigPath = path

	return out, err
}

func ParseConfig(r io.Reader) (Config, error) {
	out := Config{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, nil
		}

		var te *yaml.TypeError
		if errors.As(err, &te) {
			log.Printf("config type errors: %v", te.Errors)
		}

		return out, pfx.Err(err)
	}

	// Interpret ~ if present
	out.Output = urinestudy.ExpandHome(out.Output)

	return out, nil
}

// Classifier builds the categorization policy described by the config.
func (c Config) Classifier() (classify.Classifier, error) {
	policy, err := classify.ParsePolicy(c.Policy)
	if err != nil {
		return classify.Classifier{}, err
	}

	var labels classify.LabelSet
	if c.CustomLabels != nil {
		labels = *c.CustomLabels
		if labels.Name == "" {
			labels.Name = "custom"
		}
		if err := labels.Validate(); err != nil {
			return classify.Classifier{}, err
		}
	} else {
		labels, err = classify.LabelSetByName(c.Labels)
		if err != nil {
			return classify.Classifier{}, err
		}
	}

	out := classify.New(policy, labels)
	out.DecimalComma = c.DecimalComma

	return out, nil
}

// SheetLayout resolves the named layout and applies any overrides.
func (c Config) SheetLayout() (labsheet.Layout, error) {
	layout, err := labsheet.LayoutByName(c.Layout)
	if err != nil {
		return layout, err
	}

	if c.HeaderRow != nil {
		if *c.HeaderRow < labsheet.DetectHeader {
			return layout, fmt.Errorf("header_row must be %d (detect) or a 0-based row number, got %d", labsheet.DetectHeader, *c.HeaderRow)
		}
		layout.HeaderRow = *c.HeaderRow
		layout.DelimitedHeaderRow = *c.HeaderRow
	}

	if c.Sheet != "" {
		layout.Sheet = c.Sheet
	}

	if len(c.Columns) > 0 {
		merged := make(map[string]string, len(layout.Columns)+len(c.Columns))
		for k, v := range layout.Columns {
			merged[k] = v
		}
		for k, v := range c.Columns {
			if v != labsheet.KeyTube && v != labsheet.KeyArea {
				if _, err := labsheet.ParseFieldKey(v); err != nil {
					return layout, fmt.Errorf("column %q: %v", k, err)
				}
			}
			merged[k] = v
		}
		layout.Columns = merged
	}

	return layout, nil
}
