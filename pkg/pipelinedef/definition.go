// Package pipelinedef models the declarative pipeline
// document: a named pair of remote scripts, optionally
// with their profiles spelled out so an instance can be
// bootstrapped without reaching the remote servers.
package pipelinedef

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	APIVersionV1 = "v1"
	KindPipeline = "Pipeline"
)

// Definition models the root pipeline document.
type Definition struct {
	APIVersion        string     `yaml:"apiVersion" json:"apiVersion"`
	Kind              string     `yaml:"kind" json:"kind"`
	Metadata          Metadata   `yaml:"metadata" json:"metadata"`
	ForcedAlignment   ScriptSpec `yaml:"forcedAlignment" json:"forcedAlignment"`
	GraphemeToPhoneme ScriptSpec `yaml:"graphemeToPhoneme" json:"graphemeToPhoneme"`
}

// Metadata contains descriptive data for the pipeline.
type Metadata struct {
	Name string `yaml:"name" json:"name"`
}

// ScriptSpec declares one remote script endpoint.
type ScriptSpec struct {
	Name        string        `yaml:"name" json:"name"`
	Hostname    string        `yaml:"hostname" json:"hostname"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Username    string        `yaml:"username,omitempty" json:"username,omitempty"`
	Password    string        `yaml:"password,omitempty" json:"password,omitempty"`
	Profiles    []ProfileSpec `yaml:"profiles,omitempty" json:"profiles,omitempty"`
}

// ProfileSpec declares one invocation profile.
type ProfileSpec struct {
	Templates []TemplateSpec `yaml:"templates" json:"templates"`
}

// TemplateSpec declares one input slot of a profile.
type TemplateSpec struct {
	ID            string `yaml:"id" json:"id"`
	Format        string `yaml:"format,omitempty" json:"format,omitempty"`
	Label         string `yaml:"label,omitempty" json:"label,omitempty"`
	Extension     string `yaml:"extension" json:"extension"`
	Optional      bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
	Unique        bool   `yaml:"unique,omitempty" json:"unique,omitempty"`
	AcceptArchive bool   `yaml:"acceptArchive,omitempty" json:"acceptArchive,omitempty"`
}

// Parse parses YAML bytes into a Definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate performs semantic validation on the definition.
func (d *Definition) Validate() error {
	if d.APIVersion != APIVersionV1 {
		return fmt.Errorf("unsupported apiVersion: %s", d.APIVersion)
	}
	if d.Kind != KindPipeline {
		return fmt.Errorf("unsupported kind: %s", d.Kind)
	}
	if strings.TrimSpace(d.Metadata.Name) == "" {
		return fmt.Errorf("metadata.name is required")
	}

	if err := validateScript("forcedAlignment", &d.ForcedAlignment); err != nil {
		return err
	}
	return validateScript("graphemeToPhoneme", &d.GraphemeToPhoneme)
}

func validateScript(field string, s *ScriptSpec) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%s.name is required", field)
	}
	if strings.TrimSpace(s.Hostname) == "" {
		return fmt.Errorf("%s.hostname is required", field)
	}

	for i, p := range s.Profiles {
		if len(p.Templates) == 0 {
			return fmt.Errorf("%s.profiles[%d].templates must contain at least one entry", field, i)
		}
		for j, t := range p.Templates {
			if strings.TrimSpace(t.ID) == "" {
				return fmt.Errorf("%s.profiles[%d].templates[%d].id is required", field, i, j)
			}
			if strings.TrimSpace(t.Extension) == "" {
				return fmt.Errorf("%s.profiles[%d].templates[%d].extension is required", field, i, j)
			}
		}
	}

	return nil
}
