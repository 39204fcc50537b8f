//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package survey

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/expectedparrot/edsl-go/question"
)

// Version tags the persisted survey document format.
const Version = "1.0"

type surveyDoc struct {
	Version   string               `json:"version" yaml:"version"`
	Questions []*question.Question `json:"questions" yaml:"questions"`
	Rules     []*Rule              `json:"rules,omitempty" yaml:"rules,omitempty"`
	Memory    map[string][]string  `json:"memory_plan,omitempty" yaml:"memory_plan,omitempty"`
	Groups    map[string][2]int    `json:"question_groups,omitempty" yaml:"question_groups,omitempty"`
}

func (s *Survey) toDoc() *surveyDoc {
	doc := &surveyDoc{
		Version:   Version,
		Questions: s.questions,
		Rules:     s.rules,
	}
	if len(s.memory) > 0 {
		doc.Memory = s.memory
	}
	if len(s.groups) > 0 {
		doc.Groups = s.groups
	}
	return doc
}

func fromDoc(doc *surveyDoc) (*Survey, error) {
	if doc.Version != Version {
		return nil, validationErrorf("unsupported survey version %q", doc.Version)
	}
	s, err := New(doc.Questions)
	if err != nil {
		return nil, err
	}
	for _, r := range doc.Rules {
		if err := s.AddRule(r.From, r.Expression, r.To, r.Priority); err != nil {
			return nil, err
		}
	}
	// Memory entries apply in survey order for deterministic round-trips.
	focals := make([]string, 0, len(doc.Memory))
	for focal := range doc.Memory {
		focals = append(focals, focal)
	}
	sort.Strings(focals)
	for _, focal := range focals {
		for _, prior := range doc.Memory[focal] {
			if err := s.AddMemory(focal, prior); err != nil {
				return nil, err
			}
		}
	}
	for name, span := range doc.Groups {
		if span[0] < 0 || span[1] >= len(s.questions) || span[1] < span[0] {
			return nil, validationErrorf("group %q has a bad span", name)
		}
		s.groups[name] = span
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MarshalJSON implements json.Marshaler.
func (s *Survey) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toDoc())
}

// UnmarshalJSON implements json.Unmarshaler, validating the decoded survey.
func (s *Survey) UnmarshalJSON(data []byte) error {
	var doc surveyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode survey: %w", err)
	}
	decoded, err := fromDoc(&doc)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}

// ToYAML serializes the survey as YAML.
func (s *Survey) ToYAML() ([]byte, error) {
	return yaml.Marshal(s.toDoc())
}

// FromYAML deserializes and validates a YAML survey document.
func FromYAML(data []byte) (*Survey, error) {
	var doc surveyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode survey: %w", err)
	}
	return fromDoc(&doc)
}
