package input

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/clubsync/internal/entity"
)

// RecordFile is the on-disk form of a sync input.
//
//	records:
//	  - ref: member-7
//	    key: "7"
//	    fields: {Name: Muster, FirstName: Max}
//	    associations:
//	      - kind: Communication
//	        fields: {Type: Email, Value: max@example.com}
type RecordFile struct {
	Records []RecordSpec `yaml:"records"`
}

// RecordSpec is one subject with its associations.
type RecordSpec struct {
	Ref          string            `yaml:"ref"`
	Key          string            `yaml:"key"`
	Fields       yaml.Node         `yaml:"fields"`
	Associations []AssociationSpec `yaml:"associations"`
}

// AssociationSpec is one association of a subject.
type AssociationSpec struct {
	Kind   string    `yaml:"kind"`
	Fields yaml.Node `yaml:"fields"`
}

// LoadRecords reads a record file.
func LoadRecords(path string) ([]*entity.Subject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	return ParseRecords(data)
}

// ParseRecords parses record file content. Unknown keys are rejected.
func ParseRecords(data []byte) ([]*entity.Subject, error) {
	var file RecordFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return Subjects(file.Records)
}

// Subjects converts parsed specs. A record without a ref is named by its
// position.
func Subjects(specs []RecordSpec) ([]*entity.Subject, error) {
	subjects := make([]*entity.Subject, 0, len(specs))
	for i := range specs {
		s, err := specs[i].Subject()
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		if specs[i].Ref == "" {
			s.Ref = fmt.Sprintf("records[%d]", i)
		}
		subjects = append(subjects, s)
	}
	return subjects, nil
}

// Subject converts one spec.
func (r *RecordSpec) Subject() (*entity.Subject, error) {
	fields, err := ObjectFromNode(&r.Fields)
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	s := &entity.Subject{Key: entity.Key(r.Key), Fields: fields}
	if r.Ref != "" {
		s.Ref = r.Ref
	}
	for i, a := range r.Associations {
		kind, err := entity.ParseKind(a.Kind)
		if err != nil {
			return nil, fmt.Errorf("associations[%d]: %w", i, err)
		}
		if kind == entity.KindSubject {
			return nil, fmt.Errorf("associations[%d]: %s is not an association kind", i, kind)
		}
		afields, err := ObjectFromNode(&a.Fields)
		if err != nil {
			return nil, fmt.Errorf("associations[%d].fields: %w", i, err)
		}
		s.Associations = append(s.Associations, entity.Association{Kind: kind, Fields: afields})
	}
	return s, nil
}
