package input

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/clubsync/internal/document"
	"github.com/roach88/clubsync/internal/entity"
	"github.com/roach88/clubsync/internal/ir"
)

// DocumentSpec is the on-disk form of a document.
//
//	key: "900"
//	number: SO-2024-001
//	customer: 42
//	date: 2024-03-01
//	lines:
//	  - {article: FEE, name: Annual fee, quantity: 1, price: 120.00}
type DocumentSpec struct {
	Key      string     `yaml:"key"`
	Number   string     `yaml:"number"`
	Customer string     `yaml:"customer"`
	Date     string     `yaml:"date"`
	Header   yaml.Node  `yaml:"header"`
	Lines    []LineSpec `yaml:"lines"`
}

// LineSpec is one line item. Numbers are kept as their literal text.
type LineSpec struct {
	Article    string `yaml:"article"`
	Name       string `yaml:"name"`
	Quantity   string `yaml:"quantity"`
	Price      string `yaml:"price"`
	CostCenter string `yaml:"cost_center"`
}

// LoadDocument reads a document file.
func LoadDocument(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument parses document file content. Unknown keys are rejected.
func ParseDocument(data []byte) (*document.Document, error) {
	var spec DocumentSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return spec.Document()
}

// Document converts the file form into a document.
func (d *DocumentSpec) Document() (*document.Document, error) {
	header, err := ObjectFromNode(&d.Header)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	doc := &document.Document{
		Key:      entity.Key(d.Key),
		Number:   d.Number,
		Customer: entity.Key(d.Customer),
		Header:   header,
	}
	if d.Date != "" {
		if doc.Date, err = ir.ParseDate(d.Date); err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
	}
	for i, l := range d.Lines {
		line, err := l.line()
		if err != nil {
			return nil, fmt.Errorf("lines[%d]: %w", i, err)
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc, nil
}

func (l LineSpec) line() (document.Line, error) {
	line := document.Line{Article: l.Article, Name: l.Name, CostCenter: l.CostCenter}
	var err error
	if l.Quantity != "" {
		if line.Quantity, err = ir.ParseDecimal(l.Quantity); err != nil {
			return document.Line{}, fmt.Errorf("quantity: %w", err)
		}
	}
	if l.Price != "" {
		if line.UnitPrice, err = ir.ParseDecimal(l.Price); err != nil {
			return document.Line{}, fmt.Errorf("price: %w", err)
		}
	}
	return line, nil
}
