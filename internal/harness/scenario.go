package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/clubsync/internal/document"
	"github.com/roach88/clubsync/internal/input"
)

// Scenario defines a scripted synchronization run.
// The remote system is played back from Remote, one exchange per call, so a
// scenario pins down both the requests the client sends and how it reacts
// to each answer.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID fixes the run ID. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Records are the subjects to synchronize. Mutually exclusive with
	// Document.
	Records []input.RecordSpec `yaml:"records,omitempty"`

	// Document is a document to submit instead of records.
	Document *input.DocumentSpec `yaml:"document,omitempty"`

	// Mode is the document submission mode, "sequence" or "batch".
	Mode string `yaml:"mode,omitempty"`

	// MaxParts overrides the per-batch part limit. Zero keeps the default.
	MaxParts int `yaml:"max_parts,omitempty"`

	// Remote answers the calls in order.
	Remote []Exchange `yaml:"remote"`

	// Assertions validate the run.
	Assertions []Assertion `yaml:"assertions"`
}

// Exchange is the remote system's answer to one call.
//
// Parts answers a $batch call with a multipart envelope. Without parts,
// Status and Body form a plain response, which is how single-entity calls
// and whole-batch rejections are scripted. Error fails the exchange itself.
type Exchange struct {
	Status      int    `yaml:"status,omitempty"`
	Body        string `yaml:"body,omitempty"`
	ContentType string `yaml:"content_type,omitempty"`
	Parts       []Part `yaml:"parts,omitempty"`
	Error       string `yaml:"error,omitempty"`
}

// Part is one response part inside a batch envelope.
type Part struct {
	Status      int    `yaml:"status"`
	Body        string `yaml:"body,omitempty"`
	ContentType string `yaml:"content_type,omitempty"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record_state": a record ended in State
	// - "failure": a record carries a failed attempt for Label
	// - "round_trips": exactly Count calls reached the remote system
	// - "request_order": call Call sent exactly Requests, in order
	// - "run_error": the run stopped with Code ("none" for no run error)
	// - "document": the submission ended with Key, Finalized and Total
	// - "journal": the journal holds Count failed outcomes for the run
	Type string `yaml:"type"`

	// Ref selects a record (record_state, failure).
	Ref string `yaml:"ref,omitempty"`

	// State is the expected record state, e.g. "done" (record_state).
	State string `yaml:"state,omitempty"`

	// RemoteKey is the expected remote key (record_state, optional).
	RemoteKey string `yaml:"remote_key,omitempty"`

	// Label names the failed target, e.g. "Subject" (failure).
	Label string `yaml:"label,omitempty"`

	// Status is the expected HTTP status of the failure (optional).
	Status int `yaml:"status,omitempty"`

	// Message must appear in the failure's error text (optional).
	Message string `yaml:"message,omitempty"`

	// Error is the error shape, "structured" or "raw" (optional).
	Error string `yaml:"error,omitempty"`

	// Count is the expected number (round_trips, journal).
	Count *int `yaml:"count,omitempty"`

	// Call is the 1-based call number (request_order).
	Call int `yaml:"call,omitempty"`

	// Requests are "METHOD path" lines (request_order).
	Requests []string `yaml:"requests,omitempty"`

	// Code is the expected run error code (run_error).
	Code string `yaml:"code,omitempty"`

	// Key, Finalized and Total describe the submission (document).
	Key       string `yaml:"key,omitempty"`
	Finalized *bool  `yaml:"finalized,omitempty"`
	Total     string `yaml:"total,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordState  = "record_state"
	AssertFailure      = "failure"
	AssertRoundTrips   = "round_trips"
	AssertRequestOrder = "request_order"
	AssertRunError     = "run_error"
	AssertDocument     = "document"
	AssertJournal      = "journal"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario file content.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Discover returns the scenario files in dir, sorted by name. A non-empty
// filter keeps only files whose base name contains it.
func Discover(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Document != nil && len(s.Records) > 0 {
		return fmt.Errorf("records and document are mutually exclusive")
	}
	if s.Document == nil && len(s.Records) == 0 {
		return fmt.Errorf("records or document is required")
	}
	if s.Mode != "" {
		if s.Document == nil {
			return fmt.Errorf("mode applies to documents only")
		}
		if _, err := document.ParseMode(s.Mode); err != nil {
			return err
		}
	}
	if s.MaxParts < 0 {
		return fmt.Errorf("max_parts must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, ex := range s.Remote {
		if err := validateExchange(i, &ex); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateExchange(index int, ex *Exchange) error {
	if ex.Error != "" {
		if ex.Status != 0 || len(ex.Parts) > 0 {
			return fmt.Errorf("remote[%d]: error excludes status and parts", index)
		}
		return nil
	}
	if len(ex.Parts) > 0 {
		if ex.Status != 0 || ex.Body != "" {
			return fmt.Errorf("remote[%d]: parts exclude status and body", index)
		}
		for j, p := range ex.Parts {
			if p.Status < 100 || p.Status > 599 {
				return fmt.Errorf("remote[%d].parts[%d]: status %d out of range", index, j, p.Status)
			}
		}
		return nil
	}
	if ex.Status < 100 || ex.Status > 599 {
		return fmt.Errorf("remote[%d]: status %d out of range", index, ex.Status)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecordState:
		if a.Ref == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: ref and state are required for record_state", index)
		}
	case AssertFailure:
		if a.Ref == "" || a.Label == "" {
			return fmt.Errorf("assertions[%d]: ref and label are required for failure", index)
		}
		if a.Error != "" && a.Error != "structured" && a.Error != "raw" {
			return fmt.Errorf("assertions[%d]: error must be structured or raw", index)
		}
	case AssertRoundTrips, AssertJournal:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
	case AssertRequestOrder:
		if a.Call < 1 {
			return fmt.Errorf("assertions[%d]: call must be 1 or greater for request_order", index)
		}
		if len(a.Requests) == 0 {
			return fmt.Errorf("assertions[%d]: requests list is required for request_order", index)
		}
	case AssertRunError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for run_error", index)
		}
	case AssertDocument:
		if a.Key == "" && a.Finalized == nil && a.Total == "" {
			return fmt.Errorf("assertions[%d]: key, finalized or total is required for document", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
