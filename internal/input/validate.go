package input

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/clubsync/internal/entity"
	"github.com/roach88/clubsync/internal/ir"
)

// Problem is one reason a record would be rejected before sending.
type Problem struct {
	Record  string `json:"record"`
	Target  string `json:"target"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	target := p.Target
	if p.Path != "" {
		target += "." + p.Path
	}
	return fmt.Sprintf("%s: %s: %s", p.Record, target, p.Message)
}

// Schema returns the CUE schema enforcing the required fields of every
// kind. A required field must be present and not blank.
func Schema() string {
	var b strings.Builder
	b.WriteString("#present: (string & !=\"\") | number | bool\n")
	for _, k := range append([]entity.Kind{entity.KindSubject}, entity.Associations...) {
		fmt.Fprintf(&b, "\n%s: {\n", k)
		for _, f := range k.RequiredFields() {
			fmt.Fprintf(&b, "\t%s: #present\n", strconv.Quote(f))
		}
		b.WriteString("\t...\n}\n")
	}
	return b.String()
}

// Validator checks records against Schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(Schema(), cue.Filename("required.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate returns every problem found, in record order. No problems means
// every record and association carries its required fields and no subject
// lists the same association twice.
func (v *Validator) Validate(subjects []*entity.Subject) []Problem {
	var problems []Problem
	for i, s := range subjects {
		name := recordName(s, i)
		problems = append(problems, v.check(name, entity.KindSubject, entity.KindSubject.String(), s.Fields)...)
		for _, a := range s.Associations {
			problems = append(problems, v.check(name, a.Kind, a.Label(), a.Fields)...)
		}
		if err := s.Validate(); err != nil {
			problems = append(problems, Problem{Record: name, Target: entity.KindSubject.String(), Message: err.Error()})
		}
	}
	return problems
}

func (v *Validator) check(record string, kind entity.Kind, target string, fields *ir.Object) []Problem {
	def := v.schema.LookupPath(cue.MakePath(cue.Str(kind.String())))
	val := def.Unify(v.ctx.Encode(plain(fields)))
	err := val.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var problems []Problem
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		problems = append(problems, Problem{
			Record:  record,
			Target:  target,
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return problems
}

func recordName(s *entity.Subject, i int) string {
	if s.Ref != nil {
		return fmt.Sprint(s.Ref)
	}
	if !s.Key.IsZero() {
		return string(s.Key)
	}
	return fmt.Sprintf("records[%d]", i)
}

// plain converts a Value to the Go values cue.Context.Encode understands.
// Decimals and dates become strings; only presence is checked.
func plain(v ir.Value) any {
	switch val := v.(type) {
	case ir.String:
		return string(val)
	case ir.Int:
		return int64(val)
	case ir.Bool:
		return bool(val)
	case ir.Decimal, ir.Date:
		return ir.Text(val)
	case ir.Array:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	case *ir.Object:
		out := make(map[string]any, val.Len())
		for _, p := range val.Pairs() {
			out[p.Key] = plain(p.Value)
		}
		return out
	}
	return nil
}
