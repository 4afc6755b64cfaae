package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// Clause is the conditional keyword a rule is written with.
type Clause string

const (
	ClauseIf     Clause = "if"
	ClauseElseIf Clause = "else_if"
	ClauseElse   Clause = "else"
)

// Operation is what a matching rule does to the priority or speed value.
type Operation string

const (
	MultiplyBy Operation = "multiply_by"
	LimitTo    Operation = "limit_to"
)

var ErrBrokenChain = errors.New("else_if/else without preceding if")

// Rule is a single statement of a custom model. Rules of one family are
// evaluated top to bottom; an if opens a chain that following else_if and
// else statements continue.
type Rule struct {
	Clause    Clause
	Condition string
	Op        Operation
	Value     string
}

func If(condition string, op Operation, value string) Rule {
	return Rule{Clause: ClauseIf, Condition: condition, Op: op, Value: value}
}

func ElseIf(condition string, op Operation, value string) Rule {
	return Rule{Clause: ClauseElseIf, Condition: condition, Op: op, Value: value}
}

func Else(op Operation, value string) Rule {
	return Rule{Clause: ClauseElse, Op: op, Value: value}
}

// EncodeJSON marshals v without HTML escaping so that conditions such as
// "average_slope >= 7" or "a && b" keep their operators verbatim. Callers that
// embed a CustomModel in a larger document must encode the outer value with
// EncodeJSON too.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MarshalJSON keeps the clause key ahead of the operation key, which is the
// order the routing engine documents and the one users read in the model box.
func (r Rule) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	cond, err := EncodeJSON(r.Condition)
	if err != nil {
		return nil, err
	}
	value, err := EncodeJSON(r.Value)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"`)
	buf.WriteString(string(r.Clause))
	buf.WriteString(`":`)
	buf.Write(cond)
	buf.WriteString(`,"`)
	buf.WriteString(string(r.Op))
	buf.WriteString(`":`)
	buf.Write(value)
	buf.WriteString(`}`)
	return buf.Bytes(), nil
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("rule: %w", err)
	}

	clauses := 0
	for _, c := range []Clause{ClauseIf, ClauseElseIf, ClauseElse} {
		v, ok := raw[string(c)]
		if !ok {
			continue
		}
		clauses++
		r.Clause = c
		if err := json.Unmarshal(v, &r.Condition); err != nil {
			return fmt.Errorf("rule %s: %w", c, err)
		}
	}
	if clauses != 1 {
		return fmt.Errorf("rule: expected exactly one of if/else_if/else, got %d", clauses)
	}

	ops := 0
	for _, op := range []Operation{MultiplyBy, LimitTo} {
		v, ok := raw[string(op)]
		if !ok {
			continue
		}
		ops++
		r.Op = op
		// values are usually strings but plain numbers are accepted too
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			var n json.Number
			if err := json.Unmarshal(v, &n); err != nil {
				return fmt.Errorf("rule %s: %w", op, err)
			}
			s = n.String()
		}
		r.Value = s
	}
	if ops != 1 {
		return fmt.Errorf("rule: expected exactly one of multiply_by/limit_to, got %d", ops)
	}
	return nil
}

// ValidateChain checks that every else_if and else continues an open chain.
func ValidateChain(rules []Rule) error {
	open := false
	for i, r := range rules {
		switch r.Clause {
		case ClauseIf:
			open = true
		case ClauseElseIf:
			if !open {
				return fmt.Errorf("rule %d: %w", i, ErrBrokenChain)
			}
		case ClauseElse:
			if !open {
				return fmt.Errorf("rule %d: %w", i, ErrBrokenChain)
			}
			open = false
		default:
			return fmt.Errorf("rule %d: unknown clause %q", i, r.Clause)
		}
	}
	return nil
}

// CustomModel is the payload of the routing API's custom model feature.
type CustomModel struct {
	Priority []Rule                     `json:"priority"`
	Speed    []Rule                     `json:"speed"`
	Areas    *geojson.FeatureCollection `json:"areas"`
}

func NewCustomModel() *CustomModel {
	return &CustomModel{
		Priority: []Rule{},
		Speed:    []Rule{},
		Areas:    geojson.NewFeatureCollection(),
	}
}

// Merge returns a new model with the rules and areas of extra appended after
// those of m. Neither input is modified.
func (m *CustomModel) Merge(extra *CustomModel) *CustomModel {
	out := NewCustomModel()
	for _, src := range []*CustomModel{m, extra} {
		if src == nil {
			continue
		}
		out.Priority = append(out.Priority, src.Priority...)
		out.Speed = append(out.Speed, src.Speed...)
		if src.Areas != nil {
			out.Areas.Features = append(out.Areas.Features, src.Areas.Features...)
		}
	}
	return out
}

func (m *CustomModel) Validate() error {
	if err := ValidateChain(m.Priority); err != nil {
		return fmt.Errorf("priority: %w", err)
	}
	if err := ValidateChain(m.Speed); err != nil {
		return fmt.Errorf("speed: %w", err)
	}
	return nil
}
