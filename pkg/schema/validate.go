package schema

import (
	"fmt"

	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/table"
)

// Severity classifies a validation issue
type Severity string

const (
	// SeverityError marks issues that make a table non-conforming
	SeverityError Severity = "error"
	// SeverityWarning marks informational issues
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Issues are returned as data,
// never raised; callers decide how to act on them.
type Issue struct {
	Code     errors.Code
	Severity Severity
	Table    string
	Column   string
	Message  string
}

func (i Issue) String() string {
	loc := i.Column
	if i.Table != "" {
		loc = i.Table + "." + i.Column
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, loc, i.Message)
}

// HasErrors reports whether any issue in the list is error severity
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks a table against this schema. It reports missing
// required columns, type mismatches, monotonicity violations and
// ragged array columns as errors, and undocumented columns as
// warnings. An empty result means the table fully conforms.
func (s *ColumnSchema) Validate(t *table.Table) []Issue {
	var issues []Issue

	for _, name := range s.ColumnNames() {
		info, _ := s.Column(name)
		col, present := t.Column(name)
		if !present {
			if info.Required {
				issues = append(issues, Issue{
					Code:     errors.CodeMissingColumn,
					Severity: SeverityError,
					Column:   name,
					Message:  fmt.Sprintf("required column %q is absent", name),
				})
			}
			continue
		}

		if issue, ok := checkType(info, col); !ok {
			issues = append(issues, issue)
			continue
		}

		if info.Monotonic {
			if issue, ok := checkMonotonic(info, col); !ok {
				issues = append(issues, issue)
			}
		}
	}

	for _, name := range t.ColumnNames() {
		if !s.Contains(name) {
			issues = append(issues, Issue{
				Code:     errors.CodeUndocumentedColumn,
				Severity: SeverityWarning,
				Column:   name,
				Message:  fmt.Sprintf("column %q is not documented in the schema", name),
			})
		}
	}

	return issues
}

// checkType verifies the runtime column type against the declared one
func checkType(info ColumnInfo, col table.Column) (Issue, bool) {
	mismatch := func(actual string) (Issue, bool) {
		return Issue{
			Code:     errors.CodeTypeMismatch,
			Severity: SeverityError,
			Column:   info.Name,
			Message:  fmt.Sprintf("column %q is declared %s but holds %s", info.Name, info.Type, actual),
		}, false
	}

	switch info.Type {
	case Float:
		if _, ok := col.(*table.Float64Column); !ok {
			return mismatch(runtimeType(col))
		}
	case Integer:
		if _, ok := col.(*table.Int64Column); !ok {
			return mismatch(runtimeType(col))
		}
	case String:
		if _, ok := col.(*table.StringColumn); !ok {
			return mismatch(runtimeType(col))
		}
	case Boolean:
		if _, ok := col.(*table.BoolColumn); !ok {
			return mismatch(runtimeType(col))
		}
	case FloatArray:
		ac, ok := col.(*table.FloatArrayColumn)
		if !ok {
			return mismatch(runtimeType(col))
		}
		if !ac.Uniform() {
			return Issue{
				Code:     errors.CodeRaggedArray,
				Severity: SeverityError,
				Column:   info.Name,
				Message:  fmt.Sprintf("array column %q has rows of differing length", info.Name),
			}, false
		}
	}
	return Issue{}, true
}

// checkMonotonic verifies that numeric values never strictly decrease
func checkMonotonic(info ColumnInfo, col table.Column) (Issue, bool) {
	violation := func(row int) (Issue, bool) {
		return Issue{
			Code:     errors.CodeMonotonicityViolation,
			Severity: SeverityError,
			Column:   info.Name,
			Message:  fmt.Sprintf("column %q decreases at row %d", info.Name, row),
		}, false
	}

	switch c := col.(type) {
	case *table.Float64Column:
		vals := c.Values()
		for i := 1; i < len(vals); i++ {
			if vals[i] < vals[i-1] {
				return violation(i)
			}
		}
	case *table.Int64Column:
		vals := c.Values()
		for i := 1; i < len(vals); i++ {
			if vals[i] < vals[i-1] {
				return violation(i)
			}
		}
	}
	return Issue{}, true
}

func runtimeType(col table.Column) string {
	switch col.(type) {
	case *table.Float64Column:
		return string(Float)
	case *table.Int64Column:
		return string(Integer)
	case *table.StringColumn:
		return string(String)
	case *table.BoolColumn:
		return string(Boolean)
	case *table.FloatArrayColumn:
		return string(FloatArray)
	default:
		return fmt.Sprintf("%T", col)
	}
}
