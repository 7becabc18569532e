package envtemplate

import (
	"fmt"
	"strconv"
	"strings"
)

// Problem reasons, in increasing order of how set the variable was
const (
	ReasonMissing     = "missing"
	ReasonEmpty       = "empty"
	ReasonPlaceholder = "placeholder"
	ReasonInvalid     = "invalid"
)

// Problem describes one variable that is not ready for dependent tooling
type Problem struct {
	Name   string
	Reason string
	Detail string
}

func (p Problem) String() string {
	if p.Detail == "" {
		return fmt.Sprintf("%s: %s", p.Name, p.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", p.Name, p.Reason, p.Detail)
}

// wellKnownPlaceholders are throwaway values operators leave behind; none of
// them is ever a legitimate credential
var wellKnownPlaceholders = map[string]struct{}{
	"changeme":    {},
	"change_me":   {},
	"change-me":   {},
	"todo":        {},
	"tbd":         {},
	"xxx":         {},
	"placeholder": {},
	"dummy":       {},
	"example":     {},
}

// Check evaluates every registered variable through lookup and returns the
// problems in registry order. An empty result means the context satisfies
// the template and dependent tooling may run.
func Check(lookup func(name string) (string, bool)) []Problem {
	var problems []Problem

	for _, v := range Registry() {
		value, ok := lookup(v.Name)
		if !ok {
			problems = append(problems, Problem{Name: v.Name, Reason: ReasonMissing})
			continue
		}
		if strings.TrimSpace(value) == "" {
			problems = append(problems, Problem{Name: v.Name, Reason: ReasonEmpty})
			continue
		}
		if isPlaceholder(v, value) {
			problems = append(problems, Problem{Name: v.Name, Reason: ReasonPlaceholder})
			continue
		}
		if v.Validate != nil {
			if err := v.Validate(value); err != nil {
				problems = append(problems, Problem{Name: v.Name, Reason: ReasonInvalid, Detail: err.Error()})
			}
		}
	}

	return problems
}

// CheckMap checks a flattened env file against the registry
func CheckMap(values map[string]string) []Problem {
	return Check(func(name string) (string, bool) {
		value, ok := values[name]
		return value, ok
	})
}

func isPlaceholder(v Variable, value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == v.Placeholder {
		return true
	}
	if strings.HasPrefix(trimmed, "<") && strings.HasSuffix(trimmed, ">") {
		return true
	}
	_, known := wellKnownPlaceholders[strings.ToLower(trimmed)]
	return known
}

func validatePort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}

func validateBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("not a boolean")
	}
	return nil
}
