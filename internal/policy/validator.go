package policy

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage/inmem"
)

//go:embed pipeline.rego
var policyContent string

type Validator struct {
	prepared rego.PreparedEvalQuery
}

type ValidationResult struct {
	Allowed    bool     `json:"allowed"`
	Violations []string `json:"violations,omitempty"`
}

func NewValidator() (*Validator, error) {
	query, err := rego.New(
		rego.Query("data.pipeline.allow"),
		rego.Module("pipeline.rego", policyContent),
	).PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare policy query: %w", err)
	}

	return &Validator{
		prepared: query,
	}, nil
}

// ValidateManifest evaluates a pipeline manifest document against the
// embedded policy. allowedRegistries is the optional allowlist for the
// manifest's registry host; an empty list accepts any host.
func (v *Validator) ValidateManifest(doc map[string]interface{}, allowedRegistries []string) (*ValidationResult, error) {
	ctx := context.Background()

	// With no allowlist the prepared query suffices; an allowlist enters
	// evaluation as a data document and needs a store-scoped query.
	query := v.prepared
	var data map[string]interface{}
	if len(allowedRegistries) > 0 {
		registries := make([]interface{}, 0, len(allowedRegistries))
		for _, registry := range allowedRegistries {
			registries = append(registries, registry)
		}
		data = map[string]interface{}{
			"allowed_registries": registries,
		}

		scoped, err := rego.New(
			rego.Query("data.pipeline.allow"),
			rego.Module("pipeline.rego", policyContent),
			rego.Store(inmem.NewFromObject(data)),
		).PrepareForEval(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare policy query with data: %w", err)
		}
		query = scoped
	}

	results, err := query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 {
		return &ValidationResult{
			Allowed:    false,
			Violations: []string{"policy evaluation returned no results"},
		}, nil
	}

	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return &ValidationResult{
			Allowed:    false,
			Violations: []string{"policy evaluation returned non-boolean result"},
		}, nil
	}

	result := &ValidationResult{
		Allowed: allowed,
	}

	if !allowed {
		violations, err := v.getViolations(ctx, doc, data)
		if err != nil {
			return nil, fmt.Errorf("failed to get violations: %w", err)
		}
		result.Violations = violations
	}

	return result, nil
}

// getViolations re-runs the policy asking for the violations set. data is nil
// when no registry allowlist was supplied.
func (v *Validator) getViolations(ctx context.Context, doc, data map[string]interface{}) ([]string, error) {
	opts := []func(*rego.Rego){
		rego.Query("data.pipeline.violations"),
		rego.Module("pipeline.rego", policyContent),
	}
	if data != nil {
		opts = append(opts, rego.Store(inmem.NewFromObject(data)))
	}

	violationQuery, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare violations query: %w", err)
	}

	results, err := violationQuery.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate violations: %w", err)
	}

	if len(results) == 0 {
		return []string{"unknown policy violation"}, nil
	}

	violationsInterface := results[0].Expressions[0].Value
	if violationsInterface == nil {
		return []string{"unknown policy violation"}, nil
	}

	var violations []string
	switch v := violationsInterface.(type) {
	case []interface{}:
		for _, violation := range v {
			if str, ok := violation.(string); ok {
				violations = append(violations, str)
			}
		}
	case map[string]interface{}:
		// Rego sets can surface as maps
		for violation := range v {
			violations = append(violations, violation)
		}
	}

	if len(violations) == 0 {
		return []string{"policy validation failed but no specific violations found"}, nil
	}

	return violations, nil
}
