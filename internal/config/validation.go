package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is a wrapper around go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate validates a struct using validation tags
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return v.formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into readable messages
func (v *Validator) formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		messages := make([]string, 0, len(validationErrs))
		for _, e := range validationErrs {
			messages = append(messages, fmt.Sprintf(
				"field '%s' failed validation: %s (value: '%v')",
				e.Namespace(),
				e.Tag(),
				e.Value(),
			))
		}
		return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
	}
	return err
}

// ValidateConfig validates the entire configuration, including references
// between catalog and scenario entries.
func ValidateConfig(cfg *Config) error {
	if err := NewValidator().Validate(cfg); err != nil {
		return err
	}
	return validateReferences(cfg)
}

func validateReferences(cfg *Config) error {
	var problems []string

	volumes := make(map[string]int, len(cfg.Catalog.Items))
	for _, it := range cfg.Catalog.Items {
		if _, dup := volumes[it.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate item %q", it.ID))
		}
		volumes[it.ID] = it.Volume
	}

	recipes := make(map[string]RecipeConfig, len(cfg.Catalog.Recipes))
	for _, r := range cfg.Catalog.Recipes {
		if _, dup := recipes[r.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate recipe %q", r.ID))
		}
		recipes[r.ID] = r
		if r.Output.Quantity > 0 && r.Output.Item == "" {
			problems = append(problems, fmt.Sprintf("recipe %q: output item required", r.ID))
		}
		inputs := make(map[string]bool, len(r.Inputs))
		for _, in := range r.Inputs {
			if inputs[in.Item] {
				problems = append(problems, fmt.Sprintf("recipe %q: input %q listed more than once", r.ID, in.Item))
			}
			inputs[in.Item] = true
		}
	}

	kinds := make(map[string]bool, len(cfg.Catalog.Buildings))
	for _, b := range cfg.Catalog.Buildings {
		if kinds[b.Kind] {
			problems = append(problems, fmt.Sprintf("duplicate building kind %q", b.Kind))
		}
		kinds[b.Kind] = true
		r, ok := recipes[b.Recipe]
		if !ok {
			problems = append(problems, fmt.Sprintf("building kind %q: unknown recipe %q", b.Kind, b.Recipe))
			continue
		}
		problems = append(problems, capacityProblems(b, r, volumes)...)
	}

	warehouses := make(map[string]bool, len(cfg.Scenario.Warehouses))
	for _, w := range cfg.Scenario.Warehouses {
		if warehouses[w.ID] {
			problems = append(problems, fmt.Sprintf("duplicate warehouse %q", w.ID))
		}
		warehouses[w.ID] = true
	}
	for i, b := range cfg.Scenario.Buildings {
		if !kinds[b.Kind] {
			problems = append(problems, fmt.Sprintf("scenario building %d (%s): unknown kind %q", i, b.ID, b.Kind))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("validation failed:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// capacityProblems reports containers of kind b that cannot hold one cycle of r.
func capacityProblems(b BuildingKind, r RecipeConfig, volumes map[string]int) []string {
	var problems []string
	if b.InputCapacity > 0 {
		for _, in := range r.Inputs {
			if in.Quantity > b.InputCapacity {
				problems = append(problems, fmt.Sprintf("building kind %q: input_capacity %d below %d %s per cycle",
					b.Kind, b.InputCapacity, in.Quantity, in.Item))
			}
		}
	}
	if b.OutputCapacity > 0 && r.Output.Quantity > 0 {
		volume := volumes[r.Output.Item]
		if volume <= 0 {
			volume = 1
		}
		if need := r.Output.Quantity * volume; need > b.OutputCapacity {
			problems = append(problems, fmt.Sprintf("building kind %q: output_capacity %d below yield volume %d",
				b.Kind, b.OutputCapacity, need))
		}
	}
	return problems
}
