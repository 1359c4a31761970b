package definition

import (
	"fmt"
	"strings"

	"github.com/rulesascode/journey/internal/fisca"
	"github.com/rulesascode/journey/internal/openfisca"
	"github.com/rulesascode/journey/model"
)

// VError describes a single validation error in a definition.
type VError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e VError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validator checks journey definitions structurally, referentially, and,
// when an instance profile is available, against the OpenFisca instance's
// variable catalogue.
//
// Validation is a startup diagnostic only. At runtime, misconfigured
// mappings degrade by omission rather than erroring, so a definition that
// fails validation still loads; the errors are logged.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

var knownPeriods = map[string]bool{
	fisca.PeriodDay: true, fisca.PeriodWeek: true, fisca.PeriodWeekday: true,
	fisca.PeriodMonth: true, fisca.PeriodYear: true, fisca.PeriodEternity: true,
}

// Validate checks all definitions. The profile may be nil to skip instance
// catalogue checks.
func (v *Validator) Validate(defs []model.JourneyDefinition, profile *openfisca.InstanceProfile) []VError {
	var errs []VError
	for i, def := range defs {
		prefix := fmt.Sprintf("journeys[%d]", i)
		errs = append(errs, v.validateJourney(prefix, def, profile)...)
	}
	return errs
}

func (v *Validator) validateJourney(prefix string, def model.JourneyDefinition, profile *openfisca.InstanceProfile) []VError {
	var errs []VError

	if def.ID == "" {
		errs = append(errs, VError{Path: prefix + ".id", Code: "REQUIRED", Message: "id is required"})
	}
	if def.Version == "" {
		errs = append(errs, VError{Path: prefix + ".version", Code: "REQUIRED", Message: "version is required"})
	}
	if def.ConfirmationURL == "" {
		errs = append(errs, VError{Path: prefix + ".confirmation_url", Code: "REQUIRED", Message: "confirmation_url is required"})
	}

	for name, vd := range def.Variables {
		if !knownPeriods[vd.DefinitionPeriod] {
			errs = append(errs, VError{
				Path:    fmt.Sprintf("%s.variables.%s.definition_period", prefix, name),
				Code:    "UNKNOWN_PERIOD",
				Message: fmt.Sprintf("definition period %q is not one of DAY, WEEK, WEEKDAY, MONTH, YEAR, ETERNITY", vd.DefinitionPeriod),
			})
		}
	}

	for i, m := range def.FieldMappings {
		mp := fmt.Sprintf("%s.field_mappings[%d]", prefix, i)
		if m.Field == "" {
			errs = append(errs, VError{Path: mp + ".field", Code: "REQUIRED", Message: "field is required"})
		}
		if m.Key == "" || m.Key == model.NilMapping || m.Field == model.PeriodField {
			continue
		}
		kp := fisca.ParseKeyPath(m.Key)
		if _, ok := def.Variables[kp.Variable]; !ok {
			errs = append(errs, VError{
				Path:    mp + ".key",
				Code:    "UNDEFINED_VARIABLE",
				Message: fmt.Sprintf("variable %q has no definition; the field will be dropped from payloads", kp.Variable),
			})
		}
		errs = append(errs, checkCatalogue(mp+".key", kp.Variable, profile)...)
	}

	for i, key := range def.ResultKeys {
		kp := fisca.ParseKeyPath(key)
		rp := fmt.Sprintf("%s.result_keys[%d]", prefix, i)
		if _, ok := def.Variables[kp.Variable]; !ok {
			errs = append(errs, VError{
				Path:    rp,
				Code:    "UNDEFINED_VARIABLE",
				Message: fmt.Sprintf("variable %q has no definition; the result key will be dropped from payloads", kp.Variable),
			})
		}
		errs = append(errs, checkCatalogue(rp, kp.Variable, profile)...)
	}

	for i, rule := range def.RedirectRules {
		rp := fmt.Sprintf("%s.redirect_rules[%d]", prefix, i)
		if rule.Redirect == "" {
			errs = append(errs, VError{Path: rp + ".redirect", Code: "REQUIRED", Message: "redirect target is required; the rule will be skipped"})
		}
		for j, cond := range rule.Rules {
			if cond.Variable == "" {
				errs = append(errs, VError{
					Path:    fmt.Sprintf("%s.rules[%d].variable", rp, j),
					Code:    "REQUIRED",
					Message: "condition variable is required",
				})
			}
		}
	}

	for i, binding := range def.EntityRoles {
		if strings.TrimSpace(binding.Role) == "" {
			errs = append(errs, VError{
				Path:    fmt.Sprintf("%s.entity_roles[%d].role", prefix, i),
				Code:    "REQUIRED",
				Message: "role path is required",
			})
		}
	}

	return errs
}

// checkCatalogue flags variables unknown to the probed OpenFisca instance.
// With no catalogue available the check is skipped.
func checkCatalogue(path, variable string, profile *openfisca.InstanceProfile) []VError {
	known, checked := profile.KnowsVariable(variable)
	if !checked || known {
		return nil
	}
	return []VError{{
		Path:    path,
		Code:    "UNKNOWN_TO_INSTANCE",
		Message: fmt.Sprintf("variable %q is not advertised by the OpenFisca instance", variable),
	}}
}
