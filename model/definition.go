package model

// VariableDefinition holds the metadata of a single OpenFisca variable.
// Only DefinitionPeriod is interpreted by this service; the remaining
// attributes are carried for diagnostics and validation output.
type VariableDefinition struct {
	DefinitionPeriod string `yaml:"definition_period" json:"definitionPeriod"`
	ValueType        string `yaml:"value_type,omitempty" json:"valueType,omitempty"`
	Entity           string `yaml:"entity,omitempty" json:"entity,omitempty"`
	Description      string `yaml:"description,omitempty" json:"description,omitempty"`
}

// FieldMapping associates a form field with a dotted OpenFisca key path,
// or with the sentinel "_nil" to exclude the field from the payload and
// carry its raw value into the confirmation query string instead.
//
// Mappings are an ordered list, not a map: the builder and interpreter
// iterate them in declaration order, and that order is observable through
// payload key order and first-match key searches.
type FieldMapping struct {
	Field string `yaml:"field" json:"field"`
	Key   string `yaml:"key" json:"key"`
}

// NilMapping is the sentinel key that excludes a field from the payload.
const NilMapping = "_nil"

// PeriodField is the reserved form field that selects the calculation
// period instead of being mapped into the payload.
const PeriodField = "period"

// EntityRole binds a form field to a role slot inside a group entity,
// e.g. families.familyA.children.childA with is_array true.
type EntityRole struct {
	Field   string `yaml:"field" json:"field"`
	Role    string `yaml:"role" json:"role"`
	IsArray bool   `yaml:"is_array" json:"is_array"`
}

// RuleCondition is a single variable/value condition of a redirect rule.
// Values are always strings; matching uses loose equality.
type RuleCondition struct {
	Variable string `yaml:"variable" json:"variable"`
	Value    string `yaml:"value" json:"value"`
}

// RedirectRule maps an ordered AND-conjunction of conditions to a
// destination URL. Rules are evaluated in declaration order; the first
// rule whose conditions all match wins.
type RedirectRule struct {
	Redirect string          `yaml:"redirect" json:"redirect"`
	Rules    []RuleCondition `yaml:"rules" json:"rules"`
}

// JourneyDefinition is the declarative configuration of a single form
// journey: how submissions map onto an OpenFisca payload, which results to
// extract, and where to redirect afterwards. Definitions are loaded
// read-only from YAML and never mutated in place; updates produce a new
// value (see definition.RemoveElementMappings).
type JourneyDefinition struct {
	ID      string `yaml:"id" json:"id"`
	Version string `yaml:"version" json:"version"`

	// APIEndpoint overrides the globally configured OpenFisca base URI
	// for this journey. Optional.
	APIEndpoint string `yaml:"api_endpoint" json:"api_endpoint,omitempty"`

	// AuthorizationHeader is sent verbatim as the Authorization header on
	// OpenFisca calls for this journey. Optional, never serialized.
	AuthorizationHeader string `yaml:"authorization_header" json:"-"`

	// ConfirmationURL is the default destination when no redirect rule
	// matches or the calculation fails.
	ConfirmationURL string `yaml:"confirmation_url" json:"confirmation_url"`

	Debug   bool `yaml:"debug" json:"debug"`
	Logging bool `yaml:"logging" json:"logging"`

	FieldMappings []FieldMapping                `yaml:"field_mappings" json:"field_mappings"`
	Variables     map[string]VariableDefinition `yaml:"variables" json:"variables"`
	EntityRoles   []EntityRole                  `yaml:"entity_roles" json:"entity_roles"`

	// ResultKeys and ImmediateExitKeys are dotted result paths. The loader
	// expands comma-separated entries, so each element holds exactly one key.
	ResultKeys        []string `yaml:"result_keys" json:"result_keys"`
	ImmediateExitKeys []string `yaml:"immediate_exit_keys" json:"immediate_exit_keys"`

	RedirectRules []RedirectRule `yaml:"redirect_rules" json:"redirect_rules"`

	// ImmediateResponse marks form fields that trigger a mid-journey probe.
	ImmediateResponse      map[string]bool `yaml:"immediate_response" json:"immediate_response"`
	ImmediateAjaxIndicator bool            `yaml:"immediate_ajax_indicator" json:"immediate_ajax_indicator"`

	// Populated by the loader.
	Checksum   string `yaml:"-" json:"-"`
	SourceFile string `yaml:"-" json:"-"`
}

// Mapping returns the dotted key mapped to a form field.
func (d JourneyDefinition) Mapping(field string) (string, bool) {
	for _, m := range d.FieldMappings {
		if m.Field == field {
			return m.Key, true
		}
	}
	return "", false
}

// Variable returns the definition of a variable, if known.
func (d JourneyDefinition) Variable(name string) (VariableDefinition, bool) {
	v, ok := d.Variables[name]
	return v, ok
}

// FieldHasImmediateResponse reports whether a form field triggers an
// immediate-response probe.
func (d JourneyDefinition) FieldHasImmediateResponse(field string) bool {
	return d.ImmediateResponse[field]
}
