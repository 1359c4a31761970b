package fisca

import (
	"time"

	"github.com/rulesascode/journey/model"
)

// QueryAppendKey is the debug side-table key carrying the query-append map
// from payload construction through to response interpretation.
const QueryAppendKey = "query_append"

// BuildInput collects everything payload construction depends on. Period
// resolution is a pure function of these inputs; there is no ambient
// request state.
type BuildInput struct {
	Submission map[string]any
	Definition model.JourneyDefinition

	// PeriodOverride is the textual period date from the request, if any.
	PeriodOverride string

	// Now anchors the default period when no override applies.
	Now time.Time
}

// Build translates a flat form submission into the nested request document
// for the calculation service, together with the query-append values that
// bypass the payload and travel straight to the confirmation query string.
//
// Construction order matters: mapped fields populate entities first, result
// and immediate-exit keys request computed variables, and role bindings run
// last so they can see every entity the earlier steps created.
func Build(in BuildInput) (*Document, *OrderedMap) {
	def := in.Definition
	doc := NewDocument()
	queryAppend := NewOrderedMap()

	period := in.PeriodOverride
	if period == "" {
		if v, ok := in.Submission[model.PeriodField]; ok {
			if s, ok := v.(string); ok {
				period = s
			}
		}
	}
	if period != "" {
		queryAppend.Set(model.PeriodField, period)
		queryAppend.Set("change", 1)
	} else {
		period = in.Now.Format(DateLayout)
	}

	formatted := func(variable string) string {
		vd, ok := def.Variable(variable)
		if !ok {
			return ""
		}
		return FormatPeriodDate(vd.DefinitionPeriod, period)
	}

	for _, mapping := range def.FieldMappings {
		if mapping.Field == model.PeriodField {
			continue
		}
		if mapping.Key == model.NilMapping {
			if v, ok := in.Submission[mapping.Field]; ok && v != nil {
				queryAppend.Set(mapping.Field, v)
			}
			continue
		}
		// Falsy values ("", "0", zero numbers, false, nil) never reach the
		// calculation service; their variables fall back to instance defaults.
		raw, ok := in.Submission[mapping.Field]
		if !ok || !Truthy(raw) {
			continue
		}
		kp := ParseKeyPath(mapping.Key)
		p := formatted(kp.Variable)
		if p == "" {
			// Unknown variable: the field is dropped rather than sent
			// with a period the service cannot interpret.
			continue
		}
		doc.SetValue(append(kp.Path, p), ParseBooleanWord(raw))
	}

	for _, resultKey := range def.ResultKeys {
		kp := ParseKeyPath(resultKey)
		p := formatted(kp.Variable)
		if p == "" {
			continue
		}
		doc.SetValue(append(kp.Path, p), nil)
	}

	for _, binding := range def.EntityRoles {
		kp := ParseKeyPath(binding.Role)
		// Roles only attach to entities that something actually created.
		if doc.FindKey(kp.Variable, nil) == nil {
			continue
		}
		if binding.IsArray {
			members, _ := doc.Value(kp.Parents).([]any)
			doc.SetValue(kp.Parents, append(members, kp.Variable))
			continue
		}
		doc.SetValue(kp.Parents, kp.Variable)
	}

	for _, exitKey := range def.ImmediateExitKeys {
		kp := ParseKeyPath(exitKey)
		if !doc.KeyPathExists(kp.Parents) || doc.KeyPathExists(kp.Path) {
			continue
		}
		p := formatted(kp.Variable)
		if p == "" {
			continue
		}
		doc.SetValue(append(kp.Path, p), nil)
	}

	doc.SetDebugData(QueryAppendKey, queryAppend)
	return doc, queryAppend
}
