package definition

import (
	"github.com/rulesascode/journey/internal/fisca"
	"github.com/rulesascode/journey/model"
)

// RemoveElementMappings returns a copy of the definition with every trace
// of a form element removed: its field mapping, the variable definition the
// mapping pointed at, its entity role binding, and its immediate-response
// flag. The input definition is never mutated; callers persist the returned
// value through whatever stores their definitions.
func RemoveElementMappings(def model.JourneyDefinition, elementKey string) model.JourneyDefinition {
	out := def

	var removedVariable string
	out.FieldMappings = make([]model.FieldMapping, 0, len(def.FieldMappings))
	for _, m := range def.FieldMappings {
		if m.Field == elementKey {
			if m.Key != model.NilMapping {
				removedVariable = fisca.ParseKeyPath(m.Key).Variable
			}
			continue
		}
		out.FieldMappings = append(out.FieldMappings, m)
	}

	if removedVariable != "" {
		out.Variables = make(map[string]model.VariableDefinition, len(def.Variables))
		for name, vd := range def.Variables {
			if name == removedVariable {
				continue
			}
			out.Variables[name] = vd
		}
	}

	out.EntityRoles = make([]model.EntityRole, 0, len(def.EntityRoles))
	for _, binding := range def.EntityRoles {
		if binding.Field == elementKey {
			continue
		}
		out.EntityRoles = append(out.EntityRoles, binding)
	}

	if _, ok := def.ImmediateResponse[elementKey]; ok {
		out.ImmediateResponse = make(map[string]bool, len(def.ImmediateResponse))
		for field, enabled := range def.ImmediateResponse {
			if field == elementKey {
				continue
			}
			out.ImmediateResponse[field] = enabled
		}
	}

	return out
}
