package fisca

import (
	"strings"

	"github.com/rulesascode/journey/model"
)

// ImmediateExitBenefit is the sentinel total returned when an
// immediate-exit key fires. It is distinct from a zero benefit; callers
// must test for it explicitly rather than branching on sign.
const ImmediateExitBenefit = -1

// BenefitFieldMarker tags form fields whose values are summed into the
// benefit total.
const BenefitFieldMarker = "_benefit"

// Interpretation is the outcome of reading a calculation response.
type Interpretation struct {
	// ResultValues maps each configured result key to the first value of
	// its period sub-map in the response. Keys absent from the response are
	// absent here too.
	ResultValues *OrderedMap

	// FiscaFields maps form field names to the response values of their
	// mapped variables. Benefit fields hold the coerced integer.
	FiscaFields *OrderedMap

	// TotalBenefits is 0 for no benefit, a positive sum of benefit fields,
	// or ImmediateExitBenefit.
	TotalBenefits int

	QueryAppend   *OrderedMap
	ImmediateExit bool
}

// Interpret extracts result values from a calculation response, sums
// benefit fields and detects immediate-exit signals. The request document
// supplies the query-append values carried over from construction.
func Interpret(response, request *Document, def model.JourneyDefinition) Interpretation {
	out := Interpretation{
		ResultValues: NewOrderedMap(),
		FiscaFields:  NewOrderedMap(),
		QueryAppend:  NewOrderedMap(),
	}

	if qa, ok := request.DebugData(QueryAppendKey); ok {
		if m, ok := qa.(*OrderedMap); ok {
			out.QueryAppend = m
		}
	}

	for _, resultKey := range def.ResultKeys {
		kp := ParseKeyPath(resultKey)
		if v, ok := firstPeriodValue(response, kp.Path); ok {
			out.ResultValues.Set(resultKey, v)
		}
	}

	for _, mapping := range def.FieldMappings {
		if mapping.Key == model.NilMapping || mapping.Field == model.PeriodField {
			continue
		}
		kp := ParseKeyPath(mapping.Key)
		if !response.KeyPathExists(kp.Path) {
			continue
		}
		// A leaf that is not a period sub-map carries no result; recording
		// it would surface a nil rule-matching candidate.
		value, ok := firstPeriodValue(response, kp.Path)
		if !ok {
			continue
		}
		if strings.Contains(mapping.Field, BenefitFieldMarker) {
			n := ToInt(value)
			out.TotalBenefits += n
			value = n
		}
		out.FiscaFields.Set(mapping.Field, value)
	}

	out.QueryAppend.Set("total_benefit", out.TotalBenefits)

	for _, exitKey := range def.ImmediateExitKeys {
		kp := ParseKeyPath(exitKey)
		sub, ok := response.Value(kp.Path).(*OrderedMap)
		if !ok {
			continue
		}
		if !anyTruthy(sub) {
			continue
		}
		out.ImmediateExit = true
		out.TotalBenefits = ImmediateExitBenefit
		out.QueryAppend.Set("immediate_exit", true)
		break
	}

	response.SetDebugData("result_values", out.ResultValues)
	response.SetDebugData("fisca_fields", out.FiscaFields)
	response.SetDebugData("total_benefits", out.TotalBenefits)
	response.SetDebugData(QueryAppendKey, out.QueryAppend)
	return out
}

// firstPeriodValue returns the first value, by insertion order, of the
// period sub-map at path. The response may key results under a period the
// request never sent, so the first key is taken rather than a lookup.
func firstPeriodValue(doc *Document, path []string) (any, bool) {
	sub, ok := doc.Value(path).(*OrderedMap)
	if !ok {
		return nil, false
	}
	_, v, ok := sub.First()
	return v, ok
}

func anyTruthy(m *OrderedMap) bool {
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		if Truthy(v) {
			return true
		}
	}
	return false
}
