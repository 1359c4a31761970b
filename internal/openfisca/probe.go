package openfisca

import (
	"context"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
)

// InstanceProfile is what a startup probe learned about an OpenFisca
// instance: whether its OpenAPI document advertises the calculation
// endpoint, and which variables it knows. A zero-value profile reports
// everything as unknown, which downstream checks treat as "skip".
type InstanceProfile struct {
	// SpecChecked is true when the OpenAPI document was fetched and parsed.
	SpecChecked bool
	// CalculateAdvertised is true when the document lists POST /calculate.
	CalculateAdvertised bool

	// variables indexes the instance's variable names. Nil when the
	// catalogue could not be fetched.
	variables map[string]struct{}
}

// KnowsVariable reports whether the instance advertises a variable. The
// second result is false when the catalogue was never fetched and the
// check should be skipped.
func (p *InstanceProfile) KnowsVariable(name string) (known, checked bool) {
	if p == nil || p.variables == nil {
		return false, false
	}
	_, ok := p.variables[name]
	return ok, true
}

// VariableNames returns the indexed variable names in sorted order.
func (p *InstanceProfile) VariableNames() []string {
	names := make([]string, 0, len(p.variables))
	for name := range p.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Probe interrogates an instance's /spec and /variables endpoints and
// builds its profile. Probing is best-effort: any failure is logged at
// warn level and leaves the corresponding part of the profile unknown,
// never blocking startup. Misconfiguration degrades to sparser payloads
// at runtime, not to a refused boot.
func Probe(ctx context.Context, client *Client, logger *zap.Logger) *InstanceProfile {
	profile := &InstanceProfile{}

	if raw, err := client.Spec(ctx); err == nil {
		advertised, err := specAdvertisesCalculate(raw)
		if err != nil {
			logger.Warn("openfisca spec document unparseable", zap.Error(err))
		} else {
			profile.SpecChecked = true
			profile.CalculateAdvertised = advertised
			if !advertised {
				logger.Warn("openfisca spec does not advertise /calculate",
					zap.String("base_uri", client.BaseURI()))
			}
		}
	} else {
		logger.Warn("openfisca spec fetch failed", zap.Error(err))
	}

	if catalogue, err := client.Variables(ctx); err == nil {
		profile.variables = make(map[string]struct{}, len(catalogue))
		for name := range catalogue {
			profile.variables[name] = struct{}{}
		}
	} else {
		logger.Warn("openfisca variable catalogue fetch failed", zap.Error(err))
	}

	return profile
}

// specAdvertisesCalculate parses an OpenAPI document and reports whether
// it lists a POST /calculate operation.
func specAdvertisesCalculate(raw []byte) (bool, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return false, fmt.Errorf("openfisca: parse spec: %w", err)
	}
	if doc.Paths == nil {
		return false, nil
	}
	item := doc.Paths.Value("/calculate")
	return item != nil && item.Post != nil, nil
}
