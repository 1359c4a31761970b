package openfisca

import (
	"context"
	"net/http"
	"testing"

	"go.uber.org/zap"
)

const specWithCalculate = `{
	"openapi": "3.0.0",
	"info": {"title": "openfisca", "version": "1.0.0"},
	"paths": {
		"/calculate": {
			"post": {"responses": {"200": {"description": "ok"}}}
		}
	}
}`

func TestProbe_fullProfile(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/spec":
			w.Write([]byte(specWithCalculate))
		case "/variables":
			w.Write([]byte(`{"age":{},"income":{}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	profile := Probe(context.Background(), client, zap.NewNop())

	if !profile.SpecChecked {
		t.Error("SpecChecked = false, want true")
	}
	if !profile.CalculateAdvertised {
		t.Error("CalculateAdvertised = false, want true")
	}
	if known, checked := profile.KnowsVariable("age"); !known || !checked {
		t.Errorf("KnowsVariable(age) = (%v, %v), want (true, true)", known, checked)
	}
	if known, checked := profile.KnowsVariable("unknown"); known || !checked {
		t.Errorf("KnowsVariable(unknown) = (%v, %v), want (false, true)", known, checked)
	}
}

func TestProbe_unavailableInstance(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	profile := Probe(context.Background(), client, zap.NewNop())

	if profile.SpecChecked {
		t.Error("SpecChecked = true with no spec endpoint")
	}
	if _, checked := profile.KnowsVariable("age"); checked {
		t.Error("KnowsVariable() reported checked with no catalogue")
	}
}

func TestProbe_specWithoutCalculate(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/spec":
			w.Write([]byte(`{"openapi":"3.0.0","info":{"title":"x","version":"1"},"paths":{}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	profile := Probe(context.Background(), client, zap.NewNop())

	if !profile.SpecChecked {
		t.Error("SpecChecked = false, want true")
	}
	if profile.CalculateAdvertised {
		t.Error("CalculateAdvertised = true for spec without /calculate")
	}
}

func TestInstanceProfile_nilSafe(t *testing.T) {
	var profile *InstanceProfile
	if known, checked := profile.KnowsVariable("age"); known || checked {
		t.Errorf("nil profile KnowsVariable() = (%v, %v), want (false, false)", known, checked)
	}
}

func TestInstanceProfile_variableNames(t *testing.T) {
	p := &InstanceProfile{variables: map[string]struct{}{"b": {}, "a": {}}}
	names := p.VariableNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("VariableNames() = %v, want [a b]", names)
	}
}
