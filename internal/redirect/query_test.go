package redirect

import (
	"testing"

	"github.com/rulesascode/journey/internal/fisca"
)

func orderedMap(pairs ...any) *fisca.OrderedMap {
	m := fisca.NewOrderedMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

func TestEncodeQuery(t *testing.T) {
	values := orderedMap(
		"benefit", 200,
		"eligible", true,
		"rejected", false,
		"name", "ann lee",
		"rate", 0.5,
		"empty", nil,
	)

	got := EncodeQuery(values)
	want := "benefit=200&eligible=1&rejected=0&name=ann lee&rate=0.5"
	if got != want {
		t.Errorf("EncodeQuery() = %q, want %q", got, want)
	}
}

func TestEncodeQuery_empty(t *testing.T) {
	if got := EncodeQuery(fisca.NewOrderedMap()); got != "" {
		t.Errorf("EncodeQuery() = %q, want empty", got)
	}
}

func TestComposeDestination_mergePrecedence(t *testing.T) {
	fiscaFields := orderedMap("benefit", 100, "source", "calc")
	queryAppend := orderedMap("source", "append", "change", 1)

	dest := ComposeDestination("/confirm?source=url&extra=yes", fiscaFields, queryAppend)

	if dest.URL != "/confirm" {
		t.Errorf("URL = %q, want /confirm", dest.URL)
	}
	// queryAppend overrides fiscaFields, URL parameters override both; the
	// first writer of a key fixes its position.
	want := "benefit=100&source=url&change=1&extra=yes"
	if dest.Query != want {
		t.Errorf("Query = %q, want %q", dest.Query, want)
	}
}

func TestComposeDestination_noQuery(t *testing.T) {
	dest := ComposeDestination("/confirm", fisca.NewOrderedMap(), fisca.NewOrderedMap())
	if dest.URL != "/confirm" || dest.Query != "" {
		t.Errorf("ComposeDestination() = %+v, want bare /confirm", dest)
	}
	if dest.String() != "/confirm" {
		t.Errorf("String() = %q, want /confirm", dest.String())
	}
}

func TestComposeDestination_decodesExistingParams(t *testing.T) {
	dest := ComposeDestination("/confirm?name=ann%20lee", fisca.NewOrderedMap(), fisca.NewOrderedMap())
	if dest.Query != "name=ann lee" {
		t.Errorf("Query = %q, want decoded name=ann lee", dest.Query)
	}
}

func TestDestination_string(t *testing.T) {
	d := Destination{URL: "/confirm", Query: "a=1"}
	if got := d.String(); got != "/confirm?a=1" {
		t.Errorf("String() = %q, want /confirm?a=1", got)
	}
}
