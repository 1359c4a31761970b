package definition

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rulesascode/journey/model"
)

// snapshot is an immutable collection of all journey definitions indexed
// by ID.
type snapshot struct {
	journeys map[string]model.JourneyDefinition
	checksum string
}

// Registry is a read-optimized, thread-safe store of loaded journey
// definitions. It uses atomic pointer swap for lock-free concurrent reads.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry from the given definitions.
func NewRegistry(defs []model.JourneyDefinition) *Registry {
	r := &Registry{}
	r.Replace(defs)
	return r
}

// Replace atomically swaps the registry contents with a new snapshot built
// from the given definitions.
func (r *Registry) Replace(defs []model.JourneyDefinition) {
	s := &snapshot{
		journeys: make(map[string]model.JourneyDefinition, len(defs)),
	}

	var checksumParts []string
	for _, def := range defs {
		s.journeys[def.ID] = def
		checksumParts = append(checksumParts, def.Checksum)
	}

	sort.Strings(checksumParts)
	combined := strings.Join(checksumParts, ":")
	s.checksum = fmt.Sprintf("%x", sha256.Sum256([]byte(combined)))

	r.snap.Store(s)
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// Journey returns the journey definition with the given ID.
func (r *Registry) Journey(journeyID string) (model.JourneyDefinition, bool) {
	j, ok := r.current().journeys[journeyID]
	return j, ok
}

// AllJourneys returns all journey definitions sorted by ID.
func (r *Registry) AllJourneys() []model.JourneyDefinition {
	s := r.current()
	defs := make([]model.JourneyDefinition, 0, len(s.journeys))
	for _, j := range s.journeys {
		defs = append(defs, j)
	}
	sort.Slice(defs, func(i, k int) bool { return defs[i].ID < defs[k].ID })
	return defs
}

// Count returns the number of loaded journeys.
func (r *Registry) Count() int {
	return len(r.current().journeys)
}

// Checksum returns the combined checksum of all loaded definitions.
func (r *Registry) Checksum() string {
	return r.current().checksum
}
