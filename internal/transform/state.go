// Package transform turns decoded feeds into the published documents.
//
// Every exported transform is a pure function of its feeds plus the run
// State. The only cross-source data are the upgrade value index (written
// by Abilities, read by AghsDescriptions) and the talent bonus lookup
// shared by every ability name in a run.
package transform

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"

	"dotaconstants/internal/tooltip"
)

var (
	// ErrIndexSealed is returned when writing to a sealed UpgradeIndex.
	ErrIndexSealed = errors.New("upgrade index sealed")
	// ErrIndexDuplicate is returned when an entity is recorded twice.
	ErrIndexDuplicate = errors.New("upgrade index entry already written")
)

// State carries the data shared between transforms of one run.
type State struct {
	Upgrades *UpgradeIndex
	Bonuses  *tooltip.BonusLookup
}

// NewState returns empty run state.
func NewState() *State {
	return &State{
		Upgrades: NewUpgradeIndex(),
		Bonuses:  tooltip.NewBonusLookup(),
	}
}

// UpgradeIndex maps an ability to the attribute values it has once a
// scepter or shard is applied. Each ability is written at most once and
// the index is sealed when the abilities source completes; after that it
// is read-only.
type UpgradeIndex struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
	sealed  bool
}

// NewUpgradeIndex returns an empty, writable index.
func NewUpgradeIndex() *UpgradeIndex {
	return &UpgradeIndex{entries: make(map[string]map[string]string)}
}

// Record stores the values for one ability.
func (x *UpgradeIndex) Record(ability string, values map[string]string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.sealed {
		return fmt.Errorf("record %s: %w", ability, ErrIndexSealed)
	}
	if _, ok := x.entries[ability]; ok {
		return fmt.Errorf("record %s: %w", ability, ErrIndexDuplicate)
	}
	x.entries[ability] = values
	return nil
}

// Seal makes the index read-only.
func (x *UpgradeIndex) Seal() {
	x.mu.Lock()
	x.sealed = true
	x.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (x *UpgradeIndex) Sealed() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.sealed
}

// Values returns a copy of the entry for an ability.
func (x *UpgradeIndex) Values(ability string) (map[string]string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	v, ok := x.entries[ability]
	return maps.Clone(v), ok
}

// Len returns the number of abilities recorded.
func (x *UpgradeIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Abilities returns the recorded ability names, sorted.
func (x *UpgradeIndex) Abilities() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	names := make([]string, 0, len(x.entries))
	for name := range x.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
