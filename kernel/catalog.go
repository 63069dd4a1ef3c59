// MODUL: catalog
// ZWECK: ImplementationCatalog - Kind -> geordnete Liste registrierter Implementierungen
// INPUT: Kind, Implementation (Registrierung beim Start, meist aus init())
// OUTPUT: Read-only Sicht in Registrierungsreihenfolge
// NEBENEFFEKTE: Aendert DefaultCatalog bei Registrierung
// ABHAENGIGKEITEN: github.com/emirpasic/gods/v2/lists/arraylist
// HINWEISE: Kein Entfernen; nach Freeze ist der Katalog unveraenderlich und lock-frei lesbar

package kernel

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/v2/lists/arraylist"
)

// ============================================================================
// Catalog
// ============================================================================

// Catalog holds every implementation per primitive kind. Registration order is
// the tie-break order of the selector.
type Catalog struct {
	mu      sync.Mutex
	pending map[Kind]*arraylist.List[Implementation]

	frozen   atomic.Bool
	snapshot map[Kind][]Implementation
}

// NewCatalog erstellt einen leeren Katalog.
func NewCatalog() *Catalog {
	return &Catalog{pending: make(map[Kind]*arraylist.List[Implementation])}
}

// DefaultCatalog ist der prozessweite Katalog. Backends registrieren sich via init().
var DefaultCatalog = NewCatalog()

// ============================================================================
// Registrierung
// ============================================================================

// Register appends impl to the list for kind. Duplicate names per kind and
// registration after Freeze are configuration errors.
func (c *Catalog) Register(kind Kind, impl Implementation) error {
	if kind == "" {
		return &Error{Op: "register", Err: fmt.Errorf("%w: empty kind", ErrInvalidImplementation)}
	}
	if impl == nil {
		return &Error{Op: "register", Kind: kind, Err: fmt.Errorf("%w: nil implementation", ErrInvalidImplementation)}
	}
	name := impl.Name()
	if name == "" {
		return &Error{Op: "register", Kind: kind, Err: fmt.Errorf("%w: empty name", ErrInvalidImplementation)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen.Load() {
		return &Error{Op: "register", Kind: kind, Name: name, Err: ErrCatalogFrozen}
	}

	list, ok := c.pending[kind]
	if !ok {
		list = arraylist.New[Implementation]()
		c.pending[kind] = list
	}
	for _, existing := range list.Values() {
		if existing.Name() == name {
			return &Error{Op: "register", Kind: kind, Name: name, Err: ErrDuplicateImplementation}
		}
	}

	list.Add(impl)
	slog.Debug("registered kernel implementation", "kind", kind, "name", name, "position", list.Size()-1)
	return nil
}

// MustRegister is like Register but panics on error. Backends call it from init.
func (c *Catalog) MustRegister(kind Kind, impls ...Implementation) {
	for _, impl := range impls {
		if err := c.Register(kind, impl); err != nil {
			panic(err)
		}
	}
}

// Freeze ends the registration phase. It is idempotent.
func (c *Catalog) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen.Load() {
		return
	}

	c.snapshot = make(map[Kind][]Implementation, len(c.pending))
	for kind, list := range c.pending {
		c.snapshot[kind] = slices.Clip(list.Values())
	}
	c.frozen.Store(true)
}

// Frozen reports whether Freeze was called.
func (c *Catalog) Frozen() bool {
	return c.frozen.Load()
}

// ============================================================================
// Abfrage
// ============================================================================

// GetAll returns the implementations for kind in registration order. After Freeze
// the returned slice is shared and must not be modified; before Freeze it is a copy.
func (c *Catalog) GetAll(kind Kind) []Implementation {
	if c.frozen.Load() {
		return c.snapshot[kind]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if list, ok := c.pending[kind]; ok {
		return list.Values()
	}
	return nil
}

// Get returns the implementation registered as name for kind.
func (c *Catalog) Get(kind Kind, name string) (Implementation, bool) {
	for _, impl := range c.GetAll(kind) {
		if impl.Name() == name {
			return impl, true
		}
	}
	return nil, false
}

// Kinds returns every kind with at least one implementation, sorted.
func (c *Catalog) Kinds() []Kind {
	if c.frozen.Load() {
		return slices.Sorted(maps.Keys(c.snapshot))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.pending))
}

// Len returns the total number of registered implementations.
func (c *Catalog) Len() int {
	n := 0
	for _, kind := range c.Kinds() {
		n += len(c.GetAll(kind))
	}
	return n
}
