package index

import (
	"fmt"
	"sync"

	"github.com/hupe1980/docdb/bitmap"
	"github.com/hupe1980/docdb/document"
)

// Manager owns the indexers of a collection.
//
// It is safe for concurrent use. Inserts take the write lock, filters and
// value lookups share the read lock.
type Manager struct {
	mu       sync.RWMutex
	indexers []Indexer
	byName   map[string]Indexer
	byColumn map[string][]Indexer
}

// NewManager creates a manager holding one indexer per info. columnTypes
// maps every dotted column path to its field type.
func NewManager(infos []Info, columnTypes map[string]document.FieldType) (*Manager, error) {
	m := &Manager{
		byName:   make(map[string]Indexer),
		byColumn: make(map[string][]Indexer),
	}
	for _, info := range infos {
		if err := m.CreateIndex(info, columnTypes); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CreateIndex adds a new, empty indexer.
func (m *Manager) CreateIndex(info Info, columnTypes map[string]document.FieldType) error {
	if err := info.Validate(); err != nil {
		return err
	}
	ft, ok := columnTypes[info.Column]
	if !ok {
		return fmt.Errorf("%w: index %q refers to unknown column %q", ErrInvalidArgument, info.Name, info.Column)
	}
	ixr, err := NewIndexer(info, ft)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.byName[info.Name]; dup {
		return fmt.Errorf("%w: %q", ErrIndexExists, info.Name)
	}
	m.indexers = append(m.indexers, ixr)
	m.byName[info.Name] = ixr
	m.byColumn[info.Column] = append(m.byColumn[info.Column], ixr)
	return nil
}

// IndexDocuments assigns docs the IDs firstID, firstID+1, ... and adds them
// to every indexer. All documents are validated first, so a failed call
// leaves the indexes untouched. It returns the ID following the last
// document.
func (m *Manager) IndexDocuments(firstID uint64, docs []document.Document) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, doc := range docs {
		for _, ixr := range m.indexers {
			if err := ixr.ValidateForInsert(doc); err != nil {
				return firstID, fmt.Errorf("document %d: %w", i, err)
			}
		}
	}

	id := firstID
	for _, doc := range docs {
		for _, ixr := range m.indexers {
			if err := ixr.Insert(id, doc); err != nil {
				// Only reachable if a document changes between validation
				// and insert.
				return id, fmt.Errorf("index %q: %w", ixr.Stat().Info.Name, err)
			}
		}
		id++
	}
	return id, nil
}

// padder is implemented by indexers that hold a slot for every ID.
type padder interface {
	Pad(id, n uint64)
}

// SkipDocuments reserves n IDs starting at firstID that have no document.
// Positional indexers store zero values for them; callers must hide the IDs
// from filter results.
func (m *Manager) SkipDocuments(firstID, n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ixr := range m.indexers {
		if p, ok := ixr.(padder); ok {
			p.Pad(firstID, n)
		}
	}
}

// TryGetBestIndex returns the first indexer on column able to evaluate op.
func (m *Manager) TryGetBestIndex(column string, op Operator) (Stat, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ixr := m.best(column, op)
	if ixr == nil {
		return Stat{}, false
	}
	return ixr.Stat(), true
}

func (m *Manager) best(column string, op Operator) Indexer {
	for _, ixr := range m.byColumn[column] {
		if ixr.Supports(op) {
			return ixr
		}
	}
	return nil
}

// Filter evaluates each constraint on its column's best indexer and returns
// the intersection.
func (m *Manager) Filter(constraints []Constraint) (*bitmap.Bitmap, error) {
	if len(constraints) == 0 {
		return nil, fmt.Errorf("%w: no constraints", ErrInvalidArgument)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sets := make([]*bitmap.Bitmap, 0, len(constraints))
	for _, c := range constraints {
		ixr, err := m.lookup(c.Column, c.Op)
		if err != nil {
			return nil, err
		}
		set, err := ixr.Filter(c)
		if err != nil {
			return nil, err
		}
		if set.IsEmpty() {
			return set, nil
		}
		sets = append(sets, set)
	}
	if len(sets) == 1 {
		return sets[0], nil
	}
	return bitmap.And(sets...), nil
}

// FilterRange evaluates lower < column < upper on the column's best
// indexer. Both constraints must name the same column.
func (m *Manager) FilterRange(lower, upper Constraint) (*bitmap.Bitmap, error) {
	if lower.Column != upper.Column {
		return nil, fmt.Errorf("%w: range bounds on different columns %q and %q",
			ErrInvalidArgument, lower.Column, upper.Column)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ixr, err := m.lookup(lower.Column, lower.Op)
	if err != nil {
		return nil, err
	}
	return ixr.FilterRange(lower, upper)
}

func (m *Manager) lookup(column string, op Operator) (Indexer, error) {
	if len(m.byColumn[column]) == 0 {
		return nil, fmt.Errorf("%w: column %q", ErrNoIndex, column)
	}
	ixr := m.best(column, op)
	if ixr == nil {
		return nil, &OperatorError{Index: m.byColumn[column][0].Stat().Info.Name, Op: op}
	}
	return ixr, nil
}

// Stats returns the stats of all indexers in creation order.
func (m *Manager) Stats() []Stat {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Stat, len(m.indexers))
	for i, ixr := range m.indexers {
		out[i] = ixr.Stat()
	}
	return out
}

// Len returns the number of indexers.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.indexers)
}

// TryGetIntegerValue reads the value of column for id from an indexer that
// stores values by ID.
func (m *Manager) TryGetIntegerValue(column string, id uint64) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ixr := range m.byColumn[column] {
		if v, ok := ixr.(IntegerValuer); ok {
			return v.TryGetIntegerValue(id)
		}
	}
	return 0, false
}

// TryGetIntegerVector reads the values of column for ids.
func (m *Manager) TryGetIntegerVector(column string, ids []uint64, out []int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ixr := range m.byColumn[column] {
		if v, ok := ixr.(IntegerValuer); ok {
			return v.TryGetIntegerVector(ids, out)
		}
	}
	return false
}

// TryGetDoubleValue reads the value of column for id.
func (m *Manager) TryGetDoubleValue(column string, id uint64) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ixr := range m.byColumn[column] {
		if v, ok := ixr.(DoubleValuer); ok {
			return v.TryGetDoubleValue(id)
		}
	}
	return 0, false
}

// TryGetDoubleVector reads the values of column for ids.
func (m *Manager) TryGetDoubleVector(column string, ids []uint64, out []float64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ixr := range m.byColumn[column] {
		if v, ok := ixr.(DoubleValuer); ok {
			return v.TryGetDoubleVector(ids, out)
		}
	}
	return false
}

// TryGetStringValue reads the value of column for id.
func (m *Manager) TryGetStringValue(column string, id uint64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ixr := range m.byColumn[column] {
		if v, ok := ixr.(StringValuer); ok {
			return v.TryGetStringValue(id)
		}
	}
	return "", false
}

// TryGetBlobValue reads the value of column for id.
func (m *Manager) TryGetBlobValue(column string, id uint64) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ixr := range m.byColumn[column] {
		if v, ok := ixr.(BlobValuer); ok {
			return v.TryGetBlobValue(id)
		}
	}
	return nil, false
}
