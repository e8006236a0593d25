package store

import (
	"sync"

	"github.com/google/btree"
	"github.com/quaddb/sail/pkg/changeset"
	"github.com/quaddb/sail/pkg/metrics"
	"github.com/quaddb/sail/pkg/rdf"
)

// entry is one statement indexed under a particular term ordering; key
// is the concatenation of the four term keys in that ordering's order,
// used purely for btree comparison.
type entry struct {
	key  string
	stmt rdf.Statement
}

func entryLess(a, b entry) bool { return a.key < b.key }

// Memory is an in-memory Source indexed four ways (SPOC, POSC, OSPC,
// CSPO) so that any pattern with at least one bound term can be
// answered by a single ordered range scan rather than a full scan.
type Memory struct {
	mu sync.RWMutex

	spoc *btree.BTreeG[entry]
	posc *btree.BTreeG[entry]
	ospc *btree.BTreeG[entry]
	cspo *btree.BTreeG[entry]

	namespaces map[string]string
}

// NewMemory returns an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{
		spoc:       btree.NewG(32, entryLess),
		posc:       btree.NewG(32, entryLess),
		ospc:       btree.NewG(32, entryLess),
		cspo:       btree.NewG(32, entryLess),
		namespaces: make(map[string]string),
	}
}

func keyOf(s rdf.Statement) (subj, pred, obj, ctx string) {
	k := s.Key()
	return k.Subject, k.Predicate, k.Object, k.Context
}

func spocKey(s rdf.Statement) string {
	subj, pred, obj, ctx := keyOf(s)
	return subj + "\x01" + pred + "\x01" + obj + "\x01" + ctx
}
func poscKey(s rdf.Statement) string {
	subj, pred, obj, ctx := keyOf(s)
	return pred + "\x01" + obj + "\x01" + subj + "\x01" + ctx
}
func ospcKey(s rdf.Statement) string {
	subj, pred, obj, ctx := keyOf(s)
	return obj + "\x01" + subj + "\x01" + pred + "\x01" + ctx
}
func cspoKey(s rdf.Statement) string {
	subj, pred, obj, ctx := keyOf(s)
	return ctx + "\x01" + subj + "\x01" + pred + "\x01" + obj
}

func (m *Memory) insert(s rdf.Statement) {
	m.spoc.ReplaceOrInsert(entry{spocKey(s), s})
	m.posc.ReplaceOrInsert(entry{poscKey(s), s})
	m.ospc.ReplaceOrInsert(entry{ospcKey(s), s})
	m.cspo.ReplaceOrInsert(entry{cspoKey(s), s})
}

func (m *Memory) delete(s rdf.Statement) {
	m.spoc.Delete(entry{key: spocKey(s)})
	m.posc.Delete(entry{key: poscKey(s)})
	m.ospc.Delete(entry{key: ospcKey(s)})
	m.cspo.Delete(entry{key: cspoKey(s)})
}

// chooseIndex picks the index best suited to pattern's bound terms,
// resolving the "smallest(sets)" ambiguity: a nil/unbound dimension is
// treated as no constraint on that dimension rather than a null
// candidate set. The index is picked by a fixed preference order with
// no per-call cardinality probes: SPOC if the subject is bound, else
// POSC if the predicate is bound, else OSPC if the object is bound,
// else SPOC for a full scan.
func (m *Memory) chooseIndex(p rdf.Pattern) *btree.BTreeG[entry] {
	switch {
	case p.Bound&rdf.BoundSubject != 0:
		return m.spoc
	case p.Bound&rdf.BoundPredicate != 0:
		return m.posc
	case p.Bound&rdf.BoundObject != 0:
		return m.ospc
	default:
		return m.spoc
	}
}

// prefixBound computes, when the leading term of idx's key ordering is
// bound in pattern, the [lo, hi) key range that contains every entry
// sharing that leading term — turning the scan into a single cursor
// walk over the matching range instead of the whole index. ok is false
// when the chosen index's leading term is unbound, since then no
// prefix narrows the scan.
func prefixBound(pattern rdf.Pattern) (lo, hi string, ok bool) {
	probe := rdf.Statement{Subject: pattern.Subject, Predicate: pattern.Predicate, Object: pattern.Object}
	k := probe.Key()

	switch {
	case pattern.Bound&rdf.BoundSubject != 0:
		return k.Subject + "\x01", k.Subject + "\x02", true
	case pattern.Bound&rdf.BoundPredicate != 0:
		return k.Predicate + "\x01", k.Predicate + "\x02", true
	case pattern.Bound&rdf.BoundObject != 0:
		return k.Object + "\x01", k.Object + "\x02", true
	default:
		return "", "", false
	}
}

func (m *Memory) Statements(pattern rdf.Pattern) (StatementIterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.chooseIndex(pattern)
	var out []rdf.Statement
	visit := func(e entry) bool {
		if pattern.Matches(e.stmt) {
			out = append(out, e.stmt)
		}
		return true
	}
	if lo, hi, ok := prefixBound(pattern); ok {
		idx.AscendRange(entry{key: lo}, entry{key: hi}, visit)
	} else {
		idx.Ascend(visit)
	}
	return newSliceIterator(out), nil
}

func (m *Memory) Contexts() (ContextIterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[rdf.StatementKey]bool)
	var out []rdf.Resource
	m.spoc.Ascend(func(e entry) bool {
		if e.stmt.Context == nil {
			return true
		}
		ck := rdf.Statement{Subject: e.stmt.Context}.Key()
		if !seen[ck] {
			seen[ck] = true
			out = append(out, e.stmt.Context)
		}
		return true
	})
	return newCtxSliceIterator(out), nil
}

func (m *Memory) Namespaces() (NamespaceIterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]rdf.Namespace, 0, len(m.namespaces))
	for prefix, name := range m.namespaces {
		out = append(out, rdf.Namespace{Prefix: prefix, Name: name})
	}
	return newNSSliceIterator(out), nil
}

func (m *Memory) Namespace(prefix string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.namespaces[prefix]
	return name, ok, nil
}

// Apply commits cs per Source.Apply's documented order: clears and
// deprecations first, then approvals, then namespace edits.
func (m *Memory) Apply(cs *changeset.ChangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cs.StatementCleared() {
		m.spoc = btree.NewG(32, entryLess)
		m.posc = btree.NewG(32, entryLess)
		m.ospc = btree.NewG(32, entryLess)
		m.cspo = btree.NewG(32, entryLess)
	} else {
		for _, ctx := range cs.DeprecatedContexts() {
			m.clearContext(ctx)
		}
		for _, s := range cs.Deprecated() {
			m.delete(s)
		}
	}

	for _, s := range cs.Approved() {
		m.insert(s)
	}

	if cs.NamespaceCleared() {
		m.namespaces = make(map[string]string)
	} else {
		for _, p := range cs.RemovedPrefixes() {
			delete(m.namespaces, p)
		}
	}
	for prefix, name := range cs.AddedNamespaces() {
		m.namespaces[prefix] = name
	}

	n := float64(m.spoc.Len())
	metrics.StatementsTotal.WithLabelValues("spoc").Set(n)
	metrics.StatementsTotal.WithLabelValues("posc").Set(n)
	metrics.StatementsTotal.WithLabelValues("ospc").Set(n)
	metrics.StatementsTotal.WithLabelValues("cspo").Set(n)

	return nil
}

func (m *Memory) clearContext(ctx rdf.Resource) {
	var victims []rdf.Statement
	m.spoc.Ascend(func(e entry) bool {
		if rdf.ResourceEqual(e.stmt.Context, ctx) {
			victims = append(victims, e.stmt)
		}
		return true
	})
	for _, s := range victims {
		m.delete(s)
	}
}

func (m *Memory) Close() error { return nil }
