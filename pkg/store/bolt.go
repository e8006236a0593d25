package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/quaddb/sail/pkg/changeset"
	"github.com/quaddb/sail/pkg/rdf"
)

// fieldSep separates sub-fields within one encoded term (a blank
// node's ID from its origin, a literal's lexical form from its
// language tag and datatype). Chosen over NUL since NUL is already
// the delimiter between a statement's four terms in encodeStatement.
const fieldSep = "\x1f"

var (
	bucketSPOC       = []byte("spoc")
	bucketPOSC       = []byte("posc")
	bucketOSPC       = []byte("ospc")
	bucketCSPO       = []byte("cspo")
	bucketNamespaces = []byte("namespaces")
)

// Bolt is a durable Source backed by a bbolt database, holding the
// same four term orderings as Memory but as fixed-delimiter keys in
// four buckets instead of in-process btrees, so a range scan over a
// bound prefix is a single bbolt cursor walk.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if absent) a bbolt database file named
// sail.db under dataDir.
func OpenBolt(dataDir string) (*Bolt, error) {
	path := filepath.Join(dataDir, "sail.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketSPOC, bucketPOSC, bucketOSPC, bucketCSPO, bucketNamespaces} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error { return b.db.Close() }

// boltKey encodes a statement's four terms, delimited by a NUL byte,
// in the given ordering; the value stored alongside is the encoded
// statement itself so any bucket can answer a scan without consulting
// the others.
func boltKey(order [4]string) []byte {
	return []byte(order[0] + "\x00" + order[1] + "\x00" + order[2] + "\x00" + order[3])
}

func orderings(s rdf.Statement) (spoc, posc, ospc, cspo [4]string) {
	subj, pred, obj, ctx := keyOf(s)
	return [4]string{subj, pred, obj, ctx},
		[4]string{pred, obj, subj, ctx},
		[4]string{obj, subj, pred, ctx},
		[4]string{ctx, subj, pred, obj}
}

func encodeStatement(s rdf.Statement) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\x00%s\x00%s\x00%s\x00",
		encodeValue(s.Subject), string(s.Predicate), encodeValue(s.Object), encodeValue(s.Context))
	return buf.Bytes()
}

// encodeValue tags v with its concrete kind so decodeValue can
// reconstruct the same type rather than collapsing every term down to
// an IRI. The tag is the first byte; blank nodes and literals carry
// their extra fields after it, joined by fieldSep.
func encodeValue(v rdf.Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case rdf.IRI:
		return "i" + string(t)
	case rdf.BlankNode:
		return "b" + t.ID + fieldSep + uuid.UUID(t.Origin).String()
	case rdf.Literal:
		return "l" + t.Lexical + fieldSep + t.Lang + fieldSep + string(t.Datatype)
	default:
		return "i" + v.String()
	}
}

func (b *Bolt) bucketFor(pattern rdf.Pattern) []byte {
	switch {
	case pattern.Bound&rdf.BoundSubject != 0:
		return bucketSPOC
	case pattern.Bound&rdf.BoundPredicate != 0:
		return bucketPOSC
	case pattern.Bound&rdf.BoundObject != 0:
		return bucketOSPC
	default:
		return bucketSPOC
	}
}

// boltPrefixBound computes the key prefix that bounds a scan of
// bucketFor(pattern) to entries sharing pattern's leading bound term,
// mirroring store.Memory's prefixBound over the same term-key
// encoding (rdf.Statement.Key(), not the tagged value blob encodeValue
// produces for the stored value). ok is false when the chosen
// bucket's leading term is unbound.
func boltPrefixBound(pattern rdf.Pattern) (prefix []byte, ok bool) {
	probe := rdf.Statement{Subject: pattern.Subject, Predicate: pattern.Predicate, Object: pattern.Object}
	k := probe.Key()

	switch {
	case pattern.Bound&rdf.BoundSubject != 0:
		return []byte(k.Subject + "\x00"), true
	case pattern.Bound&rdf.BoundPredicate != 0:
		return []byte(k.Predicate + "\x00"), true
	case pattern.Bound&rdf.BoundObject != 0:
		return []byte(k.Object + "\x00"), true
	default:
		return nil, false
	}
}

func (b *Bolt) Statements(pattern rdf.Pattern) (StatementIterator, error) {
	var out []rdf.Statement
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucketFor(pattern))
		visit := func(k, v []byte) error {
			stmt, err := decodeStatement(v)
			if err != nil {
				return fmt.Errorf("store: decode statement: %w", err)
			}
			if pattern.Matches(stmt) {
				out = append(out, stmt)
			}
			return nil
		}

		if prefix, ok := boltPrefixBound(pattern); ok {
			c := bucket.Cursor()
			for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
				if err := visit(k, v); err != nil {
					return err
				}
			}
			return nil
		}
		return bucket.ForEach(visit)
	})
	if err != nil {
		return nil, err
	}
	return newSliceIterator(out), nil
}

func (b *Bolt) Contexts() (ContextIterator, error) {
	seen := make(map[rdf.StatementKey]bool)
	var out []rdf.Resource
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSPOC)
		return bucket.ForEach(func(_, v []byte) error {
			stmt, err := decodeStatement(v)
			if err != nil {
				return err
			}
			if stmt.Context == nil {
				return nil
			}
			ck := rdf.Statement{Subject: stmt.Context}.Key()
			if !seen[ck] {
				seen[ck] = true
				out = append(out, stmt.Context)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return newCtxSliceIterator(out), nil
}

func (b *Bolt) Namespaces() (NamespaceIterator, error) {
	var out []rdf.Namespace
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketNamespaces)
		return bucket.ForEach(func(k, v []byte) error {
			out = append(out, rdf.Namespace{Prefix: string(k), Name: string(v)})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return newNSSliceIterator(out), nil
}

func (b *Bolt) Namespace(prefix string) (string, bool, error) {
	var name []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		name = tx.Bucket(bucketNamespaces).Get([]byte(prefix))
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if name == nil {
		return "", false, nil
	}
	return string(name), true, nil
}

// Apply commits cs in a single bbolt read-write transaction, giving
// the flush its atomicity: either every index bucket reflects the new
// state or none do.
func (b *Bolt) Apply(cs *changeset.ChangeSet) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if cs.StatementCleared() {
			for _, name := range [][]byte{bucketSPOC, bucketPOSC, bucketOSPC, bucketCSPO} {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
				if _, err := tx.CreateBucket(name); err != nil {
					return err
				}
			}
		} else {
			for _, ctx := range cs.DeprecatedContexts() {
				if err := deleteContext(tx, ctx); err != nil {
					return err
				}
			}
			for _, s := range cs.Deprecated() {
				if err := deleteStatement(tx, s); err != nil {
					return err
				}
			}
		}

		for _, s := range cs.Approved() {
			if err := putStatement(tx, s); err != nil {
				return err
			}
		}

		nsBucket := tx.Bucket(bucketNamespaces)
		if cs.NamespaceCleared() {
			if err := tx.DeleteBucket(bucketNamespaces); err != nil {
				return err
			}
			nb, err := tx.CreateBucket(bucketNamespaces)
			if err != nil {
				return err
			}
			nsBucket = nb
		} else {
			for _, p := range cs.RemovedPrefixes() {
				if err := nsBucket.Delete([]byte(p)); err != nil {
					return err
				}
			}
		}
		for prefix, name := range cs.AddedNamespaces() {
			if err := nsBucket.Put([]byte(prefix), []byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

func putStatement(tx *bolt.Tx, s rdf.Statement) error {
	spoc, posc, ospc, cspo := orderings(s)
	val := encodeStatement(s)
	buckets := []struct {
		name  []byte
		order [4]string
	}{
		{bucketSPOC, spoc}, {bucketPOSC, posc}, {bucketOSPC, ospc}, {bucketCSPO, cspo},
	}
	for _, b := range buckets {
		if err := tx.Bucket(b.name).Put(boltKey(b.order), val); err != nil {
			return err
		}
	}
	return nil
}

func deleteStatement(tx *bolt.Tx, s rdf.Statement) error {
	spoc, posc, ospc, cspo := orderings(s)
	buckets := []struct {
		name  []byte
		order [4]string
	}{
		{bucketSPOC, spoc}, {bucketPOSC, posc}, {bucketOSPC, ospc}, {bucketCSPO, cspo},
	}
	for _, b := range buckets {
		if err := tx.Bucket(b.name).Delete(boltKey(b.order)); err != nil {
			return err
		}
	}
	return nil
}

func deleteContext(tx *bolt.Tx, ctx rdf.Resource) error {
	bucket := tx.Bucket(bucketSPOC)
	var victims []rdf.Statement
	err := bucket.ForEach(func(_, v []byte) error {
		stmt, err := decodeStatement(v)
		if err != nil {
			return err
		}
		if rdf.ResourceEqual(stmt.Context, ctx) {
			victims = append(victims, stmt)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, s := range victims {
		if err := deleteStatement(tx, s); err != nil {
			return err
		}
	}
	return nil
}

// decodeStatement parses the NUL-delimited encoding written by
// encodeStatement, reconstructing each term's concrete type (IRI,
// BlankNode or Literal) via decodeValue's tag byte.
func decodeStatement(v []byte) (rdf.Statement, error) {
	parts := bytes.SplitN(v, []byte{0}, 5)
	if len(parts) < 4 {
		return rdf.Statement{}, fmt.Errorf("store: malformed encoded statement")
	}
	subj, err := decodeValue(parts[0])
	if err != nil {
		return rdf.Statement{}, fmt.Errorf("store: decode subject: %w", err)
	}
	pred := rdf.IRI(parts[1])
	obj, err := decodeValue(parts[2])
	if err != nil {
		return rdf.Statement{}, fmt.Errorf("store: decode object: %w", err)
	}
	ctx, err := decodeValue(parts[3])
	if err != nil {
		return rdf.Statement{}, fmt.Errorf("store: decode context: %w", err)
	}

	var ctxResource rdf.Resource
	if ctx != nil {
		ctxResource, _ = ctx.(rdf.Resource)
	}
	var subjResource rdf.Resource
	if subj != nil {
		subjResource, _ = subj.(rdf.Resource)
	}

	return rdf.Statement{Subject: subjResource, Predicate: pred, Object: obj, Context: ctxResource}, nil
}

// Stats is a snapshot of bucket key counts, used by sailctl's stats
// command. StatementCount counts bucketSPOC entries, since every
// statement is present in exactly one key per index.
type Stats struct {
	StatementCount int
	NamespaceCount int
	FilePath       string
	FileSizeBytes  int64
}

// Stats reports bucket sizes and the database file's on-disk size.
func (b *Bolt) Stats() (Stats, error) {
	var s Stats
	s.FilePath = b.db.Path()
	err := b.db.View(func(tx *bolt.Tx) error {
		s.StatementCount = tx.Bucket(bucketSPOC).Stats().KeyN
		s.NamespaceCount = tx.Bucket(bucketNamespaces).Stats().KeyN
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	info, err := os.Stat(s.FilePath)
	if err != nil {
		return Stats{}, err
	}
	s.FileSizeBytes = info.Size()
	return s, nil
}

// Compact rewrites the database into destPath, reclaiming space freed
// by prior deletes: bbolt never shrinks its backing file on its own,
// so periodic compaction is the only way to return that space to the
// filesystem. The live database is left untouched; callers swap
// destPath into place themselves once satisfied with the result.
func (b *Bolt) Compact(destPath string) error {
	dest, err := os.OpenFile(destPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("store: create compaction target: %w", err)
	}
	defer dest.Close()

	return b.db.View(func(tx *bolt.Tx) error {
		_, err := tx.WriteTo(dest)
		return err
	})
}

// decodeValue reconstructs the concrete Value encodeValue produced,
// dispatching on the leading tag byte.
func decodeValue(raw []byte) (rdf.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	tag, rest := raw[0], string(raw[1:])
	switch tag {
	case 'i':
		return rdf.IRI(rest), nil
	case 'b':
		parts := strings.SplitN(rest, fieldSep, 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed blank node encoding")
		}
		origin, err := uuid.Parse(parts[1])
		if err != nil {
			return nil, fmt.Errorf("malformed blank node origin: %w", err)
		}
		return rdf.BlankNode{ID: parts[0], Origin: rdf.Origin(origin)}, nil
	case 'l':
		parts := strings.SplitN(rest, fieldSep, 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed literal encoding")
		}
		return rdf.Literal{Lexical: parts[0], Lang: parts[1], Datatype: rdf.IRI(parts[2])}, nil
	default:
		return nil, fmt.Errorf("unknown encoded value tag %q", tag)
	}
}
