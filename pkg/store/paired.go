package store

// Paired composes two independently-versioned Source instances — one
// holding asserted (explicit) statements, one holding rule-derived
// (inferred) statements — plus a Statistics view, matching spec §4.1's
// Statement Store contract.
type Paired struct {
	explicit Source
	inferred Source
	stats    Statistics
}

// NewPaired returns a Store pairing explicit and inferred sources,
// with statistics computed over the explicit source (the common case:
// query planning estimates selectivity against asserted data; callers
// needing inferred-aware estimates can construct their own
// Statistics over ExplicitSource()/InferredSource() as needed).
func NewPaired(explicit, inferred Source) *Paired {
	return &Paired{
		explicit: explicit,
		inferred: inferred,
		stats:    NewCachingStatistics(explicit),
	}
}

func (p *Paired) ExplicitSource() Source { return p.explicit }
func (p *Paired) InferredSource() Source { return p.inferred }
func (p *Paired) EvaluationStatistics() Statistics { return p.stats }

// Close releases both underlying sources.
func (p *Paired) Close() error {
	errExplicit := p.explicit.Close()
	errInferred := p.inferred.Close()
	if errExplicit != nil {
		return errExplicit
	}
	return errInferred
}
