package conn

import "github.com/quaddb/sail/pkg/sailerr"

var (
	errClosed           = sailerr.Usage.New("conn: connection is closed")
	errNoActiveTx       = sailerr.Usage.New("conn: no active transaction")
	errTxAlreadyActive  = sailerr.Usage.New("conn: transaction already active")
	errWriteWithoutTx   = sailerr.Usage.New("conn: write requires an active transaction")
	errUnknownUpdateCtx = sailerr.Usage.New("conn: unknown update context")
	errUnsupportedLevel = sailerr.Usage.New("conn: no supported isolation level satisfies the request")
	errNoInferredSource = sailerr.Usage.New("conn: store carries no inferred statement source")
)
