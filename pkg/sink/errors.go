package sink

import "github.com/quaddb/sail/pkg/sailerr"

var errClosedSink = sailerr.Usage.New("sink: used after close")
