// Copyright 2025 Reown RPC Proxy

package analytics

import (
	"github.com/reown-rpc-proxy/gateway/pkg/logging"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// LogWriter is the local stand-in for the out-of-scope Parquet-writing
// collaborator: it logs one line per flushed batch. A real deployment
// wires a Writer backed by that collaborator instead.
type LogWriter struct {
	logger *logging.Logger
}

// NewLogWriter returns a Writer that logs each flushed batch.
func NewLogWriter() *LogWriter {
	return &LogWriter{logger: logging.New("AnalyticsWriter")}
}

// WriteBatch implements Writer.
func (w *LogWriter) WriteBatch(events []types.AnalyticsEvent) error {
	w.logger.Infof("flushed %d analytics events", len(events))
	return nil
}
