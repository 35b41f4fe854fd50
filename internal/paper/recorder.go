package paper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jackrehmann/fade-scalps/internal/execution"
)

// JSONLRecorder appends fills to a JSON-lines file as they happen, the
// durable counterpart to the in-memory Ledger. The session document written
// by SessionRecorder carries the strategy context; this file is just the raw
// fill stream.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates the target directory if needed and opens the fill
// log for appending, so repeated sessions share one file per path.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create fill log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open fill log: %w", err)
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single fill as one JSON line.
func (r *JSONLRecorder) Record(fill execution.Fill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return fmt.Errorf("fill log already closed")
	}
	if err := r.enc.Encode(fill); err != nil {
		return fmt.Errorf("append fill: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle. Safe to call twice.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
