package storage

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
)

// jsonLines is a buffered, mutex-guarded JSONL sink
type jsonLines struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	enc    *json.Encoder
	file   *os.File
	closed bool
}

// openJSONLines creates path; an empty path discards every line
func openJSONLines(path string) (*jsonLines, error) {
	var out io.Writer = io.Discard
	var file *os.File
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		file, out = f, f
	}
	buf := bufio.NewWriter(out)
	return &jsonLines{buf: buf, enc: json.NewEncoder(buf), file: file}, nil
}

func (j *jsonLines) encode(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return os.ErrClosed
	}
	return j.enc.Encode(v)
}

func (j *jsonLines) flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return os.ErrClosed
	}
	if err := j.buf.Flush(); err != nil {
		return err
	}
	if j.file != nil {
		return j.file.Sync()
	}
	return nil
}

func (j *jsonLines) close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	err := j.buf.Flush()
	if j.file != nil {
		if cerr := j.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ResultWriter implements repository.ResultWriter, one record per line
type ResultWriter struct {
	out *jsonLines
}

// NewResultWriter creates a report file at filename
func NewResultWriter(filename string) (*ResultWriter, error) {
	out, err := openJSONLines(filename)
	if err != nil {
		return nil, err
	}
	return &ResultWriter{out: out}, nil
}

// Write appends a record
func (w *ResultWriter) Write(record *entity.URLRecord) error { return w.out.encode(record) }

// Flush writes buffered records to disk
func (w *ResultWriter) Flush() error { return w.out.flush() }

// Close flushes and closes the report
func (w *ResultWriter) Close() error { return w.out.close() }

// LogWriter implements repository.LogWriter, one fetch per line
type LogWriter struct {
	out *jsonLines
}

// NewLogWriter creates a fetch log at httpLogFile.
// An empty filename yields a writer that discards every entry.
func NewLogWriter(httpLogFile string) (*LogWriter, error) {
	out, err := openJSONLines(httpLogFile)
	if err != nil {
		return nil, err
	}
	return &LogWriter{out: out}, nil
}

// WriteHTTPLog appends a fetch log entry
func (w *LogWriter) WriteHTTPLog(entry *entity.FetchLog) error {
	if entry == nil {
		return nil
	}
	return w.out.encode(entry)
}

// Close flushes and closes the log
func (w *LogWriter) Close() error { return w.out.close() }
