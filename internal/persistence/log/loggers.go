package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"gridswarm.ai/internal/observerproto"
)

// DefaultSegmentTurns is how many turns go into one compressed segment.
const DefaultSegmentTurns = 1000

// JSONLZstdWriter appends JSON lines to zstd-compressed segment files named
// <prefix>-<segment>.jsonl.zst. Switching segment closes the previous file.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu     sync.Mutex
	curSeg string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends v to segment seg, opening it if needed.
func (w *JSONLZstdWriter) Write(seg string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if seg != w.curSeg || w.w == nil {
		if err := w.rotateLocked(seg); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(seg string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathFor(seg), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curSeg = seg
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathFor(seg string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, seg))
}

// TurnLogger writes one JSONL entry per turn (compressed), plus the final
// result line, under <matchDir>/turns.
type TurnLogger struct {
	w            *JSONLZstdWriter
	segmentTurns uint64
	lastSeg      string
}

func NewTurnLogger(matchDir string, segmentTurns int) *TurnLogger {
	if segmentTurns <= 0 {
		segmentTurns = DefaultSegmentTurns
	}
	return &TurnLogger{
		w:            NewJSONLZstdWriter(TurnsDir(matchDir), "turns"),
		segmentTurns: uint64(segmentTurns),
	}
}

// TurnsDir is where a match's turn segments live.
func TurnsDir(matchDir string) string { return filepath.Join(matchDir, "turns") }

func (l *TurnLogger) WriteTurn(f observerproto.TurnFrame) error {
	l.lastSeg = fmt.Sprintf("%08d", f.Turn/l.segmentTurns*l.segmentTurns)
	return l.w.Write(l.lastSeg, f)
}

// WriteResult appends the result to the segment holding the last turn.
func (l *TurnLogger) WriteResult(r observerproto.ResultMsg) error {
	seg := l.lastSeg
	if seg == "" {
		seg = fmt.Sprintf("%08d", r.Turns/l.segmentTurns*l.segmentTurns)
	}
	return l.w.Write(seg, r)
}

func (l *TurnLogger) Close() error { return l.w.Close() }

// WriteHeader stores v as <matchDir>/match.json.
func WriteHeader(matchDir string, v any) error {
	if err := os.MkdirAll(matchDir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(matchDir, "match.json"), append(b, '\n'), 0o644)
}

func ReadHeader(matchDir string, v any) error {
	b, err := os.ReadFile(filepath.Join(matchDir, "match.json"))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("match.json: %w", err)
	}
	return nil
}
