package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"gridswarm.ai/internal/observerproto"
)

// ErrStop can be returned by a Visitor callback to end the scan early
// without an error.
var ErrStop = errors.New("stop")

type Visitor struct {
	Turn   func(observerproto.TurnFrame) error
	Result func(observerproto.ResultMsg) error
}

// ListSegments returns the <prefix>-*.jsonl.zst files in dir, oldest first.
func ListSegments(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadMatch streams every turn and result line logged for a match.
func ReadMatch(matchDir string, v Visitor) error {
	files, err := ListSegments(TurnsDir(matchDir), "turns")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no turn segments in %s", TurnsDir(matchDir))
	}
	for _, path := range files {
		if err := readSegment(path, v); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func readSegment(path string, v Visitor) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		line := sc.Bytes()
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(line, &head); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		switch head.Type {
		case observerproto.TypeTurn:
			if v.Turn == nil {
				continue
			}
			var fr observerproto.TurnFrame
			if err := json.Unmarshal(line, &fr); err != nil {
				return fmt.Errorf("%s: unmarshal turn: %w", filepath.Base(path), err)
			}
			if err := v.Turn(fr); err != nil {
				return err
			}
		case observerproto.TypeResult:
			if v.Result == nil {
				continue
			}
			var r observerproto.ResultMsg
			if err := json.Unmarshal(line, &r); err != nil {
				return fmt.Errorf("%s: unmarshal result: %w", filepath.Base(path), err)
			}
			if err := v.Result(r); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: unknown line type %q", filepath.Base(path), head.Type)
		}
	}
	return sc.Err()
}
