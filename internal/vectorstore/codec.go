package vectorstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/knagel/codesage/pkg/types"
)

// On-disk layout: [int32 count][int32 dim] then per entry
// [string id][string filePath][int32 startLine][int32 endLine][string kind]
// [string name][string content][string summary][dim x float32 vector].
// Strings are [int32 len][bytes]; everything is little-endian.
const (
	maxDimension = 1 << 16
	maxStringLen = 16 << 20 // 16 MB, far above any single unit's content
)

// Save writes the store to disk atomically (write to a temp file, then
// rename into place).
func (s *Store) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}

	w := bufio.NewWriter(f)
	err = s.encode(w)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write store file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func (s *Store) encode(w io.Writer) error {
	if err := writeInt32(w, int32(len(s.entries))); err != nil {
		return err
	}
	if err := writeInt32(w, int32(s.dim)); err != nil {
		return err
	}

	for _, e := range s.entries {
		u := e.Unit
		for _, str := range []string{e.ID, u.FilePath} {
			if err := writeString(w, str); err != nil {
				return err
			}
		}
		if err := writeInt32(w, int32(u.StartLine)); err != nil {
			return err
		}
		if err := writeInt32(w, int32(u.EndLine)); err != nil {
			return err
		}
		for _, str := range []string{string(u.Kind), u.Name, u.Content, u.Summary} {
			if err := writeString(w, str); err != nil {
				return err
			}
		}
		for _, v := range e.Vector {
			if err := binary.Write(w, binary.LittleEndian, math.Float32bits(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads the store from disk. Any parse failure (truncation, bad
// header, corruption) silently discards the file and leaves the store
// empty: an empty-but-functional store is always preferred over a crash,
// and a subsequent rebuild repairs it. A missing file is simply empty.
func (s *Store) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		slog.Warn("vector store unreadable, starting empty", "path", path, "error", err)
		return nil
	}
	defer func() { _ = f.Close() }()

	entries, dim, err := decode(bufio.NewReader(f))
	if err != nil {
		slog.Warn("vector store corrupt, starting empty", "path", path, "error", err)
		s.Clear()
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dim = dim
	s.entries = entries
	s.index = make(map[string]int, len(entries))
	for i, e := range entries {
		s.index[e.ID] = i
	}
	return nil
}

func decode(r io.Reader) ([]Entry, int, error) {
	count, err := readInt32(r)
	if err != nil {
		return nil, 0, err
	}
	dim, err := readInt32(r)
	if err != nil {
		return nil, 0, err
	}
	if count < 0 || dim <= 0 || dim > maxDimension {
		return nil, 0, fmt.Errorf("invalid header: count=%d dim=%d", count, dim)
	}

	entries := make([]Entry, 0, count)
	for i := int32(0); i < count; i++ {
		var e Entry
		if e.ID, err = readString(r); err != nil {
			return nil, 0, err
		}
		if e.Unit.FilePath, err = readString(r); err != nil {
			return nil, 0, err
		}
		start, err := readInt32(r)
		if err != nil {
			return nil, 0, err
		}
		end, err := readInt32(r)
		if err != nil {
			return nil, 0, err
		}
		e.Unit.StartLine = int(start)
		e.Unit.EndLine = int(end)

		kind, err := readString(r)
		if err != nil {
			return nil, 0, err
		}
		e.Unit.Kind = types.UnitKind(kind)
		if e.Unit.Name, err = readString(r); err != nil {
			return nil, 0, err
		}
		if e.Unit.Content, err = readString(r); err != nil {
			return nil, 0, err
		}
		if e.Unit.Summary, err = readString(r); err != nil {
			return nil, 0, err
		}
		e.Unit.ID = e.ID

		e.Vector = make([]float32, dim)
		for d := int32(0); d < dim; d++ {
			var bits uint32
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return nil, 0, err
			}
			e.Vector[d] = math.Float32frombits(bits)
		}

		entries = append(entries, e)
	}

	return entries, int(dim), nil
}

func writeInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func writeString(w io.Writer, s string) error {
	if err := writeInt32(w, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readInt32(r)
	if err != nil {
		return "", err
	}
	if n < 0 || n > maxStringLen {
		return "", fmt.Errorf("invalid string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
