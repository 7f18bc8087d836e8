package pattern

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keshon/autoreply/internal/jsonorder"
	"github.com/keshon/autoreply/internal/logging"
)

// ErrNoDirectory is returned when the patterns directory does not exist.
var ErrNoDirectory = errors.New("patterns directory not found")

// errNotObject marks a document member that is not a {pattern, response}
// object.
var errNotObject = errors.New("entry is not an object")

// disabledPrefix marks documents that are kept on disk but not loaded.
const disabledPrefix = "!"

// LoadOptions configures LoadDir.
type LoadOptions struct {
	MatchTimeout time.Duration
	Logger       logging.Logger
}

type member struct {
	key    string
	fields map[string]any
	err    error
}

// LoadDir loads every *.json, *.yaml and *.yml document of dir in file name
// order. A document is an object mapping arbitrary keys to
// {pattern, response} objects; member order within a document is kept.
// Documents whose name starts with "!" are skipped. Bad entries and bad
// documents are counted and logged, never fatal.
func LoadDir(dir string, opts LoadOptions) (*Store, LoadReport, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, LoadReport{}, fmt.Errorf("%w: %s", ErrNoDirectory, dir)
		}
		return nil, LoadReport{}, fmt.Errorf("read patterns directory: %w", err)
	}

	b := NewBuilder(opts.MatchTimeout)
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || strings.HasPrefix(name, disabledPrefix) || !IsDocument(name) {
			continue
		}

		path := filepath.Join(dir, name)
		members, err := readDocument(path)
		b.report.Files++
		if err != nil {
			b.report.FileErrors++
			log.Error("Error reading or parsing pattern file", "file", path, "err", err)
			continue
		}

		for _, m := range members {
			if m.err != nil {
				b.Reject(name, m.key, Entry{}, m.err)
				log.Warn("Invalid pattern entry", "file", name, "key", m.key, "err", m.err)
				continue
			}
			e, err := entryFrom(m.fields)
			if err != nil {
				b.Reject(name, m.key, e, err)
				log.Warn("Invalid pattern entry", "file", name, "key", m.key, "err", err)
				continue
			}
			if err := b.Add(name, m.key, e); err != nil {
				log.Warn("Invalid pattern entry", "file", name, "key", m.key, "err", err)
			}
		}
	}

	store, report := b.Build()
	log.Info("Loaded question patterns",
		"loaded", report.Loaded,
		"invalid", report.Invalid,
		"patterns", store.Size(),
		"files", report.Files,
		"file_errors", report.FileErrors,
	)
	return store, report, nil
}

// IsDocument reports whether name has a supported pattern document extension.
func IsDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func readDocument(path string) ([]member, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parseJSON(data)
	}
	return parseYAML(data)
}

func parseJSON(data []byte) ([]member, error) {
	var out []member
	err := jsonorder.Each(data, func(key string, raw json.RawMessage) error {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			out = append(out, member{key: key, err: errNotObject})
			return nil
		}
		out = append(out, member{key: key, fields: fields})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseYAML(data []byte) ([]member, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		// empty document
		return nil, nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("top-level YAML value is not a mapping")
	}

	root := doc.Content[0]
	out := make([]member, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		val := root.Content[i+1]
		var fields map[string]any
		if val.Kind != yaml.MappingNode || val.Decode(&fields) != nil {
			out = append(out, member{key: key, err: errNotObject})
			continue
		}
		out = append(out, member{key: key, fields: fields})
	}
	return out, nil
}

func entryFrom(fields map[string]any) (Entry, error) {
	p, pok := fields["pattern"].(string)
	r, rok := fields["response"].(string)
	e := Entry{Pattern: p, Response: r}
	if !pok || p == "" {
		return e, ErrMissingPattern
	}
	if !rok || r == "" {
		return e, ErrMissingResponse
	}
	return e, nil
}
