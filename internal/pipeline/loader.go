package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/veridex/internal/docindex"
	"github.com/ppiankov/veridex/internal/model"
)

// documentFile is the on-disk shape of an ingested document
type documentFile struct {
	DocID string          `json:"doc_id"`
	Text  string          `json:"text"`
	Pages []docindex.Page `json:"pages,omitempty"`
}

// LoadDocument reads an ingested document and builds its index. A .json
// file carries doc_id, text and the optional page table; any other
// extension is treated as plain text with the file stem as doc id.
func LoadDocument(path string) (*docindex.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var doc documentFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", path, err)
		}
		if doc.DocID == "" {
			doc.DocID = stem(path)
		}
		return docindex.New(doc.DocID, doc.Text, doc.Pages)
	}

	return docindex.New(stem(path), string(data), nil)
}

// LoadChunks reads the upstream chunker's output and validates the
// sequence. A missing file is not an error: chunk records are optional
// and coverage degrades gracefully without them.
func LoadChunks(path string) ([]model.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read chunks: %w", err)
	}

	var chunks []model.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks %s: %w", path, err)
	}
	if err := model.ValidateChunkSequence(chunks); err != nil {
		return nil, fmt.Errorf("chunk sequence %s: %w", path, err)
	}
	return chunks, nil
}

// LoadClaims reads downstream claims to be validated against the
// document. Like chunks, the file is optional.
func LoadClaims(path string) ([]model.Claim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read claims: %w", err)
	}

	var claims []model.Claim
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("decode claims %s: %w", path, err)
	}
	return claims, nil
}

// LoadPayloads reads pre-recorded producer payloads from a directory:
// one file per producer, the file stem is the producer id. Returns
// producer ids in sorted order for deterministic processing.
func LoadPayloads(dir string) (map[string]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read payload dir: %w", err)
	}

	payloads := make(map[string]string)
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".txt" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("read payload %s: %w", entry.Name(), err)
		}
		id := stem(entry.Name())
		payloads[id] = string(data)
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("no payload files in %s", dir)
	}
	return payloads, ids, nil
}

// stem returns the file name without directory or extension
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
