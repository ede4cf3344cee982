// Package blockfs materializes the Blocks of a "remote" library as
// <folderPath>/blocks/*.json files.
package blockfs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/eeu479/proxyman-helper/internal/model"
	"github.com/samber/lo"
)

var unsafeFilenameChars = regexp.MustCompile(`[/\\:*?"<>|]`)
var repeatedUnderscores = regexp.MustCompile(`_+`)

// sanitizeForFilename replaces unsafe characters with "_", trims whitespace
// and leading/trailing "_", and collapses runs of "_". Returns fallback if
// the result would be empty.
func sanitizeForFilename(s, fallback string) string {
	safe := unsafeFilenameChars.ReplaceAllString(s, "_")
	safe = strings.Trim(strings.TrimSpace(safe), "_")
	safe = repeatedUnderscores.ReplaceAllString(safe, "_")
	if safe == "" {
		return fallback
	}
	return safe
}

type stemKey struct {
	method string
	name   string
}

// stemsFor computes the collision-free filename stem for every block's id:
// blocks are grouped by sanitized (method, name), sorted by id within a
// group, and assigned "base", "base-2", "base-3", ...
func stemsFor(blocks []model.Block) map[string]string {
	groups := map[stemKey][]model.Block{}
	for _, b := range blocks {
		method := sanitizeForFilename(strings.ToUpper(strings.TrimSpace(b.Method)), "REQUEST")
		var name string
		if strings.TrimSpace(b.Name) == "" {
			name = sanitizeForFilename(b.ID, "unnamed")
		} else {
			name = sanitizeForFilename(strings.TrimSpace(b.Name), "unnamed")
		}
		key := stemKey{method: method, name: name}
		groups[key] = append(groups[key], b)
	}

	out := make(map[string]string, len(blocks))
	for key, group := range groups {
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		base := fmt.Sprintf("%s-%s", key.method, key.name)
		for i, b := range group {
			if i == 0 {
				out[b.ID] = base
			} else {
				out[b.ID] = fmt.Sprintf("%s-%d", base, i+1)
			}
		}
	}
	return out
}

// ReadBlocks lists <path>/blocks/*.json, parsing each as a Block and setting
// SourceLibraryID. Entries that fail to parse are skipped. Order follows
// filesystem iteration order (no ordering guarantee).
func ReadBlocks(path, libraryID string) []model.Block {
	blocksDir := filepath.Join(path, "blocks")
	entries, err := os.ReadDir(blocksDir)
	if err != nil {
		return nil
	}

	blocks := make([]model.Block, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(blocksDir, entry.Name()))
		if err != nil {
			continue
		}
		var block model.Block
		if err := json.Unmarshal(data, &block); err != nil {
			continue
		}
		id := libraryID
		block.SourceLibraryID = &id
		blocks = append(blocks, block)
	}
	return blocks
}

// WriteBlocks ensures <path>/blocks exists, deletes any file whose stem is
// not among the new blocks' stems, and writes each block as pretty JSON to
// <stem>.json. Deterministic and idempotent across repeated calls.
func WriteBlocks(path string, blocks []model.Block) error {
	blocksDir := filepath.Join(path, "blocks")
	if err := os.MkdirAll(blocksDir, 0o755); err != nil {
		return fmt.Errorf("ensure blocks directory: %w", err)
	}

	idToStem := stemsFor(blocks)
	newStems := lo.Uniq(lo.Values(idToStem))
	newStemSet := lo.SliceToMap(newStems, func(s string) (string, struct{}) { return s, struct{}{} })

	entries, err := os.ReadDir(blocksDir)
	if err != nil {
		return fmt.Errorf("list blocks directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if _, ok := newStemSet[stem]; !ok {
			_ = os.Remove(filepath.Join(blocksDir, entry.Name()))
		}
	}

	for _, b := range blocks {
		stem, ok := idToStem[b.ID]
		if !ok {
			stem = b.ID
		}
		payload, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal block %s: %w", b.ID, err)
		}
		target := filepath.Join(blocksDir, stem+".json")
		if err := os.WriteFile(target, payload, 0o644); err != nil {
			return fmt.Errorf("write block %s: %w", b.ID, err)
		}
	}
	return nil
}
