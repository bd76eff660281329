package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
)

// metaShape is one accepted layout of meta.json. Shapes are tried in order;
// the first key present wins.
type metaShape struct {
	key  string
	wrap func(s string) manual.Item
}

var stringShapes = []metaShape{
	{key: "texts", wrap: func(s string) manual.Item { return manual.Item{Text: s, Page: manual.UnknownPage} }},
	{key: "images", wrap: func(s string) manual.Item { return manual.Item{Path: s, Page: manual.UnknownPage} }},
	{key: "tables_markdown", wrap: func(s string) manual.Item { return manual.Item{Markdown: s, Page: manual.UnknownPage} }},
}

type itemDTO struct {
	Text     string          `json:"text"`
	Markdown string          `json:"markdown"`
	CSVPath  *string         `json:"csv_path"`
	Path     string          `json:"path"`
	Page     json.RawMessage `json:"page"`
}

// ReadMeta loads and normalizes a meta.json file.
func ReadMeta(path string) ([]manual.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrMetadataNotFound)
		}
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	items, err := ParseMeta(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// ParseMeta normalizes any supported meta.json layout into canonical items:
//
//	{"items": [{...}, ...]}       items as-is
//	{"texts": ["...", ...]}       {text: s}
//	{"images": ["...", ...]}      {path: s}
//	{"tables_markdown": [...]}    {markdown: s}
//
// Anything else is domain.ErrUnsupportedSchema.
func ParseMeta(data []byte) ([]manual.Item, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedSchema, err)
	}

	if raw, ok := doc["items"]; ok {
		return parseItems(raw)
	}
	for _, shape := range stringShapes {
		raw, ok := doc[shape.key]
		if !ok {
			continue
		}
		var values []string
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", domain.ErrUnsupportedSchema, shape.key, err)
		}
		items := make([]manual.Item, len(values))
		for i, s := range values {
			items[i] = shape.wrap(s)
		}
		return items, nil
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return nil, fmt.Errorf("%w: keys %v", domain.ErrUnsupportedSchema, keys)
}

func parseItems(raw json.RawMessage) ([]manual.Item, error) {
	var dtos []itemDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, fmt.Errorf("%w: items: %v", domain.ErrUnsupportedSchema, err)
	}
	items := make([]manual.Item, len(dtos))
	for i, d := range dtos {
		items[i] = manual.Item{
			Text:     d.Text,
			Markdown: d.Markdown,
			CSVPath:  d.CSVPath,
			Path:     d.Path,
			Page:     parsePage(d.Page),
		}
	}
	return items, nil
}

// parsePage accepts a JSON number or a numeric string. Anything else is an unknown page.
func parsePage(raw json.RawMessage) int {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return manual.UnknownPage
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return manual.UnknownPage
	}
	return int(f)
}
