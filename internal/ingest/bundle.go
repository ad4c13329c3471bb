package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/rcliao/munger/internal/model"
)

const BundleVersion = 1

// Bundle is the portable JSON form of a set of wisdom records.
type Bundle struct {
	Version int                  `json:"version"`
	Records []model.WisdomRecord `json:"records"`
}

const bundleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "records"],
  "properties": {
    "version": {"type": "integer", "const": 1},
    "records": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["category", "content"],
        "properties": {
          "id": {"type": "string"},
          "category": {"enum": ["mental_model", "quote", "principle", "story", "speech_excerpt", "book_excerpt"]},
          "title": {"type": "string"},
          "content": {"type": "string", "minLength": 1},
          "source": {"type": "string"},
          "tags": {"type": ["array", "null"], "items": {"type": "string"}},
          "related_models": {"type": ["array", "null"], "items": {"type": "string"}},
          "year": {"type": ["integer", "null"]}
        }
      }
    }
  }
}`

var compiledBundleSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(bundleSchema))
	if err != nil {
		panic(fmt.Sprintf("bundle schema: %v", err))
	}
	return s
}()

// ValidateBundle checks raw JSON against the bundle schema.
func ValidateBundle(data []byte) error {
	result, err := compiledBundleSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate bundle: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var errs []string
	for i, e := range result.Errors() {
		if i == 3 {
			errs = append(errs, fmt.Sprintf("... and %d more", len(result.Errors())-3))
			break
		}
		errs = append(errs, e.String())
	}
	return fmt.Errorf("invalid bundle:\n- %s", strings.Join(errs, "\n- "))
}

// ImportJSON validates a bundle and adds its records in one batch. Records
// whose id is already in the store are skipped.
func ImportJSON(ctx context.Context, st Store, r io.Reader) (added, skipped int, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, 0, err
	}
	if err := ValidateBundle(data); err != nil {
		return 0, 0, err
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return 0, 0, fmt.Errorf("decode bundle: %w", err)
	}

	var recs []model.WisdomRecord
	seen := make(map[string]bool)
	for _, rec := range b.Records {
		if rec.ID != "" {
			if _, ok := st.Get(rec.ID); ok || seen[rec.ID] {
				skipped++
				continue
			}
			seen[rec.ID] = true
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return 0, skipped, nil
	}
	if _, err := st.AddBatch(ctx, recs); err != nil {
		return 0, skipped, err
	}
	return len(recs), skipped, nil
}

// ExportJSON writes records as a bundle.
func ExportJSON(w io.Writer, records []model.WisdomRecord) error {
	if records == nil {
		records = []model.WisdomRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(Bundle{Version: BundleVersion, Records: records})
}
