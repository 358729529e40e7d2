package main

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

// Bird holds the three names attached to a bird code in the Birds sheet.
type Bird struct {
	Swedish string
	English string
	Latin   string
}

// Catalog is the in-memory form of the names workbook: bird codes to name
// triples and tag codes to tag lists. Built once per run, read-only after.
type Catalog struct {
	Birds map[string]Bird
	Tags  map[string][]string
}

// ReadNamesWorkbook opens the xlsx workbook and returns the rows of the
// "Birds" and "Tags" sheets. A missing file or missing sheet is fatal.
func ReadNamesWorkbook(path string) (birdRows, tagRows [][]string, err error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer book.Close()

	birdRows, err = book.GetRows("Birds")
	if err != nil {
		return nil, nil, fmt.Errorf("%s has no sheet named Birds", path)
	}
	tagRows, err = book.GetRows("Tags")
	if err != nil {
		return nil, nil, fmt.Errorf("%s has no sheet named Tags", path)
	}
	return birdRows, tagRows, nil
}

// LoadCatalog validates the raw sheet rows into a Catalog. Any malformed row
// aborts loading immediately; no partial catalog is ever returned. A tag code
// with an empty tag list is only a warning and is recorded as empty.
func LoadCatalog(birdRows, tagRows [][]string, logger *slog.Logger) (*Catalog, error) {
	catalog := &Catalog{
		Birds: make(map[string]Bird),
		Tags:  make(map[string][]string),
	}

	for _, row := range birdRows {
		code := cell(row, 0)
		swedish := cell(row, 1)
		english := cell(row, 2)
		latin := cell(row, 3)

		if code == "" {
			if swedish != "" || english != "" || latin != "" {
				return nil, fmt.Errorf("missing code for {%s, %s, %s}", swedish, english, latin)
			}
			continue
		}
		if swedish == "" {
			return nil, fmt.Errorf("missing swedish name for %s", code)
		}
		if english == "" {
			return nil, fmt.Errorf("missing english name for %s", code)
		}
		if latin == "" {
			return nil, fmt.Errorf("missing latin name for %s", code)
		}

		// Duplicate codes: the last row wins.
		catalog.Birds[code] = Bird{Swedish: swedish, English: english, Latin: latin}
	}

	for i, row := range tagRows {
		if i == 0 {
			// Header row.
			continue
		}
		code := cell(row, 0)
		var tags []string
		if len(row) > 1 {
			for _, t := range row[1:] {
				if t != "" {
					tags = append(tags, t)
				}
			}
		}

		if code == "" {
			if len(tags) > 0 {
				return nil, fmt.Errorf("missing code for %v", tags)
			}
			continue
		}
		if len(tags) == 0 {
			logger.Warn("missing tags", "code", code)
		}
		catalog.Tags[code] = tags
	}

	return catalog, nil
}

// cell returns the i-th cell of a row, or "" when the row is shorter than
// that; xlsx rows are ragged.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
