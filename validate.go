package main

import (
	"fmt"
	"strings"
)

// BatchError is returned when one or more discovered photos are invalid. The
// whole batch is rejected; nothing may be uploaded under bad metadata.
type BatchError struct {
	Diagnostics []string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("invalid photo batch:\n%s", strings.Join(e.Diagnostics, "\n"))
}

// ValidateBatch checks every record and collects a diagnostic for each
// invalid one; it never short-circuits. Any invalid record fails the whole
// batch. On success it returns the valid photos in discovery order.
func ValidateBatch(records []Record) ([]*Photo, []string) {
	var photos []*Photo
	var diags []string
	for _, rec := range records {
		if !rec.Valid() {
			diags = append(diags, fmt.Sprintf("File: %s is invalid: %s", rec.Filename, rec.Reason))
			continue
		}
		photos = append(photos, rec.Photo)
	}
	if len(diags) > 0 {
		return nil, diags
	}
	return photos, nil
}
