package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Photo is a local photo joined with its catalog metadata, ready to upload.
// Built once at discovery time and never mutated.
type Photo struct {
	Filename    string
	Title       string
	Description string
	Latin       string
	Tags        []string

	swedish string
	english string
}

// Record is the outcome of classifying one discovered file. Exactly one of
// Photo and Reason is set, decided once at discovery time.
type Record struct {
	Filename string
	Photo    *Photo
	Reason   string
}

func (r Record) Valid() bool {
	return r.Reason == ""
}

func newPhoto(filename string, bird Bird, tags []string) *Photo {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	all := make([]string, 0, len(tags)+3)
	all = append(all, bird.Swedish, bird.English)
	all = append(all, tags...)
	all = append(all, bird.Latin)

	return &Photo{
		Filename:    filename,
		Title:       bird.Swedish + " / " + bird.English,
		Description: fmt.Sprintf("Scientific name: %s\nOriginal file: %s\n", bird.Latin, base),
		Latin:       bird.Latin,
		Tags:        all,
		swedish:     bird.Swedish,
		english:     bird.English,
	}
}

// invalid reports why the photo fails the structural check, or "" if it
// passes. This is independent of the catalog lookups: it applies to every
// constructed photo.
func (p *Photo) invalid() string {
	switch {
	case p.swedish == "":
		return "missing swedish name"
	case p.english == "":
		return "missing english name"
	case p.Latin == "":
		return "missing latin name"
	case len(p.Tags) == 0:
		return "no tags"
	case p.Title == " / ":
		return "empty title"
	}
	return ""
}

// DiscoverPhotos walks dir for files matching <birdCode>/<tagCode>/*.jpg|jpeg
// (case-insensitive extension, exactly two levels deep) and classifies each
// against the catalog. It never touches the remote service.
func DiscoverPhotos(dir string, catalog *Catalog) ([]Record, error) {
	root := filepath.Clean(dir)
	var records []Record

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if d.IsDir() {
			if len(parts) >= 3 {
				return fs.SkipDir
			}
			return nil
		}
		if len(parts) != 3 {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".jpg" && ext != ".jpeg" {
			return nil
		}
		records = append(records, classify(path, parts[0], parts[1], catalog))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func classify(path, birdCode, tagCode string, catalog *Catalog) Record {
	bird, ok := catalog.Birds[birdCode]
	if !ok {
		return Record{Filename: path, Reason: fmt.Sprintf("could not find bird data for %s", birdCode)}
	}
	tags := catalog.Tags[tagCode]
	if len(tags) == 0 {
		return Record{Filename: path, Reason: fmt.Sprintf("could not find tags for %s", tagCode)}
	}
	photo := newPhoto(path, bird, tags)
	if reason := photo.invalid(); reason != "" {
		return Record{Filename: path, Reason: reason}
	}
	return Record{Filename: path, Photo: photo}
}
