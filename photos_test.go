package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *Catalog {
	return &Catalog{
		Birds: map[string]Bird{
			"CORVUS": {Swedish: "Kråka", English: "Crow", Latin: "Corvus corone"},
			"PICA":   {Swedish: "Skata", English: "Magpie", Latin: "Pica pica"},
		},
		Tags: map[string][]string{
			"SUMMER": {"forest"},
			"WINTER": {"snow", "garden"},
			"EMPTY":  {},
		},
	}
}

func writePhoto(t *testing.T, root string, parts ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{root}, parts...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("not a real jpeg"), 0644))
	return path
}

func TestDiscoverValidPhoto(t *testing.T) {
	root := t.TempDir()
	path := writePhoto(t, root, "CORVUS", "SUMMER", "a.jpg")

	records, err := DiscoverPhotos(root, testCatalog())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	require.True(t, rec.Valid())
	require.NotNil(t, rec.Photo)

	assert.Equal(t, path, rec.Photo.Filename)
	assert.Equal(t, "Kråka / Crow", rec.Photo.Title)
	assert.Equal(t, "Scientific name: Corvus corone\nOriginal file: a\n", rec.Photo.Description)
	assert.Equal(t, "Corvus corone", rec.Photo.Latin)
	assert.Equal(t, []string{"Kråka", "Crow", "forest", "Corvus corone"}, rec.Photo.Tags)
}

func TestDiscoverTagOrderPreservesDuplicates(t *testing.T) {
	catalog := testCatalog()
	catalog.Tags["SUMMER"] = []string{"Crow", "forest"}

	root := t.TempDir()
	writePhoto(t, root, "CORVUS", "SUMMER", "a.jpg")

	records, err := DiscoverPhotos(root, catalog)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, []string{"Kråka", "Crow", "Crow", "forest", "Corvus corone"}, records[0].Photo.Tags)
}

func TestDiscoverUnknownBird(t *testing.T) {
	root := t.TempDir()
	writePhoto(t, root, "NOSUCH", "SUMMER", "a.jpg")

	records, err := DiscoverPhotos(root, testCatalog())
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.False(t, records[0].Valid())
	assert.Nil(t, records[0].Photo)
	assert.Equal(t, "could not find bird data for NOSUCH", records[0].Reason)
}

func TestDiscoverUnknownTags(t *testing.T) {
	root := t.TempDir()
	writePhoto(t, root, "CORVUS", "NOSUCH", "a.jpg")
	writePhoto(t, root, "PICA", "EMPTY", "b.jpg")

	records, err := DiscoverPhotos(root, testCatalog())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "could not find tags for NOSUCH", records[0].Reason)
	// A known code with an empty tag list reads the same as a missing one.
	assert.Equal(t, "could not find tags for EMPTY", records[1].Reason)
}

func TestDiscoverBirdLookupFailureWinsOverTags(t *testing.T) {
	root := t.TempDir()
	writePhoto(t, root, "NOSUCH", "ALSONOSUCH", "a.jpg")

	records, err := DiscoverPhotos(root, testCatalog())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "could not find bird data for NOSUCH", records[0].Reason)
}

func TestDiscoverExtensionsAndDepth(t *testing.T) {
	root := t.TempDir()
	writePhoto(t, root, "CORVUS", "SUMMER", "upper.JPG")
	writePhoto(t, root, "CORVUS", "SUMMER", "mixed.Jpeg")
	writePhoto(t, root, "CORVUS", "SUMMER", "skipped.png")
	writePhoto(t, root, "CORVUS", "SUMMER", "notes.txt")
	writePhoto(t, root, "CORVUS", "toplevel.jpg")
	writePhoto(t, root, "root.jpg")
	writePhoto(t, root, "CORVUS", "SUMMER", "deeper", "toodeep.jpg")

	records, err := DiscoverPhotos(root, testCatalog())
	require.NoError(t, err)

	var found []string
	for _, rec := range records {
		found = append(found, filepath.Base(rec.Filename))
	}
	assert.ElementsMatch(t, []string{"upper.JPG", "mixed.Jpeg"}, found)
}

func TestPhotoStructuralCheck(t *testing.T) {
	tests := []struct {
		name string
		bird Bird
		tags []string
		want string
	}{
		{"complete", Bird{Swedish: "Kråka", English: "Crow", Latin: "Corvus corone"}, []string{"forest"}, ""},
		{"no swedish", Bird{English: "Crow", Latin: "Corvus corone"}, []string{"forest"}, "missing swedish name"},
		{"no english", Bird{Swedish: "Kråka", Latin: "Corvus corone"}, []string{"forest"}, "missing english name"},
		{"no latin", Bird{Swedish: "Kråka", English: "Crow"}, []string{"forest"}, "missing latin name"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			photo := newPhoto("a.jpg", tc.bird, tc.tags)
			assert.Equal(t, tc.want, photo.invalid())
		})
	}
}

func TestPhotoBasenameStripsExtensionOnly(t *testing.T) {
	bird := Bird{Swedish: "Kråka", English: "Crow", Latin: "Corvus corone"}
	photo := newPhoto(filepath.Join("data", "CORVUS", "SUMMER", "IMG_1234.JPEG"), bird, []string{"forest"})
	assert.Equal(t, "Scientific name: Corvus corone\nOriginal file: IMG_1234\n", photo.Description)
}
