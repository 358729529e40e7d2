package main

import "fmt"

// Album is a remote photoset as this tool sees it: an id and the title the
// matching logic keys on.
type Album struct {
	ID          string
	Title       string
	Description string
}

// AlbumIndex is a snapshot of the remote albums keyed by title. It is
// replaced wholesale on Refresh, never patched; after creating an album the
// caller must Refresh before relying on the index again.
type AlbumIndex struct {
	remote  Remote
	byTitle map[string]Album
}

func FetchAlbumIndex(remote Remote) (*AlbumIndex, error) {
	index := &AlbumIndex{remote: remote}
	if err := index.Refresh(); err != nil {
		return nil, err
	}
	return index, nil
}

func (ix *AlbumIndex) Refresh() error {
	albums, err := ix.remote.ListAlbums()
	if err != nil {
		return fmt.Errorf("failed to list albums: %w", err)
	}
	byTitle := make(map[string]Album, len(albums))
	for _, album := range albums {
		// Duplicate titles: the last one listed wins.
		byTitle[album.Title] = album
	}
	ix.byTitle = byTitle
	return nil
}

func (ix *AlbumIndex) Lookup(title string) (Album, bool) {
	album, ok := ix.byTitle[title]
	return album, ok
}

func (ix *AlbumIndex) Len() int {
	return len(ix.byTitle)
}
