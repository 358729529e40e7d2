package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"syscall"
)

// uploadAttempts is the total number of tries per photo, not extra retries.
const uploadAttempts = 10

var errUploadExhausted = errors.New("upload retries exhausted")

// Report summarizes a sync run.
type Report struct {
	Uploaded  int
	Created   int
	Reordered int
	Skipped   []string
}

// Syncer drives the remote side of a run: upload every photo, create or
// append to its album, then reorder every album that was touched.
type Syncer struct {
	remote Remote
	albums *AlbumIndex
	logger *slog.Logger
}

func NewSyncer(remote Remote, albums *AlbumIndex, logger *slog.Logger) *Syncer {
	return &Syncer{remote: remote, albums: albums, logger: logger}
}

// SyncBatch validates the discovered records and, only if every single one is
// valid, uploads the batch. A *BatchError means no remote call was made.
func SyncBatch(records []Record, remote Remote, logger *slog.Logger) (*Report, error) {
	photos, diags := ValidateBatch(records)
	if len(diags) > 0 {
		return nil, &BatchError{Diagnostics: diags}
	}
	return UploadPhotos(photos, remote, logger)
}

// UploadPhotos fetches the album index and runs the engine over an already
// validated batch.
func UploadPhotos(photos []*Photo, remote Remote, logger *slog.Logger) (*Report, error) {
	index, err := FetchAlbumIndex(remote)
	if err != nil {
		return nil, err
	}
	return NewSyncer(remote, index, logger).Run(photos)
}

// Run processes photos strictly in order. A photo whose upload exhausts its
// retries is skipped for the rest of the run; any other remote failure aborts.
func (s *Syncer) Run(photos []*Photo) (*Report, error) {
	report := &Report{}
	var touched []string
	seen := make(map[string]bool)

	for _, photo := range photos {
		photoID, err := s.uploadWithRetry(photo)
		if errors.Is(err, errUploadExhausted) {
			s.logger.Error("unable to upload photo, giving up", "file", photo.Filename, "attempts", uploadAttempts)
			report.Skipped = append(report.Skipped, photo.Filename)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("failed to upload %s: %w", photo.Filename, err)
		}
		s.logger.Info("uploaded", "file", photo.Filename, "photo_id", photoID)
		report.Uploaded++

		if album, ok := s.albums.Lookup(photo.Title); ok {
			s.logger.Debug("adding to album", "title", album.Title, "photo_id", photoID)
			if err := s.remote.AddToAlbum(album.ID, photoID); err != nil {
				return report, fmt.Errorf("failed to add photo %s to album %q: %w", photoID, photo.Title, err)
			}
		} else {
			s.logger.Debug("creating album", "title", photo.Title)
			_, err := s.remote.CreateAlbum(photo.Title, "Scientific name: "+photo.Latin+"\n", photoID)
			if err != nil {
				return report, fmt.Errorf("failed to create album %q: %w", photo.Title, err)
			}
			report.Created++
			if err := s.albums.Refresh(); err != nil {
				return report, err
			}
		}

		if !seen[photo.Title] {
			seen[photo.Title] = true
			touched = append(touched, photo.Title)
		}
	}

	for _, title := range touched {
		album, ok := s.albums.Lookup(title)
		if !ok {
			// Touched albums always exist after the post-create refresh.
			return report, fmt.Errorf("touched album %q missing from index", title)
		}
		s.logger.Info("reordering album", "title", title)
		if err := s.reorderAlbum(album); err != nil {
			return report, fmt.Errorf("failed to reorder album %q: %w", title, err)
		}
		report.Reordered++
	}

	return report, nil
}

func (s *Syncer) uploadWithRetry(photo *Photo) (string, error) {
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		photoID, err := s.remote.UploadPhoto(photo.Filename, photo.Title, photo.Description, photo.Tags)
		if err == nil {
			return photoID, nil
		}
		if !isTransient(err) {
			return "", err
		}
		s.logger.Warn("upload failed, retrying", "file", photo.Filename, "attempt", attempt, "error", err)
	}
	return "", errUploadExhausted
}

func (s *Syncer) reorderAlbum(album Album) error {
	// One page only; albums beyond the API default page size keep the rest of
	// their ordering untouched.
	photos, err := s.remote.AlbumPhotos(album.ID)
	if err != nil {
		return err
	}
	return s.remote.ReorderAlbum(album.ID, sortedPhotoOrder(photos))
}

// sortedPhotoOrder returns the album's photo ids ordered by upload day
// descending, with photos uploaded on the same day keeping their current
// relative order.
func sortedPhotoOrder(photos []AlbumPhoto) []string {
	type entry struct {
		index int
		day   string
		id    string
	}
	entries := make([]entry, len(photos))
	for i, p := range photos {
		entries[i] = entry{index: i, day: p.UploadedAt.Format("2006-01-02"), id: p.ID}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].day != entries[j].day {
			return entries[i].day > entries[j].day
		}
		return entries[i].index < entries[j].index
	})
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}

// isTransient reports whether an upload failure looks like an interrupted
// transfer worth retrying, as opposed to an API rejection.
func isTransient(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	// Timeouts only; permanent network failures such as an unresolvable
	// host are not worth ten attempts.
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
