package main

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/masci/flickr.v3"
	"gopkg.in/masci/flickr.v3/photosets"
)

// Remote is the album/photo service as the sync engine sees it. FlickrRemote
// implements it; tests substitute a fake.
type Remote interface {
	ListAlbums() ([]Album, error)
	UploadPhoto(filename, title, description string, tags []string) (string, error)
	CreateAlbum(title, description, coverPhotoID string) (Album, error)
	AddToAlbum(albumID, photoID string) error
	AlbumPhotos(albumID string) ([]AlbumPhoto, error)
	ReorderAlbum(albumID string, photoIDs []string) error
}

// AlbumPhoto is one entry of an album's membership listing.
type AlbumPhoto struct {
	ID         string
	Title      string
	UploadedAt time.Time
}

// RemotePhoto is a full photo snapshot from the service. Immutable once
// fetched; metadata edits require a refetch.
type RemotePhoto struct {
	ID          string
	Title       string
	Description string
	Tags        []string
	UploadedAt  time.Time
	TakenAt     time.Time
}

type FlickrRemote struct {
	client *flickr.FlickrClient
	logger *slog.Logger
}

func NewFlickrRemote(apiKey, apiSecret, oauthToken, oauthTokenSecret string, logger *slog.Logger) (*FlickrRemote, error) {
	if oauthToken == "" || oauthTokenSecret == "" {
		return nil, fmt.Errorf("OAuth tokens are required. Please run 'flickr-uploader auth' first to authenticate")
	}
	client := flickr.NewFlickrClient(apiKey, apiSecret)
	client.OAuthToken = oauthToken
	client.OAuthTokenSecret = oauthTokenSecret
	return &FlickrRemote{client: client, logger: logger}, nil
}

// ListAlbums fetches every page of the caller's photosets.
func (r *FlickrRemote) ListAlbums() ([]Album, error) {
	var albums []Album
	page := 1

	for {
		response, err := photosets.GetList(r.client, true, "", page)
		if err != nil {
			return nil, fmt.Errorf("failed to get photosets page %d: %w", page, err)
		}

		for _, set := range response.Photosets.Items {
			albums = append(albums, Album{
				ID:          set.Id,
				Title:       set.Title,
				Description: set.Description,
			})
		}

		r.logger.Debug("fetched album page", "page", page, "pages", response.Photosets.Pages)
		if page >= response.Photosets.Pages {
			break
		}
		page++

		// Rate limiting between API calls
		time.Sleep(100 * time.Millisecond)
	}

	return albums, nil
}

func (r *FlickrRemote) UploadPhoto(filename, title, description string, tags []string) (string, error) {
	params := flickr.NewUploadParams()
	params.Title = title
	params.Description = description
	params.Tags = quoteTags(tags)

	response, err := flickr.UploadFile(r.client, filename, params)
	if err != nil {
		return "", err
	}
	if response.HasErrors() {
		return "", fmt.Errorf("flickr API error: %s", response.ErrorMsg())
	}
	return response.ID, nil
}

func (r *FlickrRemote) CreateAlbum(title, description, coverPhotoID string) (Album, error) {
	response, err := photosets.Create(r.client, title, description, coverPhotoID)
	if err != nil {
		return Album{}, err
	}
	return Album{ID: response.Set.Id, Title: title, Description: description}, nil
}

func (r *FlickrRemote) AddToAlbum(albumID, photoID string) error {
	_, err := photosets.AddPhoto(r.client, albumID, photoID)
	return err
}

// AlbumPhotos lists an album's membership with upload dates. Single page
// only; albums larger than the API default page size are a known limitation.
func (r *FlickrRemote) AlbumPhotos(albumID string) ([]AlbumPhoto, error) {
	r.client.Init()
	r.client.Args.Set("method", "flickr.photosets.getPhotos")
	r.client.Args.Set("photoset_id", albumID)
	r.client.Args.Set("extras", "date_upload")
	r.client.OAuthSign()

	response := &albumPhotosResponse{}
	if err := flickr.DoGet(r.client, response); err != nil {
		return nil, fmt.Errorf("failed to get photos for album %s: %w", albumID, err)
	}
	if response.HasErrors() {
		return nil, fmt.Errorf("flickr API error: %s", response.ErrorMsg())
	}

	photos := make([]AlbumPhoto, 0, len(response.Photoset.Photos))
	for _, p := range response.Photoset.Photos {
		photos = append(photos, AlbumPhoto{
			ID:         p.ID,
			Title:      p.Title,
			UploadedAt: unixTime(p.DateUpload),
		})
	}
	return photos, nil
}

// ReorderAlbum submits the full photo-id sequence as the album's new order.
func (r *FlickrRemote) ReorderAlbum(albumID string, photoIDs []string) error {
	r.client.Init()
	r.client.HTTPVerb = "POST"
	r.client.Args.Set("method", "flickr.photosets.reorderPhotos")
	r.client.Args.Set("photoset_id", albumID)
	r.client.Args.Set("photo_ids", strings.Join(photoIDs, ","))
	r.client.OAuthSign()

	response := &flickr.BasicResponse{}
	if err := flickr.DoPost(r.client, response); err != nil {
		return fmt.Errorf("failed to reorder album %s: %w", albumID, err)
	}
	if response.HasErrors() {
		return fmt.Errorf("flickr API error: %s", response.ErrorMsg())
	}
	return nil
}

// AlbumInfo fetches a fresh album snapshot.
func (r *FlickrRemote) AlbumInfo(albumID string) (Album, error) {
	response, err := photosets.GetInfo(r.client, true, albumID, "")
	if err != nil {
		return Album{}, fmt.Errorf("failed to get album info for %s: %w", albumID, err)
	}
	return Album{
		ID:          albumID,
		Title:       response.Set.Title,
		Description: response.Set.Description,
	}, nil
}

// SetAlbumMeta replaces an album's title and description and returns the
// refetched snapshot.
func (r *FlickrRemote) SetAlbumMeta(albumID, title, description string) (Album, error) {
	if _, err := photosets.EditMeta(r.client, albumID, title, description); err != nil {
		return Album{}, fmt.Errorf("failed to edit album %s: %w", albumID, err)
	}
	return r.AlbumInfo(albumID)
}

// RecentPhotos returns the caller's n most recently uploaded photos.
func (r *FlickrRemote) RecentPhotos(n int) ([]AlbumPhoto, error) {
	r.client.Init()
	r.client.Args.Set("method", "flickr.photos.search")
	r.client.Args.Set("user_id", "me")
	r.client.Args.Set("extras", "date_upload")
	r.client.Args.Set("per_page", strconv.Itoa(n))
	r.client.OAuthSign()

	response := &photoSearchResponse{}
	if err := flickr.DoGet(r.client, response); err != nil {
		return nil, fmt.Errorf("failed to search photos: %w", err)
	}
	if response.HasErrors() {
		return nil, fmt.Errorf("flickr API error: %s", response.ErrorMsg())
	}

	photos := make([]AlbumPhoto, 0, len(response.Photos.Photo))
	for _, p := range response.Photos.Photo {
		photos = append(photos, AlbumPhoto{
			ID:         p.ID,
			Title:      p.Title,
			UploadedAt: unixTime(p.DateUpload),
		})
	}
	return photos, nil
}

// PhotoInfo fetches a full photo snapshot.
func (r *FlickrRemote) PhotoInfo(photoID string) (RemotePhoto, error) {
	r.client.Init()
	r.client.Args.Set("method", "flickr.photos.getInfo")
	r.client.Args.Set("photo_id", photoID)
	r.client.OAuthSign()

	response := &photoInfoResponse{}
	if err := flickr.DoGet(r.client, response); err != nil {
		return RemotePhoto{}, fmt.Errorf("failed to get photo info for %s: %w", photoID, err)
	}
	if response.HasErrors() {
		return RemotePhoto{}, fmt.Errorf("flickr API error: %s", response.ErrorMsg())
	}

	var tags []string
	for _, tag := range response.Photo.Tags.Tag {
		tags = append(tags, tag.Raw)
	}
	var taken time.Time
	if response.Photo.Dates.Taken != "" {
		if parsed, err := time.Parse("2006-01-02 15:04:05", response.Photo.Dates.Taken); err == nil {
			taken = parsed
		}
	}
	return RemotePhoto{
		ID:          photoID,
		Title:       response.Photo.Title.Content,
		Description: response.Photo.Description.Content,
		Tags:        tags,
		UploadedAt:  unixTime(response.Photo.DateUploaded),
		TakenAt:     taken,
	}, nil
}

// SetPhotoMeta replaces a photo's title and description.
func (r *FlickrRemote) SetPhotoMeta(photoID, title, description string) error {
	r.client.Init()
	r.client.HTTPVerb = "POST"
	r.client.Args.Set("method", "flickr.photos.setMeta")
	r.client.Args.Set("photo_id", photoID)
	r.client.Args.Set("title", title)
	r.client.Args.Set("description", description)
	r.client.OAuthSign()

	response := &flickr.BasicResponse{}
	if err := flickr.DoPost(r.client, response); err != nil {
		return fmt.Errorf("failed to set metadata for photo %s: %w", photoID, err)
	}
	if response.HasErrors() {
		return fmt.Errorf("flickr API error: %s", response.ErrorMsg())
	}
	return nil
}

// AddPhotoTags appends tags to a photo without touching its existing ones.
func (r *FlickrRemote) AddPhotoTags(photoID string, tags []string) error {
	r.client.Init()
	r.client.HTTPVerb = "POST"
	r.client.Args.Set("method", "flickr.photos.addTags")
	r.client.Args.Set("photo_id", photoID)
	r.client.Args.Set("tags", strings.Join(quoteTags(tags), " "))
	r.client.OAuthSign()

	response := &flickr.BasicResponse{}
	if err := flickr.DoPost(r.client, response); err != nil {
		return fmt.Errorf("failed to add tags to photo %s: %w", photoID, err)
	}
	if response.HasErrors() {
		return fmt.Errorf("flickr API error: %s", response.ErrorMsg())
	}
	return nil
}

// PhotoAlbums returns the albums a photo belongs to.
func (r *FlickrRemote) PhotoAlbums(photoID string) ([]Album, error) {
	r.client.Init()
	r.client.Args.Set("method", "flickr.photos.getAllContexts")
	r.client.Args.Set("photo_id", photoID)
	r.client.OAuthSign()

	response := &photoContextsResponse{}
	if err := flickr.DoGet(r.client, response); err != nil {
		return nil, fmt.Errorf("failed to get albums for photo %s: %w", photoID, err)
	}
	if response.HasErrors() {
		return nil, fmt.Errorf("flickr API error: %s", response.ErrorMsg())
	}

	var albums []Album
	for _, set := range response.Sets {
		albums = append(albums, Album{ID: set.ID, Title: set.Title})
	}
	return albums, nil
}

// albumPhotosResponse represents the response from flickr.photosets.getPhotos
type albumPhotosResponse struct {
	flickr.BasicResponse
	Photoset struct {
		Photos []listedPhoto `xml:"photo"`
	} `xml:"photoset"`
}

// photoSearchResponse represents the response from flickr.photos.search
type photoSearchResponse struct {
	flickr.BasicResponse
	Photos struct {
		Photo []listedPhoto `xml:"photo"`
	} `xml:"photos"`
}

type listedPhoto struct {
	ID         string `xml:"id,attr"`
	Title      string `xml:"title,attr"`
	DateUpload string `xml:"dateupload,attr"`
}

// photoInfoResponse represents the response from flickr.photos.getInfo
type photoInfoResponse struct {
	flickr.BasicResponse
	Photo struct {
		ID           string `xml:"id,attr"`
		DateUploaded string `xml:"dateuploaded,attr"`
		Title        struct {
			Content string `xml:",chardata"`
		} `xml:"title"`
		Description struct {
			Content string `xml:",chardata"`
		} `xml:"description"`
		Tags struct {
			Tag []struct {
				Raw string `xml:"raw,attr"`
			} `xml:"tag"`
		} `xml:"tags"`
		Dates struct {
			Taken string `xml:"taken,attr"`
		} `xml:"dates"`
	} `xml:"photo"`
}

// photoContextsResponse represents the response from flickr.photos.getAllContexts
type photoContextsResponse struct {
	flickr.BasicResponse
	Sets []struct {
		ID    string `xml:"id,attr"`
		Title string `xml:"title,attr"`
	} `xml:"set"`
}

var (
	scientificNameRe = regexp.MustCompile(`(?m)^Scientific name: (.*)$`)
	originalFileRe   = regexp.MustCompile(`(?m)^Original file: (.*)$`)
)

// ScientificName extracts the scientific name embedded in a photo or album
// description, or "" when absent.
func ScientificName(description string) string {
	if m := scientificNameRe.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	return ""
}

// OriginalFile extracts the original file name embedded in a photo
// description, or "" when absent.
func OriginalFile(description string) string {
	if m := originalFileRe.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	return ""
}

// quoteTags wraps each tag in double quotes so Flickr treats multi-word tags
// as single tags.
func quoteTags(tags []string) []string {
	quoted := make([]string, len(tags))
	for i, tag := range tags {
		quoted[i] = `"` + tag + `"`
	}
	return quoted
}

func unixTime(s string) time.Time {
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}
