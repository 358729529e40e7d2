package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/barasher/go-exiftool"
	"github.com/spf13/cobra"
	"gopkg.in/masci/flickr.v3"
	"gopkg.in/yaml.v3"
)

var (
	apiKey           string
	apiSecret        string
	oauthToken       string
	oauthTokenSecret string
	credsFile        string
	credsFileSave    string
	namesFile        string
	verbose          bool
	withExif         bool
)

type Credentials struct {
	APIKey           string `yaml:"api_key"`
	APISecret        string `yaml:"api_secret"`
	OAuthToken       string `yaml:"oauth_token"`
	OAuthTokenSecret string `yaml:"oauth_token_secret"`
}

var rootCmd = &cobra.Command{
	Use:   "flickr-uploader",
	Short: "Upload bird photos to Flickr, organized into albums by species",
	Long: `Reconciles a local directory of bird photos against Flickr.
Photos live under <birdCode>/<tagCode>/ and are joined against a names
workbook; each photo is uploaded into the album for its species, creating
the album if needed, and touched albums are reordered by upload date.`,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Flickr to get OAuth tokens",
	Long: `Start the OAuth authentication flow to get access tokens.
You'll need to visit a URL and authorize the application.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := loadCredsIfProvided(); err != nil {
			fmt.Printf("Error loading credentials: %v\n", err)
			os.Exit(1)
		}
		if apiKey == "" || apiSecret == "" {
			fmt.Println("Error: Both API key and API secret are required for authentication")
			fmt.Println("Provide them via flags or credentials file (-c)")
			os.Exit(1)
		}

		token, tokenSecret, err := performOAuthFlow(apiKey, apiSecret)
		if err != nil {
			fmt.Printf("Error during authentication: %v\n", err)
			os.Exit(1)
		}
		oauthToken = token
		oauthTokenSecret = tokenSecret

		if credsFileSave != "" {
			creds := Credentials{
				APIKey:           apiKey,
				APISecret:        apiSecret,
				OAuthToken:       oauthToken,
				OAuthTokenSecret: oauthTokenSecret,
			}
			if err := saveCredentials(credsFileSave, creds); err != nil {
				fmt.Printf("Error saving credentials: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Credentials saved to %s\n", credsFileSave)
			fmt.Printf("You can now use: ./flickr-uploader -c %s [command]\n", credsFileSave)
		}
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload [directory]",
	Short: "Upload all photos in a directory tree",
	Long: `Validate and upload every photo under the directory.
The batch is all-or-nothing: if any photo fails validation, every problem is
reported and nothing is uploaded.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()
		directory := args[0]

		records := mustDiscover(directory, logger)

		// Validate before any Flickr setup so metadata problems are
		// reported even when credentials are absent.
		photos, diags := ValidateBatch(records)
		if len(diags) > 0 {
			for _, diag := range diags {
				fmt.Println(diag)
			}
			os.Exit(1)
		}

		remote, err := newRemote(logger)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		report, err := UploadPhotos(photos, remote, logger)
		if err != nil {
			if report != nil {
				printReport(report)
			}
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		printReport(report)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [directory]",
	Short: "Validate a directory without uploading anything",
	Long: `Run the catalog load, discovery and batch validation locally.
No Flickr calls are made. With --exif, the capture date of each valid photo
is printed as well.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()
		directory := args[0]

		records := mustDiscover(directory, logger)
		photos, diags := ValidateBatch(records)
		if len(diags) > 0 {
			for _, diag := range diags {
				fmt.Println(diag)
			}
			os.Exit(1)
		}

		fmt.Printf("%d photos ready to upload\n", len(photos))
		if withExif {
			if err := printCaptureDates(photos); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
		}
	},
}

var albumsCmd = &cobra.Command{
	Use:   "albums",
	Short: "List Flickr albums and their scientific names",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()
		remote, err := newRemote(logger)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		albums, err := remote.ListAlbums()
		if err != nil {
			fmt.Printf("Error listing albums: %v\n", err)
			os.Exit(1)
		}
		for _, album := range albums {
			if latin := ScientificName(album.Description); latin != "" {
				fmt.Printf("%s\t%s\t%s\n", album.ID, album.Title, latin)
			} else {
				fmt.Printf("%s\t%s\n", album.ID, album.Title)
			}
		}
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent [count]",
	Short: "List the most recently uploaded photos",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()
		count := 10
		if len(args) == 1 {
			if _, err := fmt.Sscanf(args[0], "%d", &count); err != nil || count < 1 {
				fmt.Printf("Error: invalid count %q\n", args[0])
				os.Exit(1)
			}
		}
		remote, err := newRemote(logger)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		photos, err := remote.RecentPhotos(count)
		if err != nil {
			fmt.Printf("Error listing photos: %v\n", err)
			os.Exit(1)
		}
		for _, photo := range photos {
			fmt.Printf("%s\t%s\t%s\n", photo.ID, photo.UploadedAt.Format("2006-01-02"), photo.Title)
		}
	},
}

var photoCmd = &cobra.Command{
	Use:   "photo [photo-id]",
	Short: "Show a photo's metadata and album memberships",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()
		remote, err := newRemote(logger)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		info, err := remote.PhotoInfo(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Title: %s\n", info.Title)
		if latin := ScientificName(info.Description); latin != "" {
			fmt.Printf("Scientific name: %s\n", latin)
		}
		if original := OriginalFile(info.Description); original != "" {
			fmt.Printf("Original file: %s\n", original)
		}
		fmt.Printf("Uploaded: %s\n", info.UploadedAt.Format("2006-01-02"))
		if !info.TakenAt.IsZero() {
			fmt.Printf("Taken: %s\n", info.TakenAt.Format("2006-01-02"))
		}
		if len(info.Tags) > 0 {
			fmt.Printf("Tags: %v\n", info.Tags)
		}
		albums, err := remote.PhotoAlbums(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		for _, album := range albums {
			fmt.Printf("Album: %s (%s)\n", album.Title, album.ID)
		}
	},
}

// mustDiscover loads the names workbook from the directory and classifies
// every photo under it, exiting on any fatal metadata problem.
func mustDiscover(directory string, logger *slog.Logger) []Record {
	birdRows, tagRows, err := ReadNamesWorkbook(filepath.Join(directory, namesFile))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	catalog, err := LoadCatalog(birdRows, tagRows, logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	records, err := DiscoverPhotos(directory, catalog)
	if err != nil {
		fmt.Printf("Error scanning %s: %v\n", directory, err)
		os.Exit(1)
	}
	return records
}

func newRemote(logger *slog.Logger) (*FlickrRemote, error) {
	if err := loadCredsIfProvided(); err != nil {
		return nil, err
	}
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("both API key and API secret are required; provide them via flags or credentials file (-c)")
	}
	return NewFlickrRemote(apiKey, apiSecret, oauthToken, oauthTokenSecret, logger)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func printReport(report *Report) {
	fmt.Printf("Uploaded %d photos, created %d albums, reordered %d albums\n",
		report.Uploaded, report.Created, report.Reordered)
	for _, filename := range report.Skipped {
		fmt.Printf("Skipped (upload failed): %s\n", filename)
	}
}

func printCaptureDates(photos []*Photo) error {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return fmt.Errorf("could not initialize exiftool: %w", err)
	}
	defer et.Close()

	names := make([]string, len(photos))
	for i, photo := range photos {
		names[i] = photo.Filename
	}
	for _, meta := range et.ExtractMetadata(names...) {
		if meta.Err != nil {
			fmt.Printf("%s\t(no metadata: %v)\n", meta.File, meta.Err)
			continue
		}
		taken, err := meta.GetString("DateTimeOriginal")
		if err != nil {
			taken = "unknown"
		}
		fmt.Printf("%s\t%s\n", meta.File, taken)
	}
	return nil
}

func performOAuthFlow(apiKey, apiSecret string) (string, string, error) {
	client := flickr.NewFlickrClient(apiKey, apiSecret)

	fmt.Println("Getting request token...")
	requestTok, err := flickr.GetRequestToken(client)
	if err != nil {
		return "", "", fmt.Errorf("failed to get request token: %w", err)
	}

	authUrl, err := flickr.GetAuthorizeUrl(client, requestTok)
	if err != nil {
		return "", "", fmt.Errorf("failed to get authorization URL: %w", err)
	}

	fmt.Printf("\nPlease visit this URL to authorize the application:\n%s\n\n", authUrl)
	fmt.Print("After authorizing, enter the verification code: ")

	var verificationCode string
	if _, err := fmt.Scanln(&verificationCode); err != nil {
		return "", "", fmt.Errorf("failed to read verification code: %w", err)
	}

	fmt.Println("Getting access token...")
	accessTok, err := flickr.GetAccessToken(client, requestTok, verificationCode)
	if err != nil {
		return "", "", fmt.Errorf("failed to get access token: %w", err)
	}

	fmt.Printf("\nAuthentication successful!\n")
	if credsFileSave == "" {
		fmt.Printf("OAuth Token: %s\n", accessTok.OAuthToken)
		fmt.Printf("OAuth Token Secret: %s\n", accessTok.OAuthTokenSecret)
		fmt.Printf("\nSave these tokens and use them with:\n")
		fmt.Printf("--oauth-token %s --oauth-token-secret %s\n", accessTok.OAuthToken, accessTok.OAuthTokenSecret)
	}

	return accessTok.OAuthToken, accessTok.OAuthTokenSecret, nil
}

func saveCredentials(filename string, creds Credentials) error {
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

func loadCredentials(filename string) (*Credentials, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return &creds, nil
}

func loadCredsIfProvided() error {
	if credsFile == "" {
		return nil
	}
	creds, err := loadCredentials(credsFile)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	// Only override if not already set via flags
	if apiKey == "" {
		apiKey = creds.APIKey
	}
	if apiSecret == "" {
		apiSecret = creds.APISecret
	}
	if oauthToken == "" {
		oauthToken = creds.OAuthToken
	}
	if oauthTokenSecret == "" {
		oauthTokenSecret = creds.OAuthTokenSecret
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", "", "Flickr API Key")
	rootCmd.PersistentFlags().StringVarP(&apiSecret, "api-secret", "s", "", "Flickr API Secret")
	rootCmd.PersistentFlags().StringVar(&oauthToken, "oauth-token", "", "OAuth token")
	rootCmd.PersistentFlags().StringVar(&oauthTokenSecret, "oauth-token-secret", "", "OAuth token secret")
	rootCmd.PersistentFlags().StringVarP(&credsFile, "creds-file", "c", "", "Credentials file (YAML)")
	rootCmd.PersistentFlags().StringVar(&namesFile, "names", "names.xlsx", "Names workbook inside the photo directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	authCmd.Flags().StringVar(&credsFileSave, "save-creds", "", "Save credentials to this YAML file")
	checkCmd.Flags().BoolVar(&withExif, "exif", false, "Print each photo's capture date")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(albumsCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(photoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
