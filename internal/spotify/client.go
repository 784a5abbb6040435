// Package spotify wraps the Spotify Web API for library loading and playlist
// publishing.
package spotify

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"albumshuffle/internal/core"
	httpserver "albumshuffle/internal/http"
	"albumshuffle/pkg/fuzzy"
)

const (
	// FilePermission is the permission for token files
	FilePermission = 0600
	// PageLimit is the page size for paginated playlist and track requests
	PageLimit = 50
	// AddTracksChunkSize is the Spotify API cap on tracks per add request
	AddTracksChunkSize = 100
	// GeneratedPlaylistDescription is set on playlists this tool creates
	GeneratedPlaylistDescription = "Automatically-generated shuffled playlist"
)

type Client struct {
	config     *core.SpotifyConfig
	logger     *zap.Logger
	auth       *spotifyauth.Authenticator
	client     *spotify.Client
	limiter    *rate.Limiter
	normalizer *fuzzy.Normalizer
	metrics    core.Metrics
	userID     string

	// identify resolves the authenticated user's ID, verifying the token in
	// the process. Tests swap it out to avoid hitting the API.
	identify func(ctx context.Context, api *spotify.Client) (string, error)
}

type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

func NewClient(config *core.SpotifyConfig, metrics core.Metrics, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserLibraryRead,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopePlaylistModifyPublic,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	limit := config.RateLimit
	if limit <= 0 {
		limit = 10
	}

	return &Client{
		config:     config,
		logger:     logger,
		auth:       auth,
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
		normalizer: fuzzy.NewNormalizer(),
		metrics:    metrics,
		identify: func(ctx context.Context, api *spotify.Client) (string, error) {
			user, err := api.CurrentUser(ctx)
			if err != nil {
				return "", err
			}
			return user.ID, nil
		},
	}
}

// Authenticate establishes an authenticated session. A valid persisted token
// is used directly; otherwise the browser authorization flow runs, capturing
// the code via the local callback or a URL pasted into the terminal.
func (c *Client) Authenticate(ctx context.Context, callback *httpserver.OAuthHandler) error {
	token, err := c.loadToken()
	if err != nil {
		c.logger.Info("No saved token found, starting authorization flow")
		return c.runAuthorizationFlow(ctx, callback)
	}

	if probeErr := c.useToken(ctx, token); probeErr != nil {
		c.logger.Warn("Saved token rejected, starting authorization flow", zap.Error(probeErr))
		return c.runAuthorizationFlow(ctx, callback)
	}

	c.logger.Info("Authenticated with saved token", zap.String("user", c.userID))
	return nil
}

func (c *Client) runAuthorizationFlow(ctx context.Context, callback *httpserver.OAuthHandler) error {
	state, err := randomState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := c.auth.AuthURL(state)

	var results <-chan httpserver.OAuthResult
	if callback != nil {
		results = callback.Arm(c.auth.Token, state)
	}

	fmt.Printf("Please log in to Spotify by visiting:\n%s\n", authURL)
	if err := openBrowser(authURL); err != nil {
		c.logger.Debug("Could not open browser", zap.Error(err))
	}
	fmt.Println("If the browser redirect is not captured automatically, paste the redirect URL here and press enter.")

	pasted := readPastedLine()

	var token *oauth2.Token
	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-results:
		if result.Err != nil {
			return fmt.Errorf("authorization callback failed: %w", result.Err)
		}
		token = result.Token
	case line := <-pasted:
		code, err := codeFromPastedLine(line, state)
		if err != nil {
			return err
		}
		token, err = c.auth.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to exchange code for token: %w", err)
		}
	}

	if saveErr := c.saveToken(token); saveErr != nil {
		c.logger.Warn("Failed to save token", zap.Error(saveErr))
	}

	if err := c.useToken(ctx, token); err != nil {
		return fmt.Errorf("authorization flow produced unusable token: %w", err)
	}

	c.logger.Info("Authorization flow completed", zap.String("user", c.userID))
	return nil
}

// useToken builds the API client from a token and probes it with a
// current-user request.
func (c *Client) useToken(ctx context.Context, token *oauth2.Token) error {
	client := spotify.New(c.auth.Client(ctx, token), spotify.WithRetry(true))

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	c.recordAPI("current_user")

	userID, err := c.identify(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	c.client = client
	c.userID = userID
	return nil
}

// CurrentUserPlaylists returns every playlist the user owns or follows.
func (c *Client) CurrentUserPlaylists(ctx context.Context) ([]core.Playlist, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}

	var playlists []core.Playlist
	offset := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		c.recordAPI("playlists")

		page, err := c.client.CurrentUsersPlaylists(ctx,
			spotify.Limit(PageLimit), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("failed to get playlists: %w", err)
		}

		for i := range page.Playlists {
			playlist := &page.Playlists[i]
			playlists = append(playlists, core.Playlist{
				ID:         string(playlist.ID),
				Name:       playlist.Name,
				Owner:      playlist.Owner.ID,
				TrackCount: int(playlist.Tracks.Total), //nolint:gosec // playlist sizes fit in int
			})
		}

		if len(page.Playlists) < PageLimit {
			break
		}
		offset += len(page.Playlists)
	}

	c.logger.Info("Retrieved playlists", zap.Int("count", len(playlists)))
	return playlists, nil
}

// PlaylistTracks returns all tracks of a playlist in playlist order. Episodes
// and unavailable items are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]core.Track, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}

	var tracks []core.Track
	offset := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		c.recordAPI("playlist_items")

		items, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
			spotify.Limit(PageLimit), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist items: %w", err)
		}

		if len(items.Items) == 0 {
			// The playlist may have shrunk since the previous page.
			break
		}

		for i := range items.Items {
			track := items.Items[i].Track.Track
			if track == nil || track.ID == "" {
				continue
			}
			tracks = append(tracks, convertTrack(track))
		}

		if len(items.Items) < PageLimit {
			break
		}
		offset += len(items.Items)
	}

	c.logger.Debug("Retrieved playlist tracks",
		zap.String("playlistID", playlistID),
		zap.Int("count", len(tracks)))

	return tracks, nil
}

// EnsurePlaylist returns the user's playlist with the given name, creating a
// private one when none exists.
func (c *Client) EnsurePlaylist(ctx context.Context, name string) (core.Playlist, error) {
	if c.client == nil {
		return core.Playlist{}, fmt.Errorf("client not authenticated")
	}

	playlists, err := c.CurrentUserPlaylists(ctx)
	if err != nil {
		return core.Playlist{}, err
	}

	for _, playlist := range playlists {
		if c.normalizer.Match(playlist.Name, name) {
			c.logger.Info("Reusing existing playlist",
				zap.String("name", playlist.Name),
				zap.String("playlistID", playlist.ID))
			return playlist, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return core.Playlist{}, err
	}
	c.recordAPI("create_playlist")

	created, err := c.client.CreatePlaylistForUser(ctx, c.userID, name,
		GeneratedPlaylistDescription, false, false)
	if err != nil {
		return core.Playlist{}, fmt.Errorf("failed to create playlist: %w", err)
	}

	c.logger.Info("Created playlist",
		zap.String("name", name),
		zap.String("playlistID", string(created.ID)))

	return core.Playlist{
		ID:    string(created.ID),
		Name:  created.Name,
		Owner: c.userID,
	}, nil
}

// ReplaceTracks sets the playlist's content to exactly the given tracks in the
// given order. The playlist is cleared first, then filled in API-sized chunks.
func (c *Client) ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}

	id := spotify.ID(playlistID)

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	c.recordAPI("replace_tracks")

	if err := c.client.ReplacePlaylistTracks(ctx, id); err != nil {
		return fmt.Errorf("failed to clear playlist: %w", err)
	}

	for start := 0; start < len(trackIDs); start += AddTracksChunkSize {
		end := start + AddTracksChunkSize
		if end > len(trackIDs) {
			end = len(trackIDs)
		}

		chunk := make([]spotify.ID, 0, end-start)
		for _, trackID := range trackIDs[start:end] {
			chunk = append(chunk, spotify.ID(trackID))
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		c.recordAPI("add_tracks")

		if _, err := c.client.AddTracksToPlaylist(ctx, id, chunk...); err != nil {
			return fmt.Errorf("failed to add tracks at offset %d: %w", start, err)
		}
	}

	c.logger.Info("Replaced playlist tracks",
		zap.String("playlistID", playlistID),
		zap.Int("count", len(trackIDs)))

	return nil
}

func (c *Client) recordAPI(endpoint string) {
	if c.metrics != nil {
		c.metrics.RecordAPIRequest(endpoint)
	}
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	file, err := os.Open(c.config.TokenPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, err
	}

	if tokenData.Token == nil {
		return nil, fmt.Errorf("token file contains no token")
	}

	return tokenData.Token, nil
}

func (c *Client) saveToken(token *oauth2.Token) error {
	tokenData := TokenData{Token: token}

	data, err := json.MarshalIndent(tokenData, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.config.TokenPath, data, FilePermission)
}

func convertTrack(track *spotify.FullTrack) core.Track {
	var artists []string
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	return core.Track{
		ID:       string(track.ID),
		Title:    track.Name,
		Artist:   strings.Join(artists, ", "),
		Album:    track.Album.Name,
		AlbumID:  string(track.Album.ID),
		Duration: time.Duration(track.Duration) * time.Millisecond,
	}
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// readPastedLine reads one line from stdin in the background. The goroutine
// stays blocked on stdin if the flow completes via the callback first; the
// process exits shortly after, so that is fine for a CLI.
func readPastedLine() <-chan string {
	lines := make(chan string, 1)

	go func() {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		lines <- strings.TrimSpace(line)
	}()

	return lines
}

// codeFromPastedLine extracts the authorization code from a pasted redirect
// URL, or accepts a bare code.
func codeFromPastedLine(line, state string) (string, error) {
	if line == "" {
		return "", fmt.Errorf("empty authorization input")
	}

	if !strings.Contains(line, "://") && !strings.Contains(line, "=") {
		return line, nil
	}

	u, err := url.Parse(line)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}

	query := u.Query()
	if got := query.Get("state"); got != "" && got != state {
		return "", fmt.Errorf("state mismatch in pasted redirect URL")
	}

	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("no authorization code in pasted input")
	}

	return code, nil
}
