package background

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrNoPhoto means the search succeeded but matched nothing usable.
var ErrNoPhoto = errors.New("no photo found")

// UnsplashClient searches Unsplash for a landscape photo (requires an access key).
type UnsplashClient struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
}

func NewUnsplashClient(baseURL, accessKey string, httpClient *http.Client) *UnsplashClient {
	if baseURL == "" {
		baseURL = "https://api.unsplash.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &UnsplashClient{
		baseURL:    baseURL,
		accessKey:  accessKey,
		httpClient: httpClient,
	}
}

type unsplashPhoto struct {
	URLs struct {
		Regular string `json:"regular"`
		Small   string `json:"small"`
	} `json:"urls"`
	User struct {
		Name  string `json:"name"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
	} `json:"user"`
	Links struct {
		HTML string `json:"html"`
	} `json:"links"`
}

type unsplashSearchResponse struct {
	Results []unsplashPhoto `json:"results"`
}

// Search returns the top landscape photo for query.
func (c *UnsplashClient) Search(ctx context.Context, query string) (Image, error) {
	values := url.Values{}
	values.Set("query", query)
	values.Set("orientation", "landscape")
	values.Set("page", "1")
	values.Set("per_page", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/search/photos?%s", c.baseURL, values.Encode()), nil)
	if err != nil {
		return Image{}, err
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Image{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Image{}, fmt.Errorf("unsplash non-200: %d", resp.StatusCode)
	}

	var payload unsplashSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Image{}, err
	}
	if len(payload.Results) == 0 || payload.Results[0].URLs.Regular == "" {
		return Image{}, ErrNoPhoto
	}

	photo := payload.Results[0]
	blur := photo.URLs.Small
	if blur == "" {
		blur = photo.URLs.Regular
	}
	return Image{
		URL:     photo.URLs.Regular,
		BlurURL: blur,
		Attribution: &Attribution{
			Photographer:    photo.User.Name,
			PhotographerURL: photo.User.Links.HTML,
			UnsplashURL:     photo.Links.HTML,
		},
	}, nil
}
