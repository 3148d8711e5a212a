// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch wraps the remote image and post APIs behind the
// single-shot chat commands. Each fetcher returns a ready-to-preview
// embed.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/herald-project/herald/lib/embed"
)

// maxBodySize bounds API response reads. These endpoints return small
// JSON documents; anything larger is broken or hostile.
const maxBodySize = 1 << 20

// Default endpoints for each fetcher.
const (
	DefaultCatURL  = "https://api.thecatapi.com/v1/images/search"
	DefaultDogURL  = "https://dog.ceo/api/breeds/image/random"
	DefaultMemeURL = "https://www.reddit.com/r/memes/random/.json"
)

// Config points a Fetcher at its upstream APIs. Zero-value fields use
// the public defaults.
type Config struct {
	HTTPClient *http.Client
	CatURL     string
	DogURL     string
	MemeURL    string
}

// Fetcher retrieves remote content for the single-shot commands.
type Fetcher struct {
	client  *http.Client
	catURL  string
	dogURL  string
	memeURL string
}

// New builds a Fetcher, filling unset configuration with defaults.
func New(cfg Config) *Fetcher {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.CatURL == "" {
		cfg.CatURL = DefaultCatURL
	}
	if cfg.DogURL == "" {
		cfg.DogURL = DefaultDogURL
	}
	if cfg.MemeURL == "" {
		cfg.MemeURL = DefaultMemeURL
	}
	return &Fetcher{
		client:  cfg.HTTPClient,
		catURL:  cfg.CatURL,
		dogURL:  cfg.DogURL,
		memeURL: cfg.MemeURL,
	}
}

// CatImage fetches a random cat picture.
func (f *Fetcher) CatImage(ctx context.Context) (embed.Embed, error) {
	body, err := f.get(ctx, f.catURL)
	if err != nil {
		return embed.Embed{}, fmt.Errorf("fetch: cat image: %w", err)
	}

	imageURL := gjson.GetBytes(body, "0.url").String()
	if imageURL == "" {
		return embed.Embed{}, fmt.Errorf("fetch: cat API response has no image URL")
	}
	return embed.Embed{
		Title:       "Meow!",
		Description: imageURL,
		ImageURL:    imageURL,
		Color:       embed.DefaultColor,
	}, nil
}

// DogImage fetches a random dog picture.
func (f *Fetcher) DogImage(ctx context.Context) (embed.Embed, error) {
	body, err := f.get(ctx, f.dogURL)
	if err != nil {
		return embed.Embed{}, fmt.Errorf("fetch: dog image: %w", err)
	}

	result := gjson.GetBytes(body, "status")
	if result.String() != "success" {
		return embed.Embed{}, fmt.Errorf("fetch: dog API returned status %q", result.String())
	}
	imageURL := gjson.GetBytes(body, "message").String()
	if imageURL == "" {
		return embed.Embed{}, fmt.Errorf("fetch: dog API response has no image URL")
	}
	return embed.Embed{
		Title:       "Woof!",
		Description: imageURL,
		ImageURL:    imageURL,
		Color:       embed.DefaultColor,
	}, nil
}

// RandomMeme fetches a random post and renders its score and comment
// count in the footer.
func (f *Fetcher) RandomMeme(ctx context.Context) (embed.Embed, error) {
	body, err := f.get(ctx, f.memeURL)
	if err != nil {
		return embed.Embed{}, fmt.Errorf("fetch: random meme: %w", err)
	}

	post := gjson.GetBytes(body, "0.data.children.0.data")
	if !post.Exists() {
		return embed.Embed{}, fmt.Errorf("fetch: meme API response has no post")
	}
	imageURL := post.Get("url").String()
	if imageURL == "" {
		return embed.Embed{}, fmt.Errorf("fetch: meme post has no image URL")
	}
	return embed.Embed{
		Title:       post.Get("title").String(),
		Description: "https://reddit.com" + post.Get("permalink").String(),
		ImageURL:    imageURL,
		Color:       embed.DefaultColor,
		FooterText: fmt.Sprintf("👍 %d  💬 %d",
			post.Get("ups").Int(), post.Get("num_comments").Int()),
	}, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	// Reddit rejects default Go user agents.
	request.Header.Set("User-Agent", "herald-bot/1.0")

	response, err := f.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", response.StatusCode, rawURL)
	}
	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", rawURL, err)
	}
	return body, nil
}
