// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestFetcher(t *testing.T, handler http.Handler) *Fetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		HTTPClient: server.Client(),
		CatURL:     server.URL + "/cat",
		DogURL:     server.URL + "/dog",
		MemeURL:    server.URL + "/meme",
	})
}

func TestCatImage(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/cat" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writer.Write([]byte(`[{"id":"abc","url":"https://cdn.example/cat.png"}]`))
	}))

	result, err := fetcher.CatImage(context.Background())
	if err != nil {
		t.Fatalf("CatImage failed: %v", err)
	}
	if result.ImageURL != "https://cdn.example/cat.png" {
		t.Errorf("image URL = %q", result.ImageURL)
	}
}

func TestCatImageEmptyResponse(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`[]`))
	}))
	if _, err := fetcher.CatImage(context.Background()); err == nil {
		t.Error("CatImage succeeded on an empty response")
	}
}

func TestDogImage(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`{"status":"success","message":"https://images.dog.ceo/b.jpg"}`))
	}))

	result, err := fetcher.DogImage(context.Background())
	if err != nil {
		t.Fatalf("DogImage failed: %v", err)
	}
	if result.ImageURL != "https://images.dog.ceo/b.jpg" {
		t.Errorf("image URL = %q", result.ImageURL)
	}
}

func TestDogImageErrorStatus(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`{"status":"error","message":"down"}`))
	}))
	if _, err := fetcher.DogImage(context.Background()); err == nil {
		t.Error("DogImage succeeded on an error status")
	}
}

func TestRandomMeme(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.Header.Get("User-Agent"); !strings.Contains(got, "herald") {
			t.Errorf("user agent = %q", got)
		}
		writer.Write([]byte(`[{"data":{"children":[{"data":{
			"title":"A fine meme",
			"url":"https://i.example/meme.png",
			"permalink":"/r/memes/comments/x/",
			"ups":1234,
			"num_comments":56
		}}]}}]`))
	}))

	result, err := fetcher.RandomMeme(context.Background())
	if err != nil {
		t.Fatalf("RandomMeme failed: %v", err)
	}
	if result.Title != "A fine meme" {
		t.Errorf("title = %q", result.Title)
	}
	if result.ImageURL != "https://i.example/meme.png" {
		t.Errorf("image URL = %q", result.ImageURL)
	}
	if !strings.Contains(result.Description, "reddit.com/r/memes") {
		t.Errorf("description = %q", result.Description)
	}
	if !strings.Contains(result.FooterText, "1234") || !strings.Contains(result.FooterText, "56") {
		t.Errorf("footer = %q", result.FooterText)
	}
}

func TestFetchUpstreamFailure(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusServiceUnavailable)
	}))
	if _, err := fetcher.CatImage(context.Background()); err == nil {
		t.Error("CatImage succeeded on a 503")
	}
}
