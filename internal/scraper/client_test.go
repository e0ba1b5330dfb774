package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFetchDocumentSendsBrowserHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Referer") != referrer {
			t.Errorf("unexpected referer: %s", r.Header.Get("Referer"))
		}
		if r.Header.Get("Accept-Language") != acceptLanguage {
			t.Errorf("unexpected accept-language: %s", r.Header.Get("Accept-Language"))
		}
		_, _ = w.Write([]byte(`<html><head><title>ok</title></head></html>`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), 0, nil)
	doc, err := client.FetchDocument(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchDocument error: %v", err)
	}
	if doc.Find("title").Text() != "ok" {
		t.Fatalf("document not parsed")
	}
}

func TestFetchDocumentRetriesOnFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`<html><head><title>recovered</title></head></html>`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), 1, nil)
	doc, err := client.FetchDocument(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchDocument error: %v", err)
	}
	if doc.Find("title").Text() != "recovered" {
		t.Fatalf("expected retried fetch to succeed")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}

func TestFetchDocumentExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.Client(), 1, nil)
	if _, err := client.FetchDocument(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}
