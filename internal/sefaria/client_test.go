package sefaria

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func testClient(ts *httptest.Server) *Client {
	return NewClient(
		WithBaseURL(ts.URL),
		WithPacing(0),
		WithRetryPolicy(fastRetry()),
	)
}

func TestFetchChapterMultiParagraph(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/texts/") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
			"ref": "Sichot HaRan 1",
			"book": "Sichot HaRan",
			"he": ["פסקה א", "פסקה ב"],
			"text": ["First paragraph.", "Second paragraph."],
			"versionTitle": "Test Version",
			"versionSource": "https://example.org"
		}`))
	}))
	defer ts.Close()

	passages, err := testClient(ts).FetchChapter(context.Background(), "Sichot_HaRan.1")
	if err != nil {
		t.Fatalf("FetchChapter: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("got %d passages, want 2", len(passages))
	}
	if passages[0].Ref != "Sichot_HaRan.1:1" || passages[1].Ref != "Sichot_HaRan.1:2" {
		t.Errorf("paragraph refs wrong: %q, %q", passages[0].Ref, passages[1].Ref)
	}
	if passages[0].Hebrew != "פסקה א" || passages[0].English != "First paragraph." {
		t.Errorf("first passage mismatched: %+v", passages[0])
	}
	if passages[0].Book != "Sichot HaRan" {
		t.Errorf("book: got %q", passages[0].Book)
	}
}

func TestFetchChapterSingleString(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ref": "Sippurei Maasiyot 1", "book": "Sippurei Maasiyot",
			"he": "מעשה", "text": "A tale."}`))
	}))
	defer ts.Close()

	passages, err := testClient(ts).FetchChapter(context.Background(), "Sippurei_Maasiyot.1")
	if err != nil {
		t.Fatalf("FetchChapter: %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("got %d passages, want 1", len(passages))
	}
	// Single-paragraph chapters keep the bare chapter ref.
	if passages[0].Ref != "Sippurei_Maasiyot.1" {
		t.Errorf("ref: got %q", passages[0].Ref)
	}
}

func TestFetchChapterNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	passages, err := testClient(ts).FetchChapter(context.Background(), "Chayei_Moharan.599")
	if err != nil {
		t.Fatalf("404 must not be an error, got: %v", err)
	}
	if passages != nil {
		t.Errorf("404 must yield no passages, got %d", len(passages))
	}
}

func TestFetchChapterRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ref": "X 1", "book": "X", "he": ["א"], "text": ["ok"]}`))
	}))
	defer ts.Close()

	passages, err := testClient(ts).FetchChapter(context.Background(), "X.1")
	if err != nil {
		t.Fatalf("expected recovery on third attempt, got: %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("got %d passages, want 1", len(passages))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("made %d calls, want 3", got)
	}
}

func TestFetchChapterGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := testClient(ts).FetchChapter(context.Background(), "X.1")
	if err == nil {
		t.Fatal("expected an error after exhausted retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("made %d calls, want 3", got)
	}
}

func TestFetchChapterUnevenLanguages(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ref": "X 1", "book": "X", "he": ["א", "ב", "ג"], "text": ["one"]}`))
	}))
	defer ts.Close()

	passages, err := testClient(ts).FetchChapter(context.Background(), "X.1")
	if err != nil {
		t.Fatalf("FetchChapter: %v", err)
	}
	if len(passages) != 3 {
		t.Fatalf("got %d passages, want 3", len(passages))
	}
	if passages[2].Hebrew != "ג" || passages[2].English != "" {
		t.Errorf("untranslated paragraph mishandled: %+v", passages[2])
	}
}
