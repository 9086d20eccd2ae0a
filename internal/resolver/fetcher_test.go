package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const m31Response = `# M31	#Q4137512
#=Si=Simbad (via url):    1
%@ 1575544
%I.0 M  31
%C.0 GiG
%J 10.68470833 +41.26875000 = 00:42:44.33 +41:16:07.5
%V z -0.00100100 ~ [0.00000400] D 2012ApJ...759..174K
#====Done (2024-Jan-01,12:00:00z)====
`

// TestFetcherBodyLimit verifies that responses exceeding the 1 MB limit
// return an error instead of consuming unbounded memory.
func TestFetcherBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		chunk := strings.Repeat("A", 64*1024)
		for i := 0; i < 20; i++ {
			if _, err := w.Write([]byte(chunk)); err != nil {
				return // Client closed connection.
			}
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, time.Second, testLogger)
	_, err := fetcher.Fetch(context.Background(), "M31")
	if err == nil {
		t.Fatal("expected error for oversized response, got nil")
	}
	if !strings.Contains(err.Error(), "byte limit") {
		t.Errorf("expected body limit error, got: %v", err)
	}
}

func TestFetcherSuccess(t *testing.T) {
	fetcher := NewFetcher("", 0, testLogger)
	assert.Equal(t, "https://cds.unistra.fr/cgi-bin/nph-sesame/-oI/SNV", fetcher.SourceURL())
	httpmock.ActivateNonDefault(fetcher.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterRegexpResponder(http.MethodGet, regexp.MustCompile(`^https://cds\.unistra\.fr/cgi-bin/nph-sesame/-oI/SNV`),
		httpmock.NewStringResponder(http.StatusOK, m31Response))

	info, err := fetcher.Fetch(context.Background(), "M31")
	require.NoError(t, err)

	assert.Equal(t, "M31", info.Name)
	assert.InDelta(t, 10.68470833, info.RA, 1e-9)
	assert.InDelta(t, 41.26875, info.Dec, 1e-9)
	assert.Equal(t, "GiG", info.Type)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestFetcherEscapesName(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(m31Response))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, time.Second, testLogger)
	_, err := fetcher.Fetch(context.Background(), "SH2-173 A")
	require.NoError(t, err)
	assert.Equal(t, "SH2-173%20A", gotQuery)
}

func TestFetcherUnknownName(t *testing.T) {
	fetcher := NewFetcher("", 0, testLogger)
	httpmock.ActivateNonDefault(fetcher.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterRegexpResponder(http.MethodGet, regexp.MustCompile(`nph-sesame`),
		httpmock.NewStringResponder(http.StatusOK, "# XYZ123\t#Q1\n#! *** Nothing found *** \n#====Done====\n"))

	_, err := fetcher.Fetch(context.Background(), "XYZ123")
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v, want ErrNotFound", err)
}

// TestFetcherHTTPError verifies error handling for non-200 responses.
func TestFetcherHTTPError(t *testing.T) {
	fetcher := NewFetcher("", 0, testLogger)
	httpmock.ActivateNonDefault(fetcher.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterRegexpResponder(http.MethodGet, regexp.MustCompile(`nph-sesame`),
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	_, err := fetcher.Fetch(context.Background(), "M31")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound), "server errors must not look like unknown names")
}

func TestFetcherTransportError(t *testing.T) {
	fetcher := NewFetcher("", 0, testLogger)
	httpmock.ActivateNonDefault(fetcher.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterRegexpResponder(http.MethodGet, regexp.MustCompile(`nph-sesame`),
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := fetcher.Fetch(context.Background(), "M31")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
