package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jonathan/job-scraper/internal/fetch"
	"github.com/jonathan/job-scraper/internal/types"
)

func linkedInCard(id int) string {
	return fmt.Sprintf(`<li>
  <div class="base-card job-search-card" data-entity-urn="urn:li:jobPosting:%d">
    <a class="base-card__full-link" href="https://uk.linkedin.com/jobs/view/go-engineer-%d?trk=abc"></a>
    <div class="base-search-card__info">
      <h3 class="base-search-card__title">
        Go   Engineer %d
      </h3>
      <h4 class="base-search-card__subtitle"><a>Acme Ltd</a></h4>
      <div class="base-search-card__metadata">
        <span class="job-search-card__location">London, England, United Kingdom</span>
        <span class="job-search-card__salary-info">£70,000 - £90,000</span>
        <time class="job-search-card__listdate" datetime="2026-10-12">3 days ago</time>
      </div>
    </div>
  </div>
</li>`, id, id, id)
}

func linkedInPage(from, n int) string {
	var sb strings.Builder
	for i := from; i < from+n; i++ {
		sb.WriteString(linkedInCard(i))
	}
	return sb.String()
}

// newLinkedInServer serves total cards in pages of ten and answers 400 past the end.
func newLinkedInServer(t *testing.T, total int, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		start, err := strconv.Atoi(r.URL.Query().Get("start"))
		require.NoError(t, err)
		if start >= total {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n := min(linkedInPageSize, total-start)
		_, _ = w.Write([]byte(linkedInPage(start, n)))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestLinkedIn(baseURL string) *LinkedIn {
	return NewLinkedIn(Options{LinkedInURL: baseURL, RequestsPerSecond: -1})
}

func TestParseLinkedInCards(t *testing.T) {
	listings, err := ParseLinkedInCards(linkedInCard(4012345))
	require.NoError(t, err)
	require.Len(t, listings, 1)

	got := listings[0]
	assert.Equal(t, "li-4012345", got.ID)
	assert.Equal(t, types.SiteLinkedIn, got.Site)
	assert.Equal(t, "Go Engineer 4012345", got.Title)
	assert.Equal(t, "Acme Ltd", got.Company)
	assert.Equal(t, "London, England, United Kingdom", got.Location)
	assert.Equal(t, "£70,000 - £90,000", got.Salary)
	assert.Equal(t, "https://uk.linkedin.com/jobs/view/go-engineer-4012345?trk=abc", got.URL)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), got.DatePosted)
	assert.False(t, got.IsRemote)
}

func TestParseLinkedInCards_NoURNFallsBackToStableID(t *testing.T) {
	html := `<div class="base-card"><a href="https://www.linkedin.com/jobs/view/1"></a>
<h3 class="base-search-card__title">Remote Go Dev</h3>
<span class="job-search-card__location">Remote</span></div>`

	first, err := ParseLinkedInCards(html)
	require.NoError(t, err)
	second, err := ParseLinkedInCards(html)
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.NotEmpty(t, first[0].ID)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, first[0].IsRemote)
}

func TestParseLinkedInCards_Empty(t *testing.T) {
	listings, err := ParseLinkedInCards("")
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestLinkedIn_SearchURL(t *testing.T) {
	l := newTestLinkedIn("https://example.com/search")
	req := types.NewSearchRequest("golang developer", "London")
	req.HoursOld = 24

	raw := l.searchURL(req, 20)
	assert.Contains(t, raw, "keywords=golang+developer")
	assert.Contains(t, raw, "location=London")
	assert.Contains(t, raw, "distance=25")
	assert.Contains(t, raw, "f_JT=F")
	assert.Contains(t, raw, "f_TPR=r86400")
	assert.Contains(t, raw, "start=20")
}

func TestLinkedIn_FetchBatchPagesToLimit(t *testing.T) {
	var hits atomic.Int32
	server := newLinkedInServer(t, 100, &hits)
	l := newTestLinkedIn(server.URL)

	req := types.NewSearchRequest("go", "London")
	req.FetchDescription = false

	got, err := l.FetchBatch(context.Background(), Query{Request: req, Offset: 0, Limit: 25})
	require.NoError(t, err)
	assert.Len(t, got, 25)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, "li-0", got[0].ID)
	assert.Equal(t, "li-24", got[24].ID)
}

func TestLinkedIn_FetchBatchHonorsOffset(t *testing.T) {
	var hits atomic.Int32
	server := newLinkedInServer(t, 100, &hits)
	l := newTestLinkedIn(server.URL)

	req := types.NewSearchRequest("go", "London")
	req.FetchDescription = false

	got, err := l.FetchBatch(context.Background(), Query{Request: req, Offset: 30, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, "li-30", got[0].ID)
}

func TestLinkedIn_ShortPageStops(t *testing.T) {
	var hits atomic.Int32
	server := newLinkedInServer(t, 15, &hits)
	l := newTestLinkedIn(server.URL)

	req := types.NewSearchRequest("go", "London")
	req.FetchDescription = false

	got, err := l.FetchBatch(context.Background(), Query{Request: req, Offset: 0, Limit: 30})
	require.NoError(t, err)
	assert.Len(t, got, 15)
	assert.Equal(t, int32(2), hits.Load())
}

func TestLinkedIn_BadRequestPastEndIsExhaustion(t *testing.T) {
	var hits atomic.Int32
	server := newLinkedInServer(t, 20, &hits)
	l := newTestLinkedIn(server.URL)

	req := types.NewSearchRequest("go", "London")
	req.FetchDescription = false

	got, err := l.FetchBatch(context.Background(), Query{Request: req, Offset: 20, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLinkedIn_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()
	l := newTestLinkedIn(server.URL)

	_, err := l.FetchBatch(context.Background(), Query{Request: types.NewSearchRequest("go", "London"), Limit: 10})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))

	var fetchErr *fetch.Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
}

func TestLinkedIn_BadRequestOnFirstPageIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()
	l := newTestLinkedIn(server.URL)

	_, err := l.FetchBatch(context.Background(), Query{Request: types.NewSearchRequest("go", "London"), Limit: 10})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestLinkedIn_FetchesDescriptions(t *testing.T) {
	body := strings.Repeat("We are hiring a Go engineer to build scrapers. ", 10)
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		card := fmt.Sprintf(`<div class="base-card" data-entity-urn="urn:li:jobPosting:7">
<a class="base-card__full-link" href="%s/jobs/view/7"></a>
<h3 class="base-search-card__title">Go Engineer</h3></div>`, server.URL)
		_, _ = w.Write([]byte(card))
	})
	mux.HandleFunc("/jobs/view/7", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><main>" + body + "</main></body></html>"))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	l := newTestLinkedIn(server.URL + "/search")
	got, err := l.FetchBatch(context.Background(), Query{Request: types.NewSearchRequest("go", "London"), Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Description, "We are hiring a Go engineer")
}

func TestLinkedIn_DescriptionFailureIsNotFatal(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		card := fmt.Sprintf(`<div class="base-card"><a class="base-card__full-link" href="%s/missing"></a>
<h3 class="base-search-card__title">Go Engineer</h3></div>`, server.URL)
		_, _ = w.Write([]byte(card))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	l := newTestLinkedIn(server.URL + "/search")
	got, err := l.FetchBatch(context.Background(), Query{Request: types.NewSearchRequest("go", "London"), Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Description)
}

func TestNewLinkedIn_ThrottledByDefault(t *testing.T) {
	l := NewLinkedIn(Options{})
	assert.Equal(t, rate.Limit(DefaultRequestsPerSecond), l.limiter.r)
	assert.NotEqual(t, rate.Inf, l.limiter.r)
}

func TestNewLinkedIn_ThrottleRate(t *testing.T) {
	assert.Equal(t, rate.Limit(2.5), NewLinkedIn(Options{RequestsPerSecond: 2.5}).limiter.r)
	assert.Equal(t, rate.Inf, NewLinkedIn(Options{RequestsPerSecond: -1}).limiter.r)
}
