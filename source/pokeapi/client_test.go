package pokeapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pokemon-investigator/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pikachuJSON = `{
  "id": 25,
  "name": "pikachu",
  "base_experience": 112,
  "height": 4,
  "types": [{"slot": 1, "type": {"name": "electric", "url": "https://pokeapi.co/api/v2/type/13/"}}],
  "moves": [{"move": {"name": "thunder-shock"}}, {"move": {"name": "quick-attack"}}]
}`

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL+"/api/v2/pokemon/"), WithHTTPClient(srv.Client()))
}

func TestClient_Fetch_Success(t *testing.T) {
	var gotPath, gotUA string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pikachuJSON))
	})

	rec, err := c.Fetch(context.Background(), "Pikachu")

	require.NoError(t, err)
	assert.Equal(t, "/api/v2/pokemon/pikachu", gotPath)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, 25, rec.ID)
	assert.Equal(t, "pikachu", rec.Name)
	assert.Equal(t, 112, rec.BaseExperience)
	assert.Equal(t, 4, rec.Height)
	assert.Equal(t, []string{"electric"}, rec.Types)
	assert.Equal(t, []string{"thunder-shock", "quick-attack"}, rec.Moves)
}

func TestClient_Fetch_BaseExperienceDefaultsToZero(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null", `{"id":1,"name":"x","base_experience":null,"height":1,"types":[],"moves":[]}`},
		{"missing", `{"id":1,"name":"x","height":1,"types":[],"moves":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			rec, err := c.Fetch(context.Background(), "x")
			require.NoError(t, err)
			assert.Equal(t, 0, rec.BaseExperience)
			assert.Empty(t, rec.Types)
		})
	}
}

func TestClient_Fetch_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"not json", `<html>`, "decode payload"},
		{"array body", `[]`, "decode payload"},
		{"wrong id type", `{"id":"25","name":"x","height":1,"types":[],"moves":[]}`, "decode payload"},
		{"missing id", `{"name":"x","height":1,"types":[],"moves":[]}`, "id: required"},
		{"non positive id", `{"id":0,"name":"x","height":1,"types":[],"moves":[]}`, "id: must be positive"},
		{"missing height", `{"id":1,"name":"x","types":[],"moves":[]}`, "height: required"},
		{"missing types", `{"id":1,"name":"x","height":1,"moves":[]}`, "types: required"},
		{"type without name", `{"id":1,"name":"x","height":1,"types":[{"type":{}}],"moves":[]}`, "types[0].type.name: required"},
		{"move without move", `{"id":1,"name":"x","height":1,"types":[],"moves":[{}]}`, "moves[0].move.name: required"},
		{"fractional height", `{"id":1,"name":"x","height":1.5,"types":[],"moves":[]}`, "decode payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Fetch(context.Background(), "x")

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, KindValidation, fe.Kind)
			assert.False(t, fe.Transient())
			assert.False(t, retry.IsTransient(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestClient_Fetch_Status(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"not found", http.StatusNotFound, false},
		{"bad request", http.StatusBadRequest, false},
		{"too many requests", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.Fetch(context.Background(), "missingno")

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, KindStatus, fe.Kind)
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Equal(t, tt.transient, retry.IsTransient(err))
			assert.Contains(t, err.Error(), "missingno")
		})
	}
}

func TestClient_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, "slowpoke")

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTimeout, fe.Kind)
	assert.True(t, retry.IsTransient(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_Fetch_Cancelled(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pikachuJSON))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, "pikachu")

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindAborted, fe.Kind)
	assert.False(t, retry.IsTransient(err))
}

func TestClient_Fetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(WithBaseURL(base))
	_, err := c.Fetch(context.Background(), "pikachu")

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.True(t, retry.IsTransient(err))
}

func TestClient_Fetch_RateLimited(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(pikachuJSON))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000, 1), WithUserAgent("test-agent"))

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), "pikachu")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestClient_Fetch_RateLimitDeadline(t *testing.T) {
	c := NewClient(WithBaseURL("http://127.0.0.1:0"), WithRateLimit(0.001, 1))
	// drain the single burst token
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, "pikachu")

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTimeout, fe.Kind)
	assert.True(t, fe.Transient())
}

func TestFetchError_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  *FetchError
		want string
	}{
		{"status", &FetchError{Name: "x", Kind: KindStatus, StatusCode: 404}, `HTTP 404 for "x"`},
		{"timeout", &FetchError{Name: "x", Kind: KindTimeout, Err: context.DeadlineExceeded}, `request timeout for "x": context deadline exceeded`},
		{"network", &FetchError{Name: "x", Kind: KindNetwork, Err: errors.New("refused")}, `network error fetching "x": refused`},
		{"aborted", &FetchError{Name: "x", Kind: KindAborted}, `request aborted for "x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); !strings.HasPrefix(got, tt.want) {
				t.Errorf("Error() got=%#v want=%#v", got, tt.want)
			}
		})
	}
}
