package orbit_client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil, nil)
	return client, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestRequestAttachesBearerToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"amount": 10}`)
	}))
	client.SetCredential("A1", "R1")

	body, err := client.Request(context.Background(), http.MethodGet, "/wallet/balance", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer A1", gotAuth)
	assert.JSONEq(t, `{"amount": 10}`, string(body))
}

func TestRequestAnonymousSendsNoAuthHeader(t *testing.T) {
	var hadAuth bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		writeJSON(w, http.StatusOK, `{}`)
	}))

	_, err := client.Request(context.Background(), http.MethodGet, "/social/feed", nil)
	require.NoError(t, err)
	assert.False(t, hadAuth, "anonymous request must not carry an Authorization header")
}

func TestRequestSendsDefaultAndExtraHeadersAndQuery(t *testing.T) {
	var gotReq *http.Request
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		writeJSON(w, http.StatusOK, `{}`)
	}))
	client.defaultHeaders = map[string]string{"X-Orbit-App-Key": "appkey"}

	_, err := client.Request(context.Background(), http.MethodGet, "/wallet/transactions", &RequestOptions{
		Query:   url.Values{"limit": {"5"}},
		Headers: map[string]string{"X-Debug": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "appkey", gotReq.Header.Get("X-Orbit-App-Key"))
	assert.Equal(t, "1", gotReq.Header.Get("X-Debug"))
	assert.Equal(t, "application/json", gotReq.Header.Get("Content-Type"))
	assert.Equal(t, "5", gotReq.URL.Query().Get("limit"))
}

func TestRequestRefreshesAndRetriesOnceOn401(t *testing.T) {
	var balanceCalls, refreshCalls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wallet/balance":
			atomic.AddInt32(&balanceCalls, 1)
			if r.Header.Get("Authorization") == "Bearer A2" {
				writeJSON(w, http.StatusOK, `{"amount": 10}`)
				return
			}
			writeJSON(w, http.StatusUnauthorized, `{"error": "token expired"}`)
		case "/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			var req map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "R1", req["refreshToken"])
			writeJSON(w, http.StatusOK, `{"token": "A2", "refreshToken": "R2"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	client.SetCredential("A1", "R1")

	body, err := client.Request(context.Background(), http.MethodGet, "/wallet/balance", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 10}`, string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&balanceCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
	assert.Equal(t, "A2", client.AccessToken())
	assert.Equal(t, "R2", client.RefreshToken())
}

func TestRequestFailedRefreshClearsCredentialAndReturnsAuthError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			writeJSON(w, http.StatusForbidden, `{"error": "refresh token revoked"}`)
		default:
			writeJSON(w, http.StatusUnauthorized, `{"error": "token expired"}`)
		}
	}))
	client.SetCredential("A1", "R1")

	_, err := client.Request(context.Background(), http.MethodGet, "/wallet/balance", nil)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.JSONEq(t, `{"error": "token expired"}`, string(authErr.Body), "caller must see the original 401")

	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, http.StatusForbidden, refreshErr.Status)

	assert.Empty(t, client.AccessToken(), "client must be anonymous after a failed refresh")
	assert.Empty(t, client.RefreshToken())
}

func TestRequest401WithoutRefreshTokenReturnsAuthError(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnauthorized, `{"error": "unauthorized"}`)
	}))
	client.SetCredential("A1", "")

	_, err := client.Request(context.Background(), http.MethodGet, "/user/me", nil)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no refresh endpoint call, no retry")
}

func TestRequest401AfterRetryIsFinal(t *testing.T) {
	var balanceCalls, refreshCalls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			writeJSON(w, http.StatusOK, `{"token": "A2", "refreshToken": "R2"}`)
		default:
			atomic.AddInt32(&balanceCalls, 1)
			writeJSON(w, http.StatusUnauthorized, `{"error": "still unauthorized"}`)
		}
	}))
	client.SetCredential("A1", "R1")

	_, err := client.Request(context.Background(), http.MethodGet, "/wallet/balance", nil)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(2), atomic.LoadInt32(&balanceCalls), "exactly one retry")
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	const workers = 8
	var refreshCalls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			if req["refreshToken"] != "R1" {
				// A second refresh would arrive with the rotated token and
				// the server side would have revoked it already.
				writeJSON(w, http.StatusForbidden, `{"error": "refresh token revoked"}`)
				return
			}
			time.Sleep(50 * time.Millisecond)
			writeJSON(w, http.StatusOK, `{"token": "A2", "refreshToken": "R2"}`)
		default:
			if r.Header.Get("Authorization") == "Bearer A2" {
				writeJSON(w, http.StatusOK, `{"amount": 10}`)
				return
			}
			writeJSON(w, http.StatusUnauthorized, `{"error": "token expired"}`)
		}
	}))
	client.SetCredential("A1", "R1")

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Request(context.Background(), http.MethodGet, "/wallet/balance", nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls), "concurrent 401s must coalesce onto one refresh")
	assert.Equal(t, "A2", client.AccessToken())
}

func TestConcurrent401sAllFailWhenRefreshFails(t *testing.T) {
	const workers = 4
	var refreshCalls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			time.Sleep(20 * time.Millisecond)
			writeJSON(w, http.StatusForbidden, `{"error": "refresh token revoked"}`)
		default:
			writeJSON(w, http.StatusUnauthorized, `{"error": "token expired"}`)
		}
	}))
	client.SetCredential("A1", "R1")

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Request(context.Background(), http.MethodGet, "/wallet/balance", nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		var authErr *AuthError
		assert.ErrorAs(t, err, &authErr, "request %d", i)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
	assert.Empty(t, client.AccessToken())
}

func TestRequestNetworkErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second}, nil, nil)
	client.SetCredential("A1", "R1")

	_, err := client.Request(context.Background(), http.MethodGet, "/wallet/balance", nil)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, "A1", client.AccessToken(), "network errors must not touch the credential")
}

func TestRequestContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Request(ctx, http.MethodGet, "/user/me", nil)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestNon2xxReturnsAPIError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error": "no such account"}`)
	}))
	client.SetCredential("A1", "R1")

	_, err := client.Request(context.Background(), http.MethodGet, "/social/profile", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.JSONEq(t, `{"error": "no such account"}`, string(apiErr.Body))
}

func TestRequestMarshalsBody(t *testing.T) {
	var gotBody map[string]interface{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(w, http.StatusOK, `{}`)
	}))

	_, err := client.Request(context.Background(), http.MethodPost, "/wallet/transfer", &RequestOptions{
		Body: map[string]interface{}{"to": "alice", "amount": 2.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", gotBody["to"])
	assert.Equal(t, 2.5, gotBody["amount"])
}

func TestClearCredentialIsIdempotent(t *testing.T) {
	client := NewClient(Config{}, nil, nil)
	client.SetCredential("A1", "R1")

	client.ClearCredential()
	assert.Empty(t, client.AccessToken())

	client.ClearCredential()
	assert.Empty(t, client.AccessToken())
	assert.Empty(t, client.RefreshToken())
	assert.False(t, client.Authenticated())
}

func TestSetCredentialRotates(t *testing.T) {
	client := NewClient(Config{}, nil, nil)

	client.SetCredential("A1", "R1")
	assert.Equal(t, "A1", client.AccessToken())

	client.SetCredential("A2", "R2")
	assert.Equal(t, "A2", client.AccessToken())
	assert.Equal(t, "R2", client.RefreshToken())
}

func TestRefreshDoesNotRecurse(t *testing.T) {
	// The refresh endpoint answering 401 must not trigger another refresh.
	var refreshCalls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			writeJSON(w, http.StatusUnauthorized, `{"error": "unauthorized"}`)
		default:
			writeJSON(w, http.StatusUnauthorized, `{"error": "token expired"}`)
		}
	}))
	client.SetCredential("A1", "R1")

	_, err := client.Request(context.Background(), http.MethodGet, "/wallet/balance", nil)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "<empty>", maskToken(""))
	assert.Equal(t, "***", maskToken("short"))
	assert.Equal(t, "abcd***wxyz", maskToken("abcdefghijklmnopqrstuvwxyz"))
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	assert.ErrorIs(t, &NetworkError{URL: "http://x", Err: cause}, cause)
	assert.ErrorIs(t, &RefreshError{Err: cause}, cause)
	assert.ErrorIs(t, &AuthError{Status: 401, Err: cause}, cause)
}
