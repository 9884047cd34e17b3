package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/seiflotfy/pairhuff"
	"github.com/seiflotfy/pairhuff/internal/report"
	"github.com/seiflotfy/pairhuff/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	st, err := store.Open(filepath.Join(t.TempDir(), "blobs.db"), store.WithLogger(log))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ts := httptest.NewServer(New(pairhuff.NewEncoder(), st, log))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestEncodeDecode(t *testing.T) {
	ts := newTestServer(t)
	data := []byte("AABBAACC")

	resp, packed := do(t, http.MethodPost, ts.URL+"/v1/encode", data)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(requestIDHeader))
	require.Equal(t, []byte{0, 0, 0, 11}, packed[:4])

	resp, out := do(t, http.MethodPost, ts.URL+"/v1/decode", packed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, data, out)
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/encode", bytes.NewReader([]byte("zz")))
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
}

func TestEncodeRejectsEmptyBody(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, http.MethodPost, ts.URL+"/v1/encode", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var msg struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &msg))
	require.Contains(t, msg.Error, "invalid input")
}

func TestDecodeRejectsCorruptContainer(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := do(t, http.MethodPost, ts.URL+"/v1/decode", []byte{0, 0, 0, 3, 1, 'a'})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/v1/decode", []byte{0, 0, 0, 3, 1, 'a', 'a', 8, 0})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPutBlobRejectsOddLength(t *testing.T) {
	ts := newTestServer(t)
	data := []byte("AABBC")

	resp, body := do(t, http.MethodPut, ts.URL+"/v1/blobs/odd.bin", data)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(body), "odd length")

	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/blobs/"+report.Digest(data), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBlobLifecycle(t *testing.T) {
	ts := newTestServer(t)
	data := bytes.Repeat([]byte("hello, pairs! "), 20)

	resp, body := do(t, http.MethodPut, ts.URL+"/v1/blobs/greeting.txt", data)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var e store.Entry
	require.NoError(t, json.Unmarshal(body, &e))
	require.Equal(t, "greeting.txt", e.Name)
	require.Equal(t, report.Digest(data), e.Digest)

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/blobs/"+e.Digest, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, data, body)

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/blobs/"+e.Digest+"/stat", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st store.Entry
	require.NoError(t, json.Unmarshal(body, &st))
	require.Equal(t, e.ContainerBytes, st.ContainerBytes)

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/blobs/"+e.Digest+"/container", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decoded, err := pairhuff.Decompress(body)
	require.NoError(t, err)
	require.Equal(t, data, decoded)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/v1/blobs/"+e.Digest, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/blobs/"+e.Digest, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
