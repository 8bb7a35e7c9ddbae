package distance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cristianortiz/gridshare/internal/shared/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCalculator(t *testing.T, handler http.HandlerFunc, key string) *MatrixCalculator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := httpclient.New(httpclient.Config{Name: "distance-test", Timeout: time.Second})
	return NewMatrixCalculator(client, srv.URL, key)
}

func TestDistancesDecodesElementsInOrder(t *testing.T) {
	calc := newCalculator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "200 Jasper Ave, Edmonton, Alberta, Canada", r.URL.Query().Get("origins"))
		assert.Equal(t, "A|B", r.URL.Query().Get("destinations"))
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"rows": [{"elements": [
				{"status": "OK", "distance": {"text": "2.3 km", "value": 2300}, "duration": {"text": "6 mins", "value": 360}},
				{"status": "NOT_FOUND"}
			]}]
		}`))
	}, "k")

	got, err := calc.Distances(context.Background(), "200 Jasper Ave, Edmonton, Alberta, Canada", []string{"A", "B"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "OK", got[0].Status)
	assert.Equal(t, int64(2300), got[0].Meters)
	assert.Equal(t, "2.3 km", got[0].Text)
	assert.Equal(t, int64(360), got[0].DurationSeconds)
	assert.Equal(t, "NOT_FOUND", got[1].Status)
	assert.Zero(t, got[1].Meters)
}

func TestDistancesFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
		"request denied": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key","rows":[]}`))
		},
		"no rows": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"OK","rows":[]}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			calc := newCalculator(t, handler, "k")
			_, err := calc.Distances(context.Background(), "o", []string{"d"})
			assert.Error(t, err)
		})
	}
}

func TestDistancesWithoutKey(t *testing.T) {
	calc := newCalculator(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called without a key")
	}, "")
	_, err := calc.Distances(context.Background(), "o", []string{"d"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
