package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-ledcloud/internal/render"
)

const sample = `{
  "weather": [{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}],
  "main": {"temp": 12.5, "feels_like": 11.9, "pressure": 1012, "humidity": 81},
  "name": "Lyon"
}`

var stamp = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newServer(t *testing.T, check func(r *http.Request)) (*httptest.Server, *int) {
	hits := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if check != nil {
			check(r)
		}
		if r.URL.Query().Get("appid") != "key" {
			http.Error(w, `{"cod":401,"message":"Invalid API key"}`, http.StatusUnauthorized)
			return
		}
		w.Write([]byte(sample))
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestFetchCity(t *testing.T) {
	srv, _ := newServer(t, func(r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "Lyon,FR", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
	})
	c := &Client{BaseURL: srv.URL, APIKey: "key", Now: func() time.Time { return stamp }}

	rep, err := c.Fetch(context.Background(), Location{City: "Lyon", Country: "FR"})
	require.NoError(t, err)
	assert.Equal(t, Report{
		Temperature: 12.5,
		Humidity:    81,
		Pressure:    1012,
		Description: "light rain",
		Icon:        "10d",
		UpdatedAt:   stamp,
	}, rep)
}

func TestFetchCoordinates(t *testing.T) {
	srv, _ := newServer(t, func(r *http.Request) {
		q := r.URL.Query()
		assert.Empty(t, q.Get("q"))
		assert.Equal(t, "45.76", q.Get("lat"))
		assert.Equal(t, "4.84", q.Get("lon"))
	})
	c := &Client{BaseURL: srv.URL, APIKey: "key"}
	_, err := c.Fetch(context.Background(), Location{Latitude: 45.76, Longitude: 4.84})
	require.NoError(t, err)
}

func TestFetchErrors(t *testing.T) {
	srv, _ := newServer(t, nil)

	_, err := (&Client{BaseURL: srv.URL, APIKey: "wrong"}).Fetch(context.Background(), Location{City: "Lyon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer bad.Close()
	_, err = (&Client{BaseURL: bad.URL}).Fetch(context.Background(), Location{City: "Lyon"})
	assert.Error(t, err)
}

func TestPollerKeepsLastReport(t *testing.T) {
	srv, hits := newServer(t, nil)
	c := &Client{BaseURL: srv.URL, APIKey: "key"}
	p := NewPoller(c, Location{City: "Lyon"}, zerolog.Nop())

	_, ok := p.Latest()
	assert.False(t, ok)

	require.NoError(t, p.Refresh(context.Background()))
	first, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, 12.5, first.Temperature)

	c.APIKey = "revoked"
	assert.Error(t, p.Refresh(context.Background()))
	kept, ok := p.Latest()
	assert.True(t, ok)
	assert.Equal(t, first, kept)
	assert.Equal(t, 2, *hits)
}

func TestPollerNoLocation(t *testing.T) {
	srv, hits := newServer(t, nil)
	p := NewPoller(&Client{BaseURL: srv.URL, APIKey: "key"}, Location{}, zerolog.Nop())
	assert.Error(t, p.Refresh(context.Background()))
	assert.Zero(t, *hits)

	p.SetLocation(Location{City: "Oslo", Country: "NO"})
	assert.Equal(t, "Oslo", p.Location().City)
	assert.NoError(t, p.Refresh(context.Background()))
}

func TestAmbientColor(t *testing.T) {
	assert.Equal(t, render.RGB(0x1E, 0x3C, 0xFF), AmbientColor(Report{Temperature: -8}))
	assert.Equal(t, render.RGB(0x1E, 0x3C, 0xFF), AmbientColor(Report{Temperature: 0}))
	assert.Equal(t, render.RGB(0xFF, 0x20, 0x00), AmbientColor(Report{Temperature: 41}))

	warm := AmbientColor(Report{Temperature: 20})
	assert.InDelta(t, 0xFF, int(warm.R()), 2)
	assert.InDelta(t, 0xB0, int(warm.G()), 2)
	assert.InDelta(t, 0x00, int(warm.B()), 2)

	// warmer readings shift from blue toward red
	cool := AmbientColor(Report{Temperature: 8})
	hot := AmbientColor(Report{Temperature: 30})
	assert.Greater(t, cool.B(), hot.B())
	assert.Greater(t, hot.R(), cool.R())
}
