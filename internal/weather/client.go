// Package weather polls OpenWeatherMap for the current conditions at one
// location and maps them to an ambient strip colour.
package weather

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://api.openweathermap.org"

// Location is either a city (optionally with a country code) or coordinates.
// The city wins when both are set.
type Location struct {
	City      string  `json:"city"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

func (l Location) query() url.Values {
	q := url.Values{}
	if l.City != "" {
		city := l.City
		if l.Country != "" {
			city += "," + l.Country
		}
		q.Set("q", city)
	} else {
		q.Set("lat", strconv.FormatFloat(l.Latitude, 'f', -1, 64))
		q.Set("lon", strconv.FormatFloat(l.Longitude, 'f', -1, 64))
	}
	return q
}

type Report struct {
	Temperature float64   `json:"temperature"` // °C
	Humidity    float64   `json:"humidity"`    // %
	Pressure    float64   `json:"pressure"`    // hPa
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UpdatedAt   time.Time `json:"lastUpdate"`
}

type owmResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	// Now stamps reports; time.Now when nil.
	Now func() time.Time
}

// Fetch requests the current weather in metric units.
func (c *Client) Fetch(ctx context.Context, loc Location) (Report, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	q := loc.query()
	q.Set("appid", c.APIKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return Report{}, errors.Wrap(err, "failed to build weather request")
	}

	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Report{}, errors.Wrap(err, "weather request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Report{}, errors.Wrap(err, "failed to read weather response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Report{}, errors.Errorf("weather request: unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var r owmResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Report{}, errors.Wrap(err, "failed to decode weather response")
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	rep := Report{
		Temperature: r.Main.Temp,
		Humidity:    r.Main.Humidity,
		Pressure:    r.Main.Pressure,
		Description: "Unknown",
		UpdatedAt:   now(),
	}
	if len(r.Weather) > 0 {
		rep.Description = r.Weather[0].Description
		rep.Icon = r.Weather[0].Icon
	}
	return rep, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
