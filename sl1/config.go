package sl1

import (
	"fmt"
	"io"

	"gopkg.in/ini.v1"
)

// Config holds the job settings from config.ini.
type Config struct {
	JobDir       string
	ExpTime      float32 // in seconds
	ExpTimeFirst float32 // in seconds
	LayerHeight  float32 // in mm
	NumFade      int
	NumFast      int
	NumSlow      int
}

// NumLayers returns the number of layers in the job.
func (c *Config) NumLayers() int {
	return c.NumSlow + c.NumFast
}

// ExposureTime returns the exposure of layer index: the first NumSlow
// layers get ExpTimeFirst, the next NumFade fade linearly toward
// ExpTime, and the rest get ExpTime.
func (c *Config) ExposureTime(index int) float32 {
	switch {
	case index < c.NumSlow:
		return c.ExpTimeFirst
	case index < c.NumSlow+c.NumFade:
		fade := float32(index-c.NumSlow) / float32(c.NumFade)
		return c.ExpTime*fade + c.ExpTimeFirst*(1-fade)
	}
	return c.ExpTime
}

// ParseConfig parses config.ini text.
func ParseConfig(src []byte) (*Config, error) {
	f, err := ini.Load(src)
	if err != nil {
		return nil, fmt.Errorf("sl1: %v: %w", configName, err)
	}
	sec := f.Section("")

	c := &Config{}
	if !sec.HasKey("jobDir") {
		return nil, fmt.Errorf("sl1: %v: missing jobDir", configName)
	}
	c.JobDir = sec.Key("jobDir").String()

	floats := []struct {
		key string
		v   *float32
	}{
		{"expTime", &c.ExpTime},
		{"expTimeFirst", &c.ExpTimeFirst},
		{"layerHeight", &c.LayerHeight},
	}
	for _, fl := range floats {
		if !sec.HasKey(fl.key) {
			return nil, fmt.Errorf("sl1: %v: missing %v", configName, fl.key)
		}
		v, err := sec.Key(fl.key).Float64()
		if err != nil {
			return nil, fmt.Errorf("sl1: %v: %v: %w", configName, fl.key, err)
		}
		*fl.v = float32(v)
	}

	ints := []struct {
		key string
		v   *int
	}{
		{"numFade", &c.NumFade},
		{"numFast", &c.NumFast},
		{"numSlow", &c.NumSlow},
	}
	for _, in := range ints {
		if !sec.HasKey(in.key) {
			return nil, fmt.Errorf("sl1: %v: missing %v", configName, in.key)
		}
		v, err := sec.Key(in.key).Int()
		if err != nil {
			return nil, fmt.Errorf("sl1: %v: %v: %w", configName, in.key, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("sl1: %v: %v must not be negative, got %v", configName, in.key, v)
		}
		*in.v = v
	}

	return c, nil
}

// WriteTo writes c as config.ini text.
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	f := ini.Empty()
	sec := f.Section("")
	for _, kv := range [][2]string{
		{"jobDir", c.JobDir},
		{"expTime", fmt.Sprint(c.ExpTime)},
		{"expTimeFirst", fmt.Sprint(c.ExpTimeFirst)},
		{"layerHeight", fmt.Sprint(c.LayerHeight)},
		{"numFade", fmt.Sprint(c.NumFade)},
		{"numFast", fmt.Sprint(c.NumFast)},
		{"numSlow", fmt.Sprint(c.NumSlow)},
	} {
		if _, err := sec.NewKey(kv[0], kv[1]); err != nil {
			return 0, err
		}
	}
	return f.WriteTo(w)
}
