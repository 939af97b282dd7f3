package site

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

type Content struct {
	Name    string        `yaml:"name" json:"name"`
	Menu    []MenuSection `yaml:"menu" json:"menu"`
	Hours   []Hours       `yaml:"hours" json:"hours"`
	Contact Contact       `yaml:"contact" json:"contact"`
}

type MenuSection struct {
	Name  string     `yaml:"name" json:"name"`
	Items []MenuItem `yaml:"items" json:"items"`
}

type MenuItem struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	PriceCents  int64    `yaml:"price_cents" json:"priceCents"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Hours is one opening interval. A day may appear more than once; days that do not appear
// are closed.
type Hours struct {
	Day   string `yaml:"day" json:"day"`
	Open  string `yaml:"open" json:"open"`
	Close string `yaml:"close" json:"close"`

	weekday  time.Weekday
	openMin  int
	closeMin int
}

type Contact struct {
	Address   string `yaml:"address" json:"address"`
	Phone     string `yaml:"phone" json:"phone"`
	Email     string `yaml:"email" json:"email"`
	Instagram string `yaml:"instagram,omitempty" json:"instagram,omitempty"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// LoadContent reads content from path, or the built-in content when path is empty.
func LoadContent(path string) (Content, error) {
	raw := defaultContent
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Content{}, fmt.Errorf("read site content: %w", err)
		}
		raw = b
	}
	return ParseContent(raw)
}

func ParseContent(raw []byte) (Content, error) {
	var c Content
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Content{}, fmt.Errorf("parse site content: %w", err)
	}
	for i := range c.Hours {
		if err := c.Hours[i].compile(); err != nil {
			return Content{}, fmt.Errorf("hours[%d]: %w", i, err)
		}
	}
	for _, s := range c.Menu {
		for _, it := range s.Items {
			if it.PriceCents < 0 {
				return Content{}, fmt.Errorf("menu item %q: negative price", it.Name)
			}
		}
	}
	return c, nil
}

func (h *Hours) compile() error {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(h.Day))]
	if !ok {
		return fmt.Errorf("unknown day %q", h.Day)
	}
	open, err := minutesOf(h.Open)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	closeAt, err := minutesOf(h.Close)
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if closeAt <= open {
		return fmt.Errorf("close %s must be after open %s", h.Close, h.Open)
	}
	h.weekday, h.openMin, h.closeMin = wd, open, closeAt
	return nil
}

func minutesOf(hhmm string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// OpenAt reports whether the café is open at t, evaluated in loc.
func (c Content) OpenAt(t time.Time, loc *time.Location) bool {
	lt := t.In(loc)
	minute := lt.Hour()*60 + lt.Minute()
	for _, h := range c.Hours {
		if h.weekday == lt.Weekday() && minute >= h.openMin && minute < h.closeMin {
			return true
		}
	}
	return false
}
