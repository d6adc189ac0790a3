// README: Itinerary document model as produced by the generation service.
package itinerary

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for DayPlan.Date.
const DateLayout = "2006-01-02"

type Itinerary struct {
	Days            []DayPlan `json:"days"`
	TotalCost       Number    `json:"total_cost"`
	Recommendations TextList  `json:"recommendations"`
}

type DayPlan struct {
	Date          string         `json:"date"`
	Activities    []Activity     `json:"activities"`
	Meals         []Meal         `json:"meals"`
	Accommodation *Accommodation `json:"accommodation,omitempty"`
	DailyCost     Number         `json:"daily_cost"`
}

type Activity struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Location    Location `json:"location"`
	Duration    Number   `json:"duration"`
	Cost        Number   `json:"cost"`
	Category    string   `json:"category"`
	Rating      *Number  `json:"rating,omitempty"`
}

type Meal struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Location Location `json:"location"`
	Cost     Number   `json:"cost"`
	Cuisine  string   `json:"cuisine"`
	Rating   *Number  `json:"rating,omitempty"`
}

type Accommodation struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Location     Location `json:"location"`
	CostPerNight Number   `json:"cost_per_night"`
	Rating       *Number  `json:"rating,omitempty"`
	Amenities    TextList `json:"amenities"`
}

type Location struct {
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	City        string       `json:"city"`
	Country     string       `json:"country"`
}

// Coordinates is a WGS84 point. A zero point counts as missing.
type Coordinates struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// HasCoordinates reports whether the location carries a usable point.
func (l Location) HasCoordinates() bool {
	return l.Coordinates != nil && (l.Coordinates.Lng != 0 || l.Coordinates.Lat != 0)
}

// DailyCostSum is the sum of the model-supplied daily costs. It is reported
// next to TotalCost, which is kept as the model returned it.
func (it *Itinerary) DailyCostSum() float64 {
	var sum float64
	for _, d := range it.Days {
		sum += d.DailyCost.Float64()
	}
	return sum
}

// ActivityCount returns the number of activities across all days.
func (it *Itinerary) ActivityCount() int {
	n := 0
	for _, d := range it.Days {
		n += len(d.Activities)
	}
	return n
}

// AlignDates rewrites each day's date to start+i.
func (it *Itinerary) AlignDates(start time.Time) {
	for i := range it.Days {
		it.Days[i].Date = start.AddDate(0, 0, i).Format(DateLayout)
	}
}

// Sanitize clamps costs and durations to zero or more and ratings to 0-5.
func (it *Itinerary) Sanitize() {
	if it.TotalCost < 0 {
		it.TotalCost = 0
	}
	for i := range it.Days {
		d := &it.Days[i]
		d.DailyCost = d.DailyCost.nonNegative()
		for j := range d.Activities {
			a := &d.Activities[j]
			a.Duration = a.Duration.nonNegative()
			a.Cost = a.Cost.nonNegative()
			a.Rating = clampRating(a.Rating)
		}
		for j := range d.Meals {
			m := &d.Meals[j]
			m.Cost = m.Cost.nonNegative()
			m.Rating = clampRating(m.Rating)
		}
		if d.Accommodation != nil {
			d.Accommodation.CostPerNight = d.Accommodation.CostPerNight.nonNegative()
			d.Accommodation.Rating = clampRating(d.Accommodation.Rating)
		}
	}
}

func clampRating(r *Number) *Number {
	if r == nil {
		return nil
	}
	v := *r
	switch {
	case v < 0:
		v = 0
	case v > 5:
		v = 5
	}
	return &v
}

var leadingNumeral = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Number decodes from a JSON number, a quoted numeral ("120", "¥80") or null.
// Strings without any digits decode as zero.
type Number float64

func (n Number) Float64() float64 { return float64(n) }

func (n Number) nonNegative() Number {
	if n < 0 {
		return 0
	}
	return n
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		m := leadingNumeral.FindString(strings.ReplaceAll(str, ",", ""))
		if m == "" {
			*n = 0
			return nil
		}
		s = m
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("itinerary: invalid number %s", s)
	}
	*n = Number(f)
	return nil
}

// TextList decodes an array of strings, tolerating a bare string and
// non-string elements (rendered as compact JSON).
type TextList []string

func (l *TextList) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*l = TextList{one}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(TextList, 0, len(items))
	for _, item := range items {
		var str string
		if err := json.Unmarshal(item, &str); err == nil {
			out = append(out, str)
			continue
		}
		out = append(out, strings.TrimSpace(string(item)))
	}
	*l = out
	return nil
}
