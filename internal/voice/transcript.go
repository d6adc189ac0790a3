package voice

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"wayfarer/internal/itinerary"
)

// Draft is the part of a planning request that could be recognised from speech.
// Zero fields were not recognised.
type Draft struct {
	Destination  string               `json:"destination,omitempty"`
	StartDate    string               `json:"start_date,omitempty"`
	EndDate      string               `json:"end_date,omitempty"`
	Budget       float64              `json:"budget,omitempty"`
	Participants int                  `json:"participants,omitempty"`
	Interests    []itinerary.Interest `json:"interests,omitempty"`
}

func (d Draft) Empty() bool {
	return d.Destination == "" && d.StartDate == "" && d.Budget == 0 &&
		d.Participants == 0 && len(d.Interests) == 0
}

// Apply fills fields of req that are still empty. Interests are merged.
func (d Draft) Apply(req *itinerary.PlanningRequest) {
	if req.Destination == "" {
		req.Destination = d.Destination
	}
	if req.StartDate == "" && req.EndDate == "" {
		req.StartDate, req.EndDate = d.StartDate, d.EndDate
	}
	if req.Budget == 0 {
		req.Budget = d.Budget
	}
	if req.Participants == 0 {
		req.Participants = d.Participants
	}
	for _, in := range d.Interests {
		if !containsInterest(req.Interests, in) {
			req.Interests = append(req.Interests, in)
		}
	}
}

var (
	destinationRe  = regexp.MustCompile(`去([\x{4e00}-\x{9fa5}A-Za-z\s]+?)(?:玩|旅游|旅行|吧|。|，|,|!|$)`)
	peopleDigitRe  = regexp.MustCompile(`(\d+)\s*个?人`)
	peopleWordRe   = regexp.MustCompile(`([一两俩二三四五六七八九十])\s*个?人`)
	monthRangeRe   = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日?到(\d{1,2})月(\d{1,2})日?`)
	isoRangeRe     = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})\s*(?:到|至|~)\s*(\d{4})-(\d{1,2})-(\d{1,2})`)
	daysDigitRe    = regexp.MustCompile(`(\d+)\s*天`)
	daysWordRe     = regexp.MustCompile(`([一两二三四五六七八九十])\s*天`)
	budgetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`预算是?\s*([\d.]+)\s*([万千块元])`),
		regexp.MustCompile(`预算是?\s*([一二两三四五六七八九十百千万]+)`),
		regexp.MustCompile(`([\d.]+)\s*([万千])[块元]?`),
		regexp.MustCompile(`([\d.]+)\s*([块元])`),
		regexp.MustCompile(`([一二两三四五六七八九十]+)([万千])[块元]?`),
	}
)

var numerals = map[rune]int{
	'一': 1, '二': 2, '两': 2, '俩': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9,
}

var interestKeywords = []struct {
	keyword  string
	interest itinerary.Interest
}{
	{"美食", itinerary.InterestFood},
	{"吃", itinerary.InterestFood},
	{"文化", itinerary.InterestCulture},
	{"自然", itinerary.InterestNature},
	{"风景", itinerary.InterestNature},
	{"历史", itinerary.InterestHistory},
	{"古迹", itinerary.InterestHistory},
	{"购物", itinerary.InterestShopping},
	{"买", itinerary.InterestShopping},
	{"夜生活", itinerary.InterestNightlife},
	{"酒吧", itinerary.InterestNightlife},
	{"冒险", itinerary.InterestAdventure},
	{"刺激", itinerary.InterestAdventure},
	{"放松", itinerary.InterestRelaxation},
	{"休闲", itinerary.InterestRelaxation},
	{"动漫", itinerary.InterestAnime},
	{"艺术", itinerary.InterestArt},
}

// ParseTranscript extracts a planning draft from a spoken sentence such as
// "我想去北京玩5天，预算1万元，两个人，喜欢历史文化". Relative day counts start
// the day after now.
func ParseTranscript(text string, now time.Time) Draft {
	var d Draft
	if m := destinationRe.FindStringSubmatch(text); m != nil {
		d.Destination = strings.TrimSpace(m[1])
	}
	d.Participants = parseParticipants(text)
	d.Budget = parseBudget(text)
	d.StartDate, d.EndDate = parseDates(text, now)
	for _, k := range interestKeywords {
		if strings.Contains(text, k.keyword) && !containsInterest(d.Interests, k.interest) {
			d.Interests = append(d.Interests, k.interest)
		}
	}
	return d
}

func parseParticipants(text string) int {
	if m := peopleDigitRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	if m := peopleWordRe.FindStringSubmatch(text); m != nil {
		return chineseNumber(m[1])
	}
	return 0
}

func parseBudget(text string) float64 {
	for _, re := range budgetPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var val float64
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			val = v
		} else {
			val = float64(chineseNumber(m[1]))
		}
		if len(m) > 2 {
			val *= unitFactor(m[2])
		}
		if val > 0 {
			return val
		}
	}
	return 0
}

func unitFactor(unit string) float64 {
	switch unit {
	case "万":
		return 10000
	case "千":
		return 1000
	}
	return 1
}

func parseDates(text string, now time.Time) (string, string) {
	if m := isoRangeRe.FindStringSubmatch(text); m != nil {
		start, ok1 := civilDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
		end, ok2 := civilDate(atoi(m[4]), atoi(m[5]), atoi(m[6]))
		if ok1 && ok2 && end.After(start) {
			return start.Format(itinerary.DateLayout), end.Format(itinerary.DateLayout)
		}
		return "", ""
	}
	if m := monthRangeRe.FindStringSubmatch(text); m != nil {
		year := now.Year()
		start, ok1 := civilDate(year, atoi(m[1]), atoi(m[2]))
		end, ok2 := civilDate(year, atoi(m[3]), atoi(m[4]))
		if ok1 && ok2 && end.After(start) {
			return start.Format(itinerary.DateLayout), end.Format(itinerary.DateLayout)
		}
		return "", ""
	}

	n := 0
	if m := daysDigitRe.FindStringSubmatch(text); m != nil {
		n = atoi(m[1])
	} else if m := daysWordRe.FindStringSubmatch(text); m != nil {
		n = chineseNumber(m[1])
	}
	if n <= 0 {
		return "", ""
	}
	start := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, n-1)
	return start.Format(itinerary.DateLayout), end.Format(itinerary.DateLayout)
}

// civilDate rejects dates that time.Date would normalise, such as 2月30日.
func civilDate(y, m, d int) (time.Time, bool) {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t, t.Year() == y && int(t.Month()) == m && t.Day() == d
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// chineseNumber reads numerals like 三, 十二, 三千五百 or 一万 and returns 0
// for anything it does not understand.
func chineseNumber(s string) int {
	total, section, digit := 0, 0, 0
	for _, r := range s {
		if v, ok := numerals[r]; ok {
			digit = v
			continue
		}
		unit := 0
		switch r {
		case '十':
			unit = 10
		case '百':
			unit = 100
		case '千':
			unit = 1000
		case '万':
			total += (section + digit) * 10000
			section, digit = 0, 0
			continue
		default:
			return 0
		}
		if digit == 0 {
			digit = 1
		}
		section += digit * unit
		digit = 0
	}
	return total + section + digit
}

func containsInterest(list []itinerary.Interest, in itinerary.Interest) bool {
	for _, v := range list {
		if v == in {
			return true
		}
	}
	return false
}
