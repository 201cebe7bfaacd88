package routing

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
)

var supportedLanguages = []language.Tag{
	language.Vietnamese,
	language.English,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// MatchLanguage picks the closest supported language for an Accept-Language
// style value. Vietnamese is the default.
func MatchLanguage(accept string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return language.Vietnamese
	}
	_, idx, _ := languageMatcher.Match(tags...)
	return supportedLanguages[idx]
}

// FormatDuration renders a travel time. From 60 minutes on the text carries
// hours and minutes, below that minutes only.
func FormatDuration(seconds float64, lang language.Tag) string {
	minutes := int(math.Round(seconds / 60))
	if minutes == 0 && seconds > 0 {
		minutes = 1
	}
	vi := lang == language.Vietnamese

	if minutes < 60 {
		if vi {
			return fmt.Sprintf("%d phút", minutes)
		}
		return plural(minutes, "minute")
	}

	hours, rest := minutes/60, minutes%60
	if vi {
		if rest == 0 {
			return fmt.Sprintf("%d giờ", hours)
		}
		return fmt.Sprintf("%d giờ %d phút", hours, rest)
	}
	if rest == 0 {
		return plural(hours, "hour")
	}
	return plural(hours, "hour") + " " + plural(rest, "minute")
}

// FormatDistance renders meters below one kilometer, kilometers above.
func FormatDistance(meters float64, _ language.Tag) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
