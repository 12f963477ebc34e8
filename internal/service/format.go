package service

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const NotAvailable = "N/A"

var numberPrinter = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators.
func FormatCount(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}

func FormatPercent(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64) + "%"
}

// HumanizeEventName turns "widgetShown" or "widget_shown" into "Widget Shown".
func HumanizeEventName(name string) string {
	var b strings.Builder
	prevLower := false
	upperNext := true
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || r == ' ':
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			upperNext = true
			prevLower = false
			continue
		case unicode.IsUpper(r) && prevLower:
			b.WriteByte(' ')
		}
		if upperNext {
			r = unicode.ToUpper(r)
			upperNext = false
		}
		b.WriteRune(r)
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// MaskKey keeps the first head and last tail characters of an API key.
func MaskKey(key string, head, tail int) string {
	if key == "" {
		return NotAvailable
	}
	if len(key) <= head+tail {
		return key
	}
	return key[:head] + "..." + key[len(key)-tail:]
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.Format("Jan 2, 2006")
}

func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.Format("Jan 2, 2006 15:04")
}

// FormatSeconds renders an average duration such as "12.5s".
func FormatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "s"
}
