package utils

import (
	"sort"
	"strconv"
	"strings"
)

// langPref is one entry of an Accept-Language header.
type langPref struct {
	tag string
	q   float64
}

// parseAcceptLanguage splits a header such as "de-AT,de;q=0.9,en;q=0.5" into
// tags ordered by descending quality. Entries with q=0 are dropped.
func parseAcceptLanguage(header string) []langPref {
	var out []langPref
	for _, part := range strings.Split(header, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		pref := langPref{tag: p, q: 1}
		if semi := strings.Index(p, ";"); semi >= 0 {
			pref.tag = strings.TrimSpace(p[:semi])
			for _, param := range strings.Split(p[semi+1:], ";") {
				k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok || strings.TrimSpace(k) != "q" {
					continue
				}
				if q, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					pref.q = q
				}
			}
		}
		if pref.q <= 0 || pref.tag == "" {
			continue
		}
		out = append(out, pref)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].q > out[j].q })
	return out
}

// DetermineLocale picks the locale for a request: an explicit query value
// first, then the Accept-Language header, then def. Regional tags match their
// base language ("de-CH" -> "de"). The result is always one of supported
// unless supported is empty.
func DetermineLocale(queryLang, acceptLang string, supported []string, def string) string {
	sup := make(map[string]struct{}, len(supported))
	for _, s := range supported {
		sup[strings.ToLower(s)] = struct{}{}
	}
	pick := func(lang string) (string, bool) {
		l := strings.ToLower(strings.TrimSpace(lang))
		if l == "" {
			return "", false
		}
		if _, ok := sup[l]; ok {
			return l, true
		}
		if i := strings.IndexAny(l, "-_"); i > 0 {
			if _, ok := sup[l[:i]]; ok {
				return l[:i], true
			}
		}
		return "", false
	}

	if v, ok := pick(queryLang); ok {
		return v
	}
	for _, pref := range parseAcceptLanguage(acceptLang) {
		if v, ok := pick(pref.tag); ok {
			return v
		}
	}
	if v, ok := pick(def); ok {
		return v
	}
	if len(supported) > 0 {
		return strings.ToLower(supported[0])
	}
	return "en"
}
