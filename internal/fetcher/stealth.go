package fetcher

import (
	"math/rand"
	"strings"
)

// UserAgents is a pool of current desktop browser identities. Google's
// preview endpoints serve full pages to anything that looks like a
// browser and captchas to anything that doesn't.
var UserAgents = []string{
	// Chrome
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	// Firefox
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:132.0) Gecko/20100101 Firefox/132.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:132.0) Gecko/20100101 Firefox/132.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:132.0) Gecko/20100101 Firefox/132.0",
	// Safari
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	// Edge
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
}

// AcceptLanguages is the pool of Accept-Language values to rotate
var AcceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9,en-US;q=0.8",
	"en-US,en;q=0.9,es;q=0.8",
	"en-US,en;q=0.9,de;q=0.8",
	"en,en-US;q=0.9",
}

// RandomUserAgent returns one identity from the pool
func RandomUserAgent() string {
	return UserAgents[rand.Intn(len(UserAgents))]
}

// RandomAcceptLanguage draws one value from the pool
func RandomAcceptLanguage() string {
	return AcceptLanguages[rand.Intn(len(AcceptLanguages))]
}

// StealthHeaders builds the header set a real browser would send when
// navigating to a document. Client-hint headers are derived from the
// user agent, so the platform and brand they claim never contradict it.
func StealthHeaders(userAgent string) map[string]string {
	if userAgent == "" {
		userAgent = RandomUserAgent()
	}

	headers := map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           RandomAcceptLanguage(),
		"Accept-Encoding":           "gzip, deflate, br",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Upgrade-Insecure-Requests": "1",
	}

	// Only Chromium browsers send client hints
	if isChromium(userAgent) {
		headers["Sec-CH-UA"] = brandHint(userAgent)
		headers["Sec-CH-UA-Mobile"] = "?0"
		headers["Sec-CH-UA-Platform"] = platformHint(userAgent)
	}

	return headers
}

// isChromium reports whether the user agent belongs to a Chromium-based
// browser
func isChromium(userAgent string) bool {
	return strings.Contains(userAgent, "Chrome") || strings.Contains(userAgent, "Chromium")
}

// brandHint returns the Sec-CH-UA value matching the user agent's brand
func brandHint(userAgent string) string {
	v := chromeMajor(userAgent)
	if strings.Contains(userAgent, "Edg/") {
		return `"Microsoft Edge";v="` + v + `", "Chromium";v="` + v + `", "Not_A Brand";v="24"`
	}
	return `"Google Chrome";v="` + v + `", "Chromium";v="` + v + `", "Not_A Brand";v="24"`
}

// chromeMajor extracts the major version from a Chrome user agent
func chromeMajor(userAgent string) string {
	_, rest, ok := strings.Cut(userAgent, "Chrome/")
	if !ok {
		return "131"
	}
	major, _, _ := strings.Cut(rest, ".")
	return major
}

// platformHint returns the Sec-CH-UA-Platform value the same browser
// would send
func platformHint(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Windows"):
		return `"Windows"`
	case strings.Contains(userAgent, "Macintosh"):
		return `"macOS"`
	default:
		return `"Linux"`
	}
}
