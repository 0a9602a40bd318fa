package providers

import "strings"

// botCheckFragments are message substrings the video platform emits when it
// refuses automated access. Matching is by content because the platform
// reports these as ordinary playability failures, not a dedicated status.
var botCheckFragments = []string{
	"confirm you're not a bot",
	"confirm you're not a robot",
	"sign in to confirm",
	"not a robot",
	"captcha",
	"unusual traffic",
}

// IsBotCheckMessage reports whether an upstream message is an explicit
// anti-automation response. These surface as a distinct blocked category
// because the caller's remedy is to back off and offer a manual path, not to
// retry.
func IsBotCheckMessage(message string) bool {
	lowered := strings.ToLower(message)
	for _, fragment := range botCheckFragments {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}
