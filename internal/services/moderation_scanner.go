package services

import "regexp"

// scanRule is one deterministic pattern class. Order matters: the first rule
// that matches supplies the rejection reason, so more specific classes sit
// before broader ones (an email must report as an email, not as the domain
// embedded in it).
type scanRule struct {
	reason string
	re     *regexp.Regexp
}

var scanRules = []scanRule{
	{"URL detected", regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)},
	{"Email detected", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"IP address detected", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{"Domain detected", regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9-]*\.(?:com|net|org|io|dev|ai|app|co|xyz|info|cloud)\b`)},
	{"User filesystem path detected", regexp.MustCompile(`(?:/home/|/Users/|[Cc]:\\Users\\)[A-Za-z0-9._-]+`)},
	{"API key pattern detected", regexp.MustCompile(`\b(?:sk|pk|rk)-[A-Za-z0-9]{20,}\b|(?i)\bbearer\s+[A-Za-z0-9._-]{20,}`)},
	{"Cloud credential detected", regexp.MustCompile(`\b(?:AKIA[0-9A-Z]{16}|AIza[0-9A-Za-z_-]{35}|ghp_[A-Za-z0-9]{36}|gho_[A-Za-z0-9]{36}|xox[baprs]-[A-Za-z0-9-]{10,})\b`)},
	{"Secret assignment detected", regexp.MustCompile(`(?i)\b(?:password|passwd|secret|api[_-]?key|access[_-]?token|private[_-]?key)\s*[:=]\s*\S+`)},
	{"Prompt injection pattern detected", regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous|prior)\s+instructions|disregard\s+(?:all\s+)?(?:previous|prior)|you\s+are\s+now\s+(?:a|an)\s|reveal\s+your\s+system\s+prompt|do\s+anything\s+now`)},
	{"Base64 blob detected", regexp.MustCompile(`[A-Za-z0-9+/]{64,}={0,2}`)},
}

// ScanContent runs the deterministic battery over title+content and returns
// every matching pattern class, in battery order. An empty result means the
// submission may proceed to semantic review.
func ScanContent(title, content string) []string {
	text := title + "\n" + content
	var flags []string
	for _, r := range scanRules {
		if r.re.MatchString(text) {
			flags = append(flags, r.reason)
		}
	}
	return flags
}
