package conversation

import (
	"regexp"
	"strings"
)

// GuardResult reports why a model answer must not reach the pet owner.
type GuardResult struct {
	Blocked bool
	Reasons []string
}

type leakPattern struct {
	re     *regexp.Regexp
	reason string
}

var leakPatterns = []leakPattern{
	{regexp.MustCompile(`(?i)my (system\s+)?prompt\s+(is|says|tells|instructs)`), "system_prompt"},
	{regexp.MustCompile(`(?i)(here are|these are|the following are)\s+(my )?(system )?(instructions|rules|guidelines)`), "rules_listing"},
	{regexp.MustCompile(`(?i)(api[_\s]?key|secret[_\s]?key|access[_\s]?token|bearer\s+token)\s*[:=]\s*\S+`), "credential"},
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}`), "openai_key"},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}`), "aws_key"},
	{regexp.MustCompile(`(?i)(postgres|postgresql|redis|rediss)://\S+`), "connection_string"},
}

// ScanAnswer checks an outbound answer for leaked configuration.
func ScanAnswer(text string) GuardResult {
	if strings.TrimSpace(text) == "" {
		return GuardResult{}
	}
	var res GuardResult
	for _, p := range leakPatterns {
		if p.re.MatchString(text) {
			res.Blocked = true
			res.Reasons = append(res.Reasons, p.reason)
		}
	}
	return res
}
