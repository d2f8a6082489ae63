// Package sanitize detects and redacts sensitive values before any content
// leaves the process. Detection of personal data or credentials is a hard
// block: even the redacted form must not be sent to an external provider.
//
// Block reasons are rule identifiers only. The matched text never appears in
// errors, logs, or responses.
package sanitize

import (
	"regexp"
	"sort"

	dErrors "riskgate/pkg/domain-errors"
)

var (
	emailRE      = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	phoneRE      = regexp.MustCompile(`\b(?:(?:\+?\d{1,3}[\s.-]+)?(?:\(\d{2,4}\)[\s.-]+)?\d{3,4}[\s.-]+\d{4})\b`)
	privateKeyRE = regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`)
	openaiKeyRE  = regexp.MustCompile(`\bsk-[A-Za-z0-9]{20,}\b`)
	openaiKey2RE = regexp.MustCompile(`\bsk-(?:live|test)-[A-Za-z0-9]{10,}\b`)
	awsKeyRE     = regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)
	slackTokenRE = regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`)
	googleKeyRE  = regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{30,}\b`)
	bearerRE     = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-\._~\+/]+=*\b`)
)

// blockRule names a detector whose match forbids any outbound AI call.
type blockRule struct {
	reason  string
	pattern *regexp.Regexp
}

// blockRules are the do-not-send detectors, checked against the original
// text before any redaction happens.
var blockRules = []blockRule{
	{"email", emailRE},
	{"phone", phoneRE},
	{"private_key", privateKeyRE},
	{"openai_api_key", openaiKeyRE},
	{"openai_api_key", openaiKey2RE},
	{"aws_access_key", awsKeyRE},
	{"slack_token", slackTokenRE},
	{"google_api_key", googleKeyRE},
	{"bearer_token", bearerRE},
}

// redaction pairs a pattern with its replacement placeholder.
type redaction struct {
	label       string
	pattern     *regexp.Regexp
	replacement string
}

var redactions = []redaction{
	{"email", emailRE, "[REDACTED_EMAIL]"},
	{"phone", phoneRE, "[REDACTED_PHONE]"},
	{"api_key", openaiKeyRE, "[REDACTED_API_KEY]"},
	{"api_key", openaiKey2RE, "[REDACTED_API_KEY]"},
	{"aws_access_key", awsKeyRE, "[REDACTED_AWS_ACCESS_KEY]"},
	{"slack_token", slackTokenRE, "[REDACTED_SLACK_TOKEN]"},
	{"google_api_key", googleKeyRE, "[REDACTED_GOOGLE_API_KEY]"},
	{"bearer_token", bearerRE, "Bearer [REDACTED_TOKEN]"},
}

// Result is the outcome of sanitizing a document.
type Result struct {
	Sanitized    map[string]string
	Redactions   []string // sorted, unique labels of applied redactions
	Blocked      bool
	BlockReasons []string // sorted, unique rule identifiers
}

// SanitizeText redacts a single string and reports which block rules fired.
func SanitizeText(text string) (sanitized string, redacted, blockReasons []string) {
	for _, rule := range blockRules {
		if rule.pattern.MatchString(text) {
			blockReasons = append(blockReasons, rule.reason)
		}
	}
	for _, r := range redactions {
		if r.pattern.MatchString(text) {
			redacted = append(redacted, r.label)
			text = r.pattern.ReplaceAllString(text, r.replacement)
		}
	}
	return text, redacted, blockReasons
}

// Sanitize walks every value of the document, redacting matches and
// collecting block reasons. Keys are not inspected.
func Sanitize(doc map[string]string) Result {
	out := make(map[string]string, len(doc))
	redactedSet := map[string]struct{}{}
	reasonSet := map[string]struct{}{}

	for k, v := range doc {
		sanitized, redacted, reasons := SanitizeText(v)
		out[k] = sanitized
		for _, r := range redacted {
			redactedSet[r] = struct{}{}
		}
		for _, r := range reasons {
			reasonSet[r] = struct{}{}
		}
	}

	return Result{
		Sanitized:    out,
		Redactions:   sortedKeys(redactedSet),
		Blocked:      len(reasonSet) > 0,
		BlockReasons: sortedKeys(reasonSet),
	}
}

// Enforce sanitizes the document and fails when any block rule fired. The
// returned error carries the rule identifiers as reasons; it never carries
// the flagged values.
func Enforce(doc map[string]string) (map[string]string, error) {
	result := Sanitize(doc)
	if result.Blocked {
		return nil, dErrors.New(dErrors.CodeSafetyBlocked,
			"sensitive data detected; refusing outbound AI request").
			WithReasons(result.BlockReasons...)
	}
	return result.Sanitized, nil
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
