package analysis

import (
	"path"
	"strings"
)

// Signal is a heuristic hint derived from a file path alone, without
// reading content. Signals are ephemeral: they feed file selection and the
// fallback generator, then are discarded with the scan that produced them.
type Signal struct {
	Path   string
	Tag    string
	Weight float64
}

// signalRule matches path substrings or extensions to a tag. Multiple rules
// may fire for one path.
type signalRule struct {
	tag        string
	weight     float64
	substrings []string
	extensions []string
}

// Architectural and domain hints, matched against the lowercased path.
// Order is fixed so scans are deterministic.
var signalRules = []signalRule{
	{tag: "cache", weight: 2.0, substrings: []string{"cache", "redis", "memcache"}},
	{tag: "latency", weight: 2.0, substrings: []string{"latency", "timing", "profil", "benchmark"}},
	{tag: "auth", weight: 2.0, substrings: []string{"auth", "login", "session", "oauth", "jwt"}},
	{tag: "payments", weight: 2.5, substrings: []string{"payment", "billing", "checkout", "stripe", "invoice"}},
	{tag: "queue", weight: 1.5, substrings: []string{"queue", "worker", "job", "task", "broker"}},
	{tag: "database", weight: 1.5, substrings: []string{"migration", "schema", "model", "repository", "/db/", "sql"}},
	{tag: "api", weight: 1.5, substrings: []string{"handler", "router", "controller", "endpoint", "/api/", "route"}},
	{tag: "frontend", weight: 1.0, substrings: []string{"component", "page", "view", "/ui/"}},
	{tag: "search", weight: 1.5, substrings: []string{"search", "index", "query"}},
	{tag: "email", weight: 1.5, substrings: []string{"mail", "smtp", "notification"}},
	{tag: "websocket", weight: 1.5, substrings: []string{"websocket", "/ws", "socket", "realtime"}},
	{tag: "subscription", weight: 2.0, substrings: []string{"subscription", "plan", "tier", "quota"}},
	{tag: "upload", weight: 1.5, substrings: []string{"upload", "storage", "/s3", "bucket", "attachment"}},
	{tag: "testing", weight: 0.5, substrings: []string{"_test.", ".test.", ".spec.", "/tests/"}},
	{tag: "deploy", weight: 1.0, substrings: []string{"dockerfile", "docker-compose", "deploy", ".github/workflows", "helm", "terraform"}},
	{tag: "config", weight: 1.0, substrings: []string{"config", "settings", ".env.example"}},
	{tag: "ml", weight: 2.0, substrings: []string{"model/train", "inference", "embedding", "llm", "prompt"}},

	// Language markers from extensions
	{tag: "lang:go", weight: 0.5, extensions: []string{".go"}},
	{tag: "lang:python", weight: 0.5, extensions: []string{".py"}},
	{tag: "lang:javascript", weight: 0.5, extensions: []string{".js", ".jsx", ".ts", ".tsx"}},
	{tag: "lang:java", weight: 0.5, extensions: []string{".java", ".kt"}},
	{tag: "lang:ruby", weight: 0.5, extensions: []string{".rb"}},
	{tag: "lang:rust", weight: 0.5, extensions: []string{".rs"}},
	{tag: "lang:csharp", weight: 0.5, extensions: []string{".cs"}},
	{tag: "lang:php", weight: 0.5, extensions: []string{".php"}},
}

// ScanSignals derives Signals from a flat list of repository file paths.
// Pure function: no I/O, empty input yields an empty scan.
func ScanSignals(paths []string) []Signal {
	var signals []Signal
	for _, p := range paths {
		lower := strings.ToLower(p)
		ext := strings.ToLower(path.Ext(p))

		for _, rule := range signalRules {
			matched := false
			for _, sub := range rule.substrings {
				if strings.Contains(lower, sub) {
					matched = true
					break
				}
			}
			if !matched {
				for _, e := range rule.extensions {
					if ext == e {
						matched = true
						break
					}
				}
			}
			if matched {
				signals = append(signals, Signal{Path: p, Tag: rule.tag, Weight: rule.weight})
			}
		}
	}
	return signals
}

// SignalTags returns the distinct tags present in a scan, in first-seen
// order
func SignalTags(signals []Signal) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, s := range signals {
		if !seen[s.Tag] {
			seen[s.Tag] = true
			tags = append(tags, s.Tag)
		}
	}
	return tags
}
