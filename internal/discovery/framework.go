package discovery

import "strings"

// DetectFramework guesses the framework of a deployed tree from its file
// names. Heuristics only; feeds a monitoring label, nothing load-bearing.
func DetectFramework(keys []string) string {
	var hasChunk, hasJS, hasNext, hasAngularMain, hasVueApp bool

	for _, key := range keys {
		name := key
		if i := strings.LastIndex(key, "/"); i >= 0 {
			name = key[i+1:]
		}
		if strings.Contains(key, "_next") {
			hasNext = true
		}
		if strings.Contains(name, "chunk") {
			hasChunk = true
		}
		if strings.HasSuffix(name, ".js") {
			hasJS = true
			if strings.HasPrefix(name, "main.") {
				hasAngularMain = true
			}
			if strings.HasPrefix(name, "app.") {
				hasVueApp = true
			}
		}
	}

	switch {
	case hasChunk && hasJS:
		return "react"
	case hasNext:
		return "nextjs"
	case hasAngularMain:
		return "angular"
	case hasVueApp:
		return "vue"
	default:
		return "static"
	}
}
