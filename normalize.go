package blockhtml

import "strings"

// NormalizeURL prefixes url with "http://" unless the substring "http"
// already occurs anywhere in it. The check is purely syntactic: the URL is
// not parsed, and "example.com/http" is left as is.
func NormalizeURL(url string) string {
	if !strings.Contains(url, "http") {
		return "http://" + url
	}
	return url
}
