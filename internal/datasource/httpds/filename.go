package httpds

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/zeebo/xxh3"
)

var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9.]+`)

// LocalName derives a filesystem-safe file name for a downloaded workbook.
// The last path segment is kept when it has an extension; otherwise the name
// is a hash of the URL plus defaultExt (e.g. ".xlsx"), which covers export
// endpoints such as ".../export?format=xlsx".
func LocalName(rawURL, defaultExt string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		base := path.Base(u.Path)
		if ext := path.Ext(base); ext != "" && ext != base {
			clean := strings.Trim(filenameCleaner.ReplaceAllString(base, "_"), "_")
			if clean != "" && clean != ext {
				return clean
			}
		}
	}
	return fmt.Sprintf("%016x%s", xxh3.HashString(rawURL), defaultExt)
}
