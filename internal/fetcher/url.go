package fetcher

import (
	"fmt"
	"strings"
)

// PageURL derives the address of a listing page. The catalog serves page 1 at
// the base URL itself and later pages under /page/<n>/.
func PageURL(base string, page int) string {
	if page <= 1 {
		return base
	}
	return fmt.Sprintf("%s/page/%d/", strings.TrimRight(base, "/"), page)
}
