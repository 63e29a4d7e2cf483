package fetcher

import "fmt"

// PageError marks a failed page fetch. It carries the page index so callers
// can log and count the failure; it never signals the end of the catalog.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}
