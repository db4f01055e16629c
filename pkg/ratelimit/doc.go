// Package ratelimit spaces out requests to the catalog API.
//
// The harvester needs only one guarantee: at least N between two requests of
// the same kind. Interval provides it on top of go.uber.org/ratelimit with
// slack disabled, so an idle period never turns into a burst.
//
// Usage:
//
//	pages := ratelimit.NewInterval(time.Second)
//	for {
//	    if err := pages.Wait(ctx); err != nil {
//	        return err
//	    }
//	    // fetch the next page
//	}
package ratelimit
