// Package downloader streams catalog images to disk.
//
// Images are fetched with a plain GET and copied through a fixed-size
// buffer into the store, which writes atomically. A non-200 status or a
// transport failure leaves no file behind.
package downloader
