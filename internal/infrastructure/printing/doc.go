// Package printing renders order sheets to PDF.
//
// An OrderSheet is turned into HTML with html/template and printed to A4 by
// a headless Chrome instance driven through chromedp. Rendering is CPU heavy
// and is meant to run inside the worker pool.
package printing
