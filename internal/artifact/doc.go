// Package artifact renders completed gallery uploads into shareable files.
//
// A completed upload produces two artifacts: a BBCode text file rendered from
// a placeholder template, and a JSON file carrying the full result record so
// the BBCode can be regenerated later with a different template. Templates
// are plain text files in the configured templates directory; a built-in
// default is used when no template file matches.
package artifact
