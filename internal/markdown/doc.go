// Package markdown implements the content ingestion side of the site build:
// discovering Markdown files, extracting front matter, and rendering bodies
// into HTML with goldmark.
package markdown
