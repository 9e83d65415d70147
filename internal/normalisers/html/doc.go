// Package html provides a Normaliser for HTML pages such as published
// guidelines. Page furniture is removed with goquery and the remaining body is
// converted to Markdown and then to plain text.
package html
