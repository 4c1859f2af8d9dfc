// Package book models a book project: content units (File), targets with
// their table of contents, and the YAML bookspec they are loaded from.
package book
