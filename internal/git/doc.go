// Package git reads repository state used to stamp builds, such as the
// abbreviated HEAD commit of the project a book lives in.
package git
