// Package compiler builds one target of a book into an unpacked EPUB
// directory.
//
// A Compile walks the target's table of contents, then its extra files and
// cover image, resolving every content unit to a source and a destination
// below OEBPS/. Units are rendered, copied or downscaled, and written only
// when their bytes change. Navigation, the package document, mimetype and
// META-INF files are generated last, after which the build directory is
// reconciled so it mirrors exactly the files of this run.
//
// The optional staleness cache lets unchanged text sources skip rendering,
// including sources whose template includes are unchanged.
package compiler
