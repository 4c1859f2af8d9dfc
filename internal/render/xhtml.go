package render

import (
	"bytes"
	"html"
)

// xhtmlDocument wraps body into a standalone EPUB 3 content document.
func xhtmlDocument(title, lang string, body []byte) []byte {
	if lang == "" {
		lang = "en"
	}
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString("<!DOCTYPE html>\n")
	buf.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" lang="`)
	buf.WriteString(html.EscapeString(lang))
	buf.WriteString(`" xml:lang="`)
	buf.WriteString(html.EscapeString(lang))
	buf.WriteString("\">\n<head>\n<meta charset=\"UTF-8\"/>\n<title>")
	buf.WriteString(html.EscapeString(title))
	buf.WriteString("</title>\n</head>\n<body>\n")
	buf.Write(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes()
}
