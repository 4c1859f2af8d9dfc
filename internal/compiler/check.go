package compiler

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
	"git.home.luguber.info/inful/bookbuilder/internal/observability"
)

// check parses every XHTML document of the run and fails with a validation
// error listing the documents that are not well-formed XML.
func (c *Compiler) check(ctx context.Context) error {
	if !c.run.Check {
		return nil
	}
	for _, f := range c.run.Files {
		if !strings.EqualFold(path.Ext(f.DestinationPath), ".xhtml") {
			continue
		}
		data := f.Content()
		if !f.HasContent() {
			dest, err := c.DestinationPathOf(f)
			if err != nil {
				return err
			}
			// #nosec G304 -- dest is inside the build directory
			if data, err = os.ReadFile(dest); err != nil {
				return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to read output").
					WithContext("path", dest).
					Build()
			}
		}
		if err := wellFormed(data); err != nil {
			issue := Issue{Path: f.DestinationPath, Message: err.Error()}
			c.run.Issues = append(c.run.Issues, issue)
			observability.WarnContext(ctx, "Document is not well-formed",
				logfields.Path(issue.Path),
				logfields.Error(err))
		}
	}
	if len(c.run.Issues) == 0 {
		return nil
	}

	lines := make([]string, len(c.run.Issues))
	for i, issue := range c.run.Issues {
		lines[i] = issue.Path + ": " + issue.Message
	}
	return foundationerrors.ValidationError(fmt.Sprintf("%d document(s) failed the check", len(c.run.Issues))).
		WithContext("issues", strings.Join(lines, "; ")).
		Build()
}

func wellFormed(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = xml.HTMLEntity
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
