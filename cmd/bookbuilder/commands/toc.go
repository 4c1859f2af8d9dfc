package commands

import (
	"fmt"

	"github.com/disiqueira/gotree/v3"

	"git.home.luguber.info/inful/bookbuilder/internal/book"
)

// TocCmd implements the 'toc' command.
type TocCmd struct {
	Targets []string `arg:"" optional:"" help:"Targets to show (default: all)"`
}

func (c *TocCmd) Run(_ *Global, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	targets, err := p.selectTargets(c.Targets)
	if err != nil {
		return err
	}
	for _, t := range targets {
		fmt.Print(renderToc(p.book, t))
	}
	return nil
}

// renderToc draws the table of contents of t as a tree.
func renderToc(b *book.Book, t *book.Target) string {
	label := b.Title
	if !t.IsDefault {
		label = fmt.Sprintf("%s [%s]", b.Title, t.Name)
	}
	tree := gotree.New(label)
	for _, child := range t.RootToc.Children {
		addTocItem(tree, child)
	}
	return tree.Print()
}

func addTocItem(parent gotree.Tree, item *book.TocItem) {
	label := item.Label()
	if item.File != nil && item.File.SourcePattern != label {
		label = fmt.Sprintf("%s (%s)", label, item.File.SourcePattern)
	}
	node := parent.Add(label)
	for _, child := range item.Children {
		addTocItem(node, child)
	}
}
