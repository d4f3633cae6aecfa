package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raine/catalog-feed-import/internal/catalog"
	"github.com/raine/catalog-feed-import/internal/config"
	"github.com/raine/catalog-feed-import/internal/feed"
	"github.com/raine/catalog-feed-import/internal/source"
	"github.com/raine/catalog-feed-import/internal/uniq"
)

func main() {
	var feedPath string
	flag.StringVar(&feedPath, "feed", "", "feed path or URL (defaults to FEED_PATH and the usual search paths)")
	flag.Parse()

	if feedPath == "" && flag.NArg() > 0 {
		feedPath = flag.Arg(0)
	}

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	wd, _ := os.Getwd()
	loc, err := source.NewResolver(wd).Resolve(feedPath, cfg.FeedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	text, err := source.NewLoader(cfg.HTTPTimeout).Load(context.Background(), loc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", loc, err)
		os.Exit(1)
	}

	items, err := feed.Decode(text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding %s: %v\n", loc, err)
		os.Exit(1)
	}

	var paths []string
	for _, item := range items {
		paths = append(paths, item.Categories...)
	}
	tree := catalog.BuildCategoryTree(paths)
	_, handles := tree.AssignHandles(uniq.NewContext().Handles)

	fmt.Printf("%s: %d items, %d categories\n\n", loc, len(items), tree.Len())
	for _, root := range tree.GetRoots() {
		printNode(os.Stdout, tree, root, handles)
	}
}

func printNode(w io.Writer, tree *catalog.CategoryTree, node *catalog.CategoryNode, handles catalog.CategoryHandles) {
	marker := ""
	if tree.IsLeaf(node.Key) {
		marker = " *"
	}
	fmt.Fprintf(w, "%s%s [%s]%s\n", strings.Repeat("  ", node.Depth), node.Title, handles[node.Key], marker)
	for _, child := range tree.GetChildren(node.Key) {
		printNode(w, tree, child, handles)
	}
}
