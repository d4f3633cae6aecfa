package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/raine/catalog-feed-import/internal/content"
)

func main() {
	var (
		shortFile    string
		keywordsFile string
		asJSON       bool
	)
	flag.StringVar(&shortFile, "short", "", "file with the short description")
	flag.StringVar(&keywordsFile, "keywords", os.Getenv("KEYWORDS_FILE"), "YAML keyword tables")
	flag.BoolVar(&asJSON, "json", false, "print sections as JSON")
	flag.Parse()

	if flag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Usage: classify-content [-short file] [-keywords file] [-json] [description.html]\n")
		os.Exit(1)
	}

	description, err := readInput(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading description: %v\n", err)
		os.Exit(1)
	}

	var short string
	if shortFile != "" {
		if short, err = readInput(shortFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading short description: %v\n", err)
			os.Exit(1)
		}
	}

	var rules *content.Rules
	if keywordsFile != "" {
		if rules, err = content.LoadRulesFile(keywordsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading keywords: %v\n", err)
			os.Exit(1)
		}
	}

	sections := content.NewClassifier(rules).Classify(content.Input{
		ShortDescription: short,
		Description:      description,
	})
	shortCopy := content.ShortCopy(sections, short)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		enc.Encode(struct {
			Sections  []content.Section `json:"sections"`
			ShortCopy string            `json:"short_copy"`
		}{sections, shortCopy})
		return
	}

	if len(sections) == 0 {
		fmt.Println("No sections found")
		return
	}
	for _, s := range sections {
		fmt.Printf("== %s (%s)\n%s\n\n", s.Title, s.Key, s.Content)
	}
	fmt.Printf("== short copy\n%s\n", shortCopy)
}

// readInput reads path, or stdin when path is empty or "-".
func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
