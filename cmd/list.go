package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/conneroisu/quill/internal/config"
	"github.com/conneroisu/quill/internal/content"
	"github.com/conneroisu/quill/internal/index"
	"github.com/conneroisu/quill/internal/logging"
	"github.com/conneroisu/quill/internal/query"
	"github.com/conneroisu/quill/internal/renderer"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List indexed posts",
	Long: `List the posts in the data directory, newest first, as the server
would index them.

Examples:
  quill list                      # Table of all posts
  quill list --tag go -o json     # Posts tagged "go" as JSON
  quill list --pinned pinned      # Pinned posts only
  quill list -n 3 -o yaml         # The three newest posts as YAML`,
	RunE: runList,
}

type listOptions struct {
	Format   string
	Category string
	Tag      string
	Pinned   string
	Limit    int
}

var listOpts listOptions

var listFormats = []string{"table", "json", "yaml"}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listOpts.Format, "output", "o", "table", "Output format (table, json, yaml)")
	listCmd.Flags().StringVar(&listOpts.Category, "category", "", "Only posts in this category")
	listCmd.Flags().StringVar(&listOpts.Tag, "tag", "", "Only posts with this tag")
	listCmd.Flags().StringVar(&listOpts.Pinned, "pinned", "all", "Pinned filter (all, pinned, unpinned)")
	listCmd.Flags().IntVarP(&listOpts.Limit, "limit", "n", 0, "Maximum number of posts (0 for all)")

	AddFlagValidation(listCmd, "output", func(format string) error {
		return ValidateFormat(format, listFormats)
	})
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	return listPosts(cmd.Context(), afero.NewOsFs(), cfg, logger, listOpts, cmd.OutOrStdout())
}

// listEntry is one row of list output.
type listEntry struct {
	Slug      string   `json:"slug" yaml:"slug"`
	Title     string   `json:"title" yaml:"title"`
	Published string   `json:"published" yaml:"published"`
	Category  string   `json:"category,omitempty" yaml:"category,omitempty"`
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Pinned    bool     `json:"pinned" yaml:"pinned"`
	Path      string   `json:"path" yaml:"path"`
}

func listPosts(ctx context.Context, fsys afero.Fs, cfg *config.Config, logger logging.Logger, opts listOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ValidateFormat(opts.Format, listFormats); err != nil {
		return err
	}

	filter, err := listFilter(opts)
	if err != nil {
		return err
	}

	ingestor := content.NewIngestor(fsys, logger)
	idx := index.New(cfg.Blog.DataPath, ingestor, logger)
	if err := idx.Init(ctx); err != nil && idx.Count() == 0 {
		return err
	}

	engine := query.New(idx, ingestor, renderer.New(renderer.Options{}), query.Options{
		PageSize: cfg.Blog.PageSize,
		Logger:   logger,
	})

	posts := engine.GetPosts(filter, opts.Limit)
	entries := make([]listEntry, 0, len(posts))
	for _, p := range posts {
		entries = append(entries, listEntry{
			Slug:      p.Slug,
			Title:     p.Title,
			Published: p.Published.Format("2006-01-02"),
			Category:  p.Category,
			Tags:      p.Tags,
			Pinned:    p.Settings.IsPinned,
			Path:      p.Settings.SourcePath(),
		})
	}

	switch opts.Format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		out, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return writeTable(w, entries)
	}
}

func listFilter(opts listOptions) (query.Filter, error) {
	var filters query.And
	if opts.Category != "" {
		filters = append(filters, query.ByCategory{Category: opts.Category})
	}
	if opts.Tag != "" {
		filters = append(filters, query.ByTag{Tag: opts.Tag})
	}
	state, err := query.ParsePinnedState(opts.Pinned)
	if err != nil {
		return nil, err
	}
	if state != query.PinnedAll {
		filters = append(filters, query.ByPinned{State: state})
	}
	if len(filters) == 0 {
		return nil, nil
	}
	return filters, nil
}

func writeTable(w io.Writer, entries []listEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No posts found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tTITLE\tPUBLISHED\tCATEGORY\tTAGS")
	for _, e := range entries {
		slug := e.Slug
		if e.Pinned {
			slug += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", slug, e.Title, e.Published, e.Category, strings.Join(e.Tags, ", "))
	}
	return tw.Flush()
}
