package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/conneroisu/quill/internal/version"
)

var (
	versionFormat   string
	versionShort    bool
	versionDetailed bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for quill: version, git commit, build
time, Go version and platform.

Examples:
  quill version              # Show version
  quill version --detailed   # Show every field
  quill version -f json      # Output as JSON`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeVersion(cmd.OutOrStdout(), version.Get(), versionFormat, versionShort, versionDetailed)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func writeVersion(w io.Writer, info version.Info, format string, short, detailed bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "yaml":
		out, err := yaml.Marshal(info)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case "text":
		switch {
		case short:
			_, err := fmt.Fprintln(w, info.Version)
			return err
		case detailed:
			_, err := fmt.Fprintln(w, info.Detailed())
			return err
		default:
			_, err := fmt.Fprintf(w, "quill %s\n", info.Short())
			return err
		}
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", format)
	}
}
