package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maauso/gifstudio-api/internal/manifest"
	"github.com/maauso/gifstudio-api/internal/media"
)

// concatPlaceholder stands in for the temporary concat list in printed commands.
const concatPlaceholder = "frames.ffconcat"

var (
	argsManifest string
	argsOutput   string
)

var argsCmd = &cobra.Command{
	Use:   "args",
	Short: "Print the ffmpeg command a render would run",
	Long: `Print the concat list and the ffmpeg invocation for a manifest without
running ffmpeg. Useful for debugging filter graphs.`,
	Args: cobra.NoArgs,
	RunE: runArgs,
}

func init() {
	rootCmd.AddCommand(argsCmd)

	argsCmd.Flags().StringVarP(&argsManifest, "manifest", "m", "", "manifest file (required)")
	argsCmd.Flags().StringVarP(&argsOutput, "output", "o", "", "output file, overrides the manifest")
}

func runArgs(cmd *cobra.Command, _ []string) error {
	if argsManifest == "" {
		return errors.New("--manifest is required")
	}

	m, err := manifest.Load(argsManifest)
	if err != nil {
		return err
	}
	spec, err := m.RenderSpec(argsOutput)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", concatPlaceholder)
	fmt.Fprint(out, media.BuildConcatList(spec.Frames, spec.FPS))
	fmt.Fprintln(out)

	args := media.BuildRenderArgs(spec, concatPlaceholder)
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	fmt.Fprintf(out, "%s %s\n", ffmpegPath, strings.Join(quoted, " "))
	return nil
}

// shellQuote wraps s in single quotes when a POSIX shell would split or
// expand it.
func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()[]{}*?!#~=,:") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
