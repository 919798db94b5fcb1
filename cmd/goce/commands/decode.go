package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HellLord77/goce/internal/files"
)

var decodeCmd = &cobra.Command{
	Use:   "decode filename...",
	Short: "Decode fragment filenames back into market names",
	Long: `Fragment files are named after the base64url encoding of their market,
which keeps arbitrary market names filesystem-safe but unreadable.
decode prints the market name behind each given filename.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, arg := range args {
			name := strings.TrimSuffix(filepath.Base(arg), ".csv")
			market, err := files.DecodeMarket(name)
			if err != nil {
				return fmt.Errorf("cannot decode %q: %w", arg, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", arg, market)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}
