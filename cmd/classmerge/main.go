package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/walteh/classmerge/cmd/classmerge/rewrite"
	"gitlab.com/tozd/go/errors"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:     "classmerge",
		Short:   "Merge redundant utility-class tokens across template files",
		Version: buildVersion(),
	}

	rootCmd.AddCommand(rewrite.NewRewriteCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("running classmerge: %w", err)
	}

	return nil
}

// buildVersion reports the module version stamped into the binary, or
// "devel" for unstamped builds.
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "devel"
	}
	return info.Main.Version
}
