package cmd

import (
	"github.com/spf13/cobra"
)

const AppName = "oasis"

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - OASIS disk image and serial transfer tool",
	}

	rootCmd.AddCommand(DefineListCommand())
	rootCmd.AddCommand(DefineInfoCommand())
	rootCmd.AddCommand(DefineExtractCommand())
	rootCmd.AddCommand(DefineEraseCommand())
	rootCmd.AddCommand(DefineRenameCommand())
	rootCmd.AddCommand(DefineCopyCommand())
	rootCmd.AddCommand(DefineCheckCommand())
	rootCmd.AddCommand(DefineInitDiskCommand())
	rootCmd.AddCommand(DefineMountCommand())
	rootCmd.AddCommand(DefineSendCommand())
	rootCmd.AddCommand(DefineRecvCommand())

	return rootCmd.Execute()
}
