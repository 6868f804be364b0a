package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reportdesk/backend/internal/archive"
	"github.com/reportdesk/backend/internal/logging"
	"github.com/reportdesk/backend/internal/storage"
)

func newArchiveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <filename>",
		Short: "Move an upload and its output folder into the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, closeLog := logging.Setup(cfg.Logging)
			defer closeLog()

			archiver := archive.NewArchiver(storage.NewLayout(cfg.Storage), logger)
			entry, err := archiver.Archive(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if entry == nil {
				fmt.Fprintf(out, "nothing to archive: %s is not in %s\n", args[0], cfg.Storage.UploadsDirectory)
				return nil
			}
			fmt.Fprintln(out, entry.Folder)
			return nil
		},
	}
}
