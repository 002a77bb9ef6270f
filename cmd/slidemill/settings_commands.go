package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"slidemill/internal/metadata"
	"slidemill/internal/resolve"
	"slidemill/internal/settings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and edit rendering settings",
	}
	settingsCmd.AddCommand(newSettingsShowCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))
	settingsCmd.AddCommand(newSettingsTemplateCommand(ctx))
	return settingsCmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	var levelFlag, target, contentType string

	cmd := &cobra.Command{
		Use:   "show [image]",
		Short: "Show the settings an image resolves to, or the settings stored at one level",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if levelFlag == "" && len(args) == 0 {
				return errors.New("name an image or pass --level")
			}
			p, err := ctx.openProject(false)
			if err != nil {
				return err
			}
			defer p.close()

			defaults, err := p.defaults()
			if err != nil {
				return err
			}
			resolver := resolve.New(p.md, defaults, p.logger)
			out := cmd.OutOrStdout()

			if levelFlag == "" {
				name := args[0]
				blob, err := resolver.ForImage(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s uses the %s settings\n", name, p.md.Images[name].SettingsSource)
				return writeBlob(out, blob)
			}

			level, err := metadata.ParseLevel(levelFlag)
			if err != nil {
				return err
			}
			if target == "" && len(args) == 1 {
				target = args[0]
			}
			res, err := resolver.Lookup(level, target, contentType)
			if err != nil {
				return err
			}
			if res.Settings == nil {
				fmt.Fprintf(out, "No settings stored at the %s level for %s\n", level, target)
				return nil
			}
			return writeBlob(out, res.Settings)
		},
	}

	cmd.Flags().StringVar(&levelFlag, "level", "", "Settings level: default, content_type, product, custom")
	cmd.Flags().StringVar(&target, "target", "", "Content type, product, or image the level applies to")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type of a product target")
	return cmd
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var levelFlag, target, contentType, file string
	var clearBlob bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a settings file at one level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := metadata.ParseLevel(levelFlag)
			if err != nil {
				return err
			}
			if target == "" {
				return errors.New("--target is required")
			}
			if (file == "") == !clearBlob {
				return errors.New("pass exactly one of --file or --clear")
			}
			var blob *settings.Blob
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read settings file: %w", err)
				}
				if blob, err = settings.Parse(data); err != nil {
					return err
				}
			}

			p, err := ctx.openProject(true)
			if err != nil {
				return err
			}
			defer p.close()

			if err := p.editor().EditSettings(level, target, blob, contentType); err != nil {
				return err
			}
			verb := "Stored"
			if blob == nil {
				verb = "Cleared"
			}
			newPrinter(cmd.OutOrStdout()).status(severityOK, "%s %s settings for %s", verb, level, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&levelFlag, "level", "", "Settings level: content_type, product, custom")
	cmd.Flags().StringVar(&target, "target", "", "Content type, product, or image to update")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type of a product target")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON settings file")
	cmd.Flags().BoolVar(&clearBlob, "clear", false, "Store null instead of a settings file")
	return cmd
}

func newSettingsTemplateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print the default settings template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			blob, err := settings.LoadTemplate(cfg.Paths.DefaultTemplate)
			if err != nil {
				return err
			}
			return writeBlob(cmd.OutOrStdout(), blob)
		},
	}
}

func writeBlob(out io.Writer, blob *settings.Blob) error {
	data, err := json.MarshalIndent(blob, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
