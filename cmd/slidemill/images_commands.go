package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"slidemill/internal/metadata"
)

func newImagesCommand(ctx *commandContext) *cobra.Command {
	imagesCmd := &cobra.Command{
		Use:   "images",
		Short: "List, tag, and file images",
	}
	imagesCmd.AddCommand(newImagesListCommand(ctx))
	imagesCmd.AddCommand(newImagesTagCommand(ctx))
	imagesCmd.AddCommand(newImagesUntagCommand(ctx))
	imagesCmd.AddCommand(newImagesMoveCommand(ctx))
	return imagesCmd
}

func newImagesListCommand(ctx *commandContext) *cobra.Command {
	var filter metadata.ImageFilter
	var untagged bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List image records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.openProject(false)
			if err != nil {
				return err
			}
			defer p.close()
			editor := p.editor()
			pr := newPrinter(cmd.OutOrStdout())

			if untagged {
				names := editor.Untagged()
				if len(names) == 0 {
					pr.status(severityOK, "No untagged images")
					return nil
				}
				rows := make([][]string, 0, len(names))
				for _, name := range names {
					rows = append(rows, []string{name})
				}
				pr.println(renderTable([]string{"Untagged image"}, rows))
				return nil
			}

			names := editor.Images(filter)
			if len(names) == 0 {
				pr.status(severityInfo, "No images match")
				return nil
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				img, _ := editor.Image(name)
				product := img.ProductName()
				if product == "" {
					product = "-"
				}
				rows = append(rows, []string{
					name,
					img.ContentType,
					product,
					img.SettingsSource,
					fmt.Sprintf("%dx%d", img.Dimensions.Width, img.Dimensions.Height),
				})
			}
			pr.println(renderTable([]string{"Image", "Content type", "Product", "Settings", "Size"}, rows, 4))
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.ContentType, "content-type", "", "Only list images of this content type")
	cmd.Flags().StringVar(&filter.Product, "product", "", "Only list images tagged with this product")
	cmd.Flags().BoolVar(&filter.Unassigned, "unassigned", false, "Only list images without a product")
	cmd.Flags().BoolVar(&untagged, "untagged", false, "List loose images in the base folder instead")
	return cmd
}

func newImagesTagCommand(ctx *commandContext) *cobra.Command {
	var source, contentType string

	cmd := &cobra.Command{
		Use:   "tag <image> <product>",
		Short: "Assign a product (or \"all\") to an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.openProject(true)
			if err != nil {
				return err
			}
			defer p.close()

			name, product := args[0], strings.TrimSpace(args[1])
			editor := p.editor()
			if product != metadata.Wildcard && source == "" {
				err = editor.UpdateImageProduct(name, contentType, product)
			} else {
				changes := []metadata.ImageChange{metadata.WithProduct(product)}
				if source != "" {
					changes = append(changes, metadata.WithSettingsSource(source))
				}
				err = editor.EditImage(name, changes...)
			}
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).status(severityOK, "Tagged %s with %s", name, product)
			return nil
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type the image is expected in; the recorded one wins")
	cmd.Flags().StringVar(&source, "settings-source", "", "Also pin the image to a settings level (default, content, product)")
	return cmd
}

func newImagesUntagCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "untag <image>",
		Short: "Remove the product from an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.openProject(true)
			if err != nil {
				return err
			}
			defer p.close()

			if err := p.editor().EditImage(args[0], metadata.WithoutProduct()); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).status(severityOK, "Removed the product from %s", args[0])
			return nil
		},
	}
}

func newImagesMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <image> <content-type>",
		Short: "Move an untagged image into a content type folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.openProject(true)
			if err != nil {
				return err
			}
			defer p.close()

			if err := p.editor().MoveUntaggedImage(args[0], args[1]); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).status(severityOK, "Moved %s into %s", args[0], args[1])
			return nil
		},
	}
}
