package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newProductsCommand(ctx *commandContext) *cobra.Command {
	productsCmd := &cobra.Command{
		Use:   "products",
		Short: "Inspect products and their duplicate guards",
	}
	productsCmd.AddCommand(newProductsListCommand(ctx))
	productsCmd.AddCommand(newProductsDedupeCommand(ctx))
	return productsCmd
}

func newProductsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [content-type-filter]",
		Short: "List declared products per content type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.openProject(false)
			if err != nil {
				return err
			}
			defer p.close()

			var filter string
			if len(args) == 1 {
				filter = args[0]
			}
			editor := p.editor()
			var rows [][]string
			for _, ct := range editor.ContentTypes(filter) {
				products, err := editor.Products(ct)
				if err != nil {
					return err
				}
				for _, prod := range products {
					group := "-"
					if g, ok := p.md.Settings[ct].GroupFor(prod.Name); ok {
						group = g.Key
					}
					rows = append(rows, []string{
						ct,
						prod.Name,
						yesNo(prod.PreventDuplicates),
						strconv.Itoa(prod.MinOccurrences),
						strconv.Itoa(prod.CurrentCount),
						group,
					})
				}
			}
			pr := newPrinter(cmd.OutOrStdout())
			if len(rows) == 0 {
				pr.status(severityInfo, "No products declared")
				return nil
			}
			pr.println(renderTable([]string{"Content type", "Product", "No duplicates", "Min", "Current", "Settings group"}, rows, 3, 4))
			return nil
		},
	}
}

func newProductsDedupeCommand(ctx *commandContext) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "dedupe <content-type> <product>",
		Short: "Forbid (or with --off allow) reusing a product's images within one post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.openProject(true)
			if err != nil {
				return err
			}
			defer p.close()

			if err := p.editor().SetPreventDuplicates(args[0], args[1], !off); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).status(severityOK, "%s - %s prevent_duplicates=%s", args[0], args[1], strconv.FormatBool(!off))
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Allow duplicates again")
	return cmd
}
