package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-inventory/components/inventory"
	"github.com/goliatone/go-inventory/components/inventory/commands"
	"github.com/goliatone/go-inventory/components/inventory/httpapi"
	"github.com/goliatone/go-inventory/components/inventory/queries"
)

type summaryCmd struct {
	Cached bool `help:"Reuse the last loaded totals when present."`
}

func (cmd *summaryCmd) Run(rt *runtime) error {
	summary, err := rt.app.API.Summary.Query(rt.ctx, queries.SummaryInput{Cached: cmd.Cached})
	if err != nil {
		return err
	}
	return rt.emit(summary, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Products\t%d\n", summary.TotalItems)
		fmt.Fprintf(tw, "Low stock\t%d\n", summary.LowStockCount)
		fmt.Fprintf(tw, "Units\t%d\n", summary.TotalQuantity)
		fmt.Fprintf(tw, "Stock value\t%.2f\n", summary.TotalValue)
		fmt.Fprintf(tw, "Revenue\t%.2f\n", summary.TotalRevenue)
		return tw.Flush()
	})
}

type reportCmd struct {
	HTML string `name:"html" type:"path" help:"Also write the rendered chart to this HTML file."`
}

func (cmd *reportCmd) Run(rt *runtime) error {
	if err := rt.refresh(); err != nil {
		return err
	}
	report, err := rt.app.API.Report.Query(rt.ctx, queries.CategoryReportInput{IncludeChart: cmd.HTML != ""})
	if err != nil {
		return err
	}
	if cmd.HTML != "" {
		if err := os.WriteFile(cmd.HTML, []byte(report.Chart), 0o644); err != nil {
			return fmt.Errorf("inventoryctl: write chart: %w", err)
		}
		report.Chart = ""
		rt.logger.Info("chart written", zap.String("path", cmd.HTML))
	}
	return rt.emit(report.Totals, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tITEMS\tQTY")
		for _, total := range report.Totals {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", total.Category, total.Items, total.Quantity)
		}
		return tw.Flush()
	})
}

type logFilterFlags struct {
	From       string `name:"from" help:"Earliest day, YYYY-MM-DD."`
	To         string `name:"to" help:"Latest day, YYYY-MM-DD (inclusive)."`
	Product    string `help:"Product id."`
	ChangeType string `name:"change-type" help:"quantity_update, reserve, release, threshold_update or status_change."`
	User       string `help:"User email."`
}

func (f logFilterFlags) filter() (inventory.ChangeLogFilter, error) {
	values := map[string]string{
		"dateFrom":   f.From,
		"dateTo":     f.To,
		"productId":  f.Product,
		"changeType": f.ChangeType,
		"user":       f.User,
	}
	return httpapi.ParseChangeLogFilter(func(key string) string { return values[key] })
}

type logsCmd struct {
	logFilterFlags `embed:""`
}

func (cmd *logsCmd) Run(rt *runtime) error {
	filter, err := cmd.filter()
	if err != nil {
		return err
	}
	entries, err := rt.app.API.ChangeLog.Query(rt.ctx, filter)
	if err != nil {
		return err
	}
	return rt.emit(entries, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tPRODUCT\tVARIANT\tFIELD\tOLD\tNEW\tUSER")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				e.Timestamp.Format(time.DateTime), e.ProductName, e.VariantDetails,
				e.Field, e.OldValue, e.NewValue, e.User)
		}
		return tw.Flush()
	})
}

type exportCmd struct {
	logFilterFlags `embed:""`
	Logs bool   `help:"Export the change log instead of items."`
	Out  string `short:"O" type:"path" help:"Output file (default stdout)."`
}

func (cmd *exportCmd) Run(rt *runtime) (err error) {
	var entries []inventory.ChangeLogEntry
	var items []inventory.Item
	if cmd.Logs {
		filter, ferr := cmd.filter()
		if ferr != nil {
			return ferr
		}
		if entries, err = rt.app.API.ChangeLog.Query(rt.ctx, filter); err != nil {
			return err
		}
	} else {
		if err := rt.refresh(); err != nil {
			return err
		}
		items = rt.app.Catalog.Items()
	}

	w, closeFn, err := rt.openOutput(cmd.Out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = fmt.Errorf("inventoryctl: close %s: %w", cmd.Out, cerr)
		}
	}()
	if cmd.Logs {
		return inventory.WriteChangeLogCSV(w, entries)
	}
	return inventory.WriteItemsCSV(w, items)
}

type templateCmd struct {
	Out string `short:"O" type:"path" help:"Output file (default stdout)."`
}

func (cmd *templateCmd) Run(rt *runtime) (err error) {
	w, closeFn, err := rt.openOutput(cmd.Out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = fmt.Errorf("inventoryctl: close %s: %w", cmd.Out, cerr)
		}
	}()
	return inventory.WriteBulkTemplate(w)
}

type bulkUpdateCmd struct {
	File string `short:"f" required:"" help:"JSON list of {productId, variantIndex, field, newValue}, - for stdin."`
}

func (cmd *bulkUpdateCmd) Run(rt *runtime) error {
	r, closeFn, err := rt.openInput(cmd.File)
	if err != nil {
		return err
	}
	defer closeFn()
	changes, err := inventory.ParseBulkChanges(r, inventory.NewJSONSchemaValidator())
	if err != nil {
		return err
	}
	if err := rt.refresh(); err != nil {
		return err
	}
	var result inventory.BulkUpdateResult
	if err := rt.app.API.Bulk.Execute(rt.ctx, commands.BulkUpdateInput{
		Changes: changes,
		Actor:   rt.app.Actor(),
		Result:  &result,
	}); err != nil {
		return err
	}
	return rt.emit(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Applied %d of %d changes\n", result.Updated, len(changes))
		return err
	})
}

type importCmd struct {
	File string `short:"f" required:"" help:"Bulk upload JSON (see the template command), - for stdin."`
}

func (cmd *importCmd) Run(rt *runtime) error {
	r, closeFn, err := rt.openInput(cmd.File)
	if err != nil {
		return err
	}
	defer closeFn()
	items, err := inventory.ParseBulkUpload(r, inventory.NewJSONSchemaValidator())
	if err != nil {
		return err
	}
	var failures []error
	created := 0
	for _, item := range items {
		if err := rt.app.API.Create.Execute(rt.ctx, commands.CreateItemInput{Item: item, Actor: rt.app.Actor()}); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", item.SKU, err))
			continue
		}
		created++
	}
	fmt.Fprintf(rt.out, "✓ Imported %d of %d items\n", created, len(items))
	return errors.Join(failures...)
}

type themeCmd struct {
	Theme string `arg:"" optional:"" help:"light or dark; omit to toggle."`
	Show  bool   `help:"Print the current theme without changing it."`
}

func (cmd *themeCmd) Run(rt *runtime) error {
	var theme inventory.Theme
	if cmd.Show {
		prefs, err := rt.app.Preferences.Load(rt.ctx)
		if err != nil {
			return err
		}
		theme = prefs.Theme
	} else {
		in := commands.SetThemeInput{Result: &theme}
		if cmd.Theme != "" {
			parsed, err := inventory.ParseTheme(cmd.Theme)
			if err != nil {
				return err
			}
			in.Theme = parsed
		}
		if err := rt.app.API.Theme.Execute(rt.ctx, in); err != nil {
			return err
		}
	}
	return rt.emit(map[string]inventory.Theme{"theme": theme}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, theme)
		return err
	})
}
