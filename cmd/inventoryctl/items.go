package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/goliatone/go-inventory/components/inventory"
	"github.com/goliatone/go-inventory/components/inventory/commands"
	"github.com/goliatone/go-inventory/components/inventory/httpapi"
	"github.com/goliatone/go-inventory/components/inventory/queries"
)

type listCmd struct {
	Search         string `short:"s" help:"Case-insensitive match on name or SKU."`
	Page           int    `default:"1" help:"1-based page number."`
	PageSize       int    `name:"page-size" help:"Items per page (default 10)."`
	Sort           string `help:"Sort key, dotted paths allowed (e.g. pricing.base_price)."`
	Order          string `help:"asc or desc."`
	Category       string `help:"Primary category."`
	Gender         string `help:"Gender label."`
	AgeGroup       string `name:"age-group" help:"Age group label."`
	Status         string `help:"Variant status (in_stock, out_of_stock, discontinued)."`
	StockLevel     string `name:"stock-level" help:"high (>50), medium (11-50), low (1-10) or zero."`
	TrackInventory string `name:"track-inventory" help:"true or false."`
	LowStock       bool   `name:"low-stock" help:"Only items with a low-stock variant."`
	OutOfStock     bool   `name:"out-of-stock" help:"Only items with an out-of-stock variant."`
}

func (cmd *listCmd) viewRequest() (inventory.ViewRequest, error) {
	values := map[string]string{
		"search":         cmd.Search,
		"page":           strconv.Itoa(cmd.Page),
		"sort":           cmd.Sort,
		"order":          cmd.Order,
		"category":       cmd.Category,
		"gender":         cmd.Gender,
		"ageGroup":       cmd.AgeGroup,
		"status":         cmd.Status,
		"stockLevel":     cmd.StockLevel,
		"trackInventory": cmd.TrackInventory,
		"lowStock":       strconv.FormatBool(cmd.LowStock),
		"outOfStock":     strconv.FormatBool(cmd.OutOfStock),
	}
	if cmd.PageSize > 0 {
		values["pageSize"] = strconv.Itoa(cmd.PageSize)
	}
	return httpapi.ParseViewRequest(func(key string) string { return values[key] })
}

func (cmd *listCmd) Run(rt *runtime) error {
	req, err := cmd.viewRequest()
	if err != nil {
		return err
	}
	if err := rt.refresh(); err != nil {
		return err
	}
	view, err := rt.app.API.View.Query(rt.ctx, req)
	if err != nil {
		return err
	}
	return rt.emit(view, func(w io.Writer) error {
		if err := writeItemTable(w, view.Items); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "page %d of %d, %d items\n", view.Page, view.TotalPages, view.TotalItems)
		return err
	})
}

type getCmd struct {
	ID string `arg:"" help:"Item id."`
}

func (cmd *getCmd) Run(rt *runtime) error {
	if err := rt.refresh(); err != nil {
		return err
	}
	item, err := rt.app.API.Item.Query(rt.ctx, queries.ItemInput{ID: cmd.ID})
	if err != nil {
		return err
	}
	return rt.emit(item, func(w io.Writer) error { return writeItemDetail(w, item) })
}

type createCmd struct {
	File string `short:"f" required:"" help:"JSON item file, - for stdin."`
}

func (cmd *createCmd) Run(rt *runtime) error {
	var item inventory.Item
	if err := rt.decodeFile(cmd.File, &item); err != nil {
		return err
	}
	var created inventory.Item
	if err := rt.app.API.Create.Execute(rt.ctx, commands.CreateItemInput{
		Item:   item,
		Actor:  rt.app.Actor(),
		Result: &created,
	}); err != nil {
		return err
	}
	return rt.emit(created, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Created %s (%s)\n", created.Name, created.ID)
		return err
	})
}

type updateCmd struct {
	ID       string `arg:"" help:"Item id."`
	File     string `short:"f" help:"JSON item file, or the variant payload with --variant; - for stdin."`
	Variant  string `help:"Variant id to update instead of the whole item."`
	Quantity *int   `help:"Set the on-hand quantity without a payload file."`
}

func (cmd *updateCmd) Run(rt *runtime) error {
	if cmd.File == "" && cmd.Quantity == nil {
		return inventory.NewValidationError("update", "either --file or --quantity is required", nil)
	}
	if err := rt.refresh(); err != nil {
		return err
	}
	req, err := cmd.request(rt)
	if err != nil {
		return err
	}
	var updated inventory.Item
	if err := rt.app.API.Update.Execute(rt.ctx, commands.UpdateItemInput{
		Request: req,
		Actor:   rt.app.Actor(),
		Result:  &updated,
	}); err != nil {
		return err
	}
	return rt.emit(updated, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Updated %s (%s), total stock %d\n", updated.Name, updated.ID, updated.TotalQuantity())
		return err
	})
}

func (cmd *updateCmd) request(rt *runtime) (inventory.UpdateRequest, error) {
	current, err := rt.app.API.Item.Query(rt.ctx, queries.ItemInput{ID: cmd.ID})
	if err != nil {
		return inventory.UpdateRequest{}, err
	}
	if cmd.Variant != "" {
		variant, ok := findVariant(current, cmd.Variant)
		if !ok && cmd.File == "" {
			return inventory.UpdateRequest{}, &inventory.Error{Kind: inventory.KindNotFound, Op: "update", Message: fmt.Sprintf("variant %s not found on %s", cmd.Variant, cmd.ID)}
		}
		if cmd.File != "" {
			if err := rt.decodeFile(cmd.File, &variant); err != nil {
				return inventory.UpdateRequest{}, err
			}
		}
		if cmd.Quantity != nil {
			variant.Inventory.SetQuantity(*cmd.Quantity)
		}
		req := inventory.UpdateRequest{Kind: inventory.UpdateVariant, VariantID: cmd.Variant, Variant: &variant}
		return req, httpapi.BindUpdateTarget(&req, cmd.ID)
	}

	item := current
	if cmd.File != "" {
		item = inventory.Item{}
		if err := rt.decodeFile(cmd.File, &item); err != nil {
			return inventory.UpdateRequest{}, err
		}
	}
	if cmd.Quantity != nil {
		if item.HasVariants() {
			return inventory.UpdateRequest{}, inventory.NewValidationError("update", "item has variants, pass --variant with --quantity", nil)
		}
		item.Quantity = inventory.IntPtr(*cmd.Quantity)
	}
	req := inventory.UpdateRequest{Kind: inventory.UpdateProduct, Item: item}
	return req, httpapi.BindUpdateTarget(&req, cmd.ID)
}

func findVariant(item inventory.Item, id string) (inventory.Variant, bool) {
	for _, v := range item.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return inventory.Variant{}, false
}

type deleteCmd struct {
	ID string `arg:"" help:"Item id."`
}

func (cmd *deleteCmd) Run(rt *runtime) error {
	if err := rt.app.API.Delete.Execute(rt.ctx, commands.DeleteItemInput{ID: cmd.ID, Actor: rt.app.Actor()}); err != nil {
		return err
	}
	_, err := fmt.Fprintf(rt.out, "✓ Deleted %s\n", cmd.ID)
	return err
}

type lowStockCmd struct {
	Critical bool `help:"Only variants with no stock left."`
}

func (cmd *lowStockCmd) Run(rt *runtime) error {
	if err := rt.refresh(); err != nil {
		return err
	}
	alerts, err := rt.app.API.LowStock.Query(rt.ctx, queries.LowStockInput{Critical: cmd.Critical})
	if err != nil {
		return err
	}
	return rt.emit(alerts, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PRODUCT\tSKU\tVARIANT\tQTY\tTHRESHOLD\tSHORTFALL")
		for _, a := range alerts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
				a.ProductName, a.Variant.SKU, a.Variant.Label(),
				a.Variant.Inventory.Quantity, a.Variant.Inventory.LowStockThreshold, a.Shortfall())
		}
		return tw.Flush()
	})
}

func writeItemTable(w io.Writer, items []inventory.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSKU\tCATEGORY\tQTY\tPRICE")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.2f\n",
			item.ID, item.Name, item.SKU, item.Category.String(), item.TotalQuantity(), item.UnitPrice())
	}
	return tw.Flush()
}

func writeItemDetail(w io.Writer, item inventory.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", item.ID)
	fmt.Fprintf(tw, "Name\t%s\n", item.Name)
	fmt.Fprintf(tw, "SKU\t%s\n", item.SKU)
	if item.Brand != "" {
		fmt.Fprintf(tw, "Brand\t%s\n", item.Brand)
	}
	fmt.Fprintf(tw, "Category\t%s\n", item.Category.String())
	fmt.Fprintf(tw, "Price\t%.2f\n", item.UnitPrice())
	fmt.Fprintf(tw, "Stock\t%d\n", item.TotalQuantity())
	if err := tw.Flush(); err != nil {
		return err
	}
	if !item.HasVariants() {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tSKU\tLABEL\tSTATUS\tQTY\tRESERVED\tAVAILABLE")
	for _, v := range item.Variants {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			v.ID, v.SKU, v.Label(), v.Status, v.Inventory.Quantity, v.Inventory.Reserved, v.Inventory.Available)
	}
	return tw.Flush()
}

// decodeFile reads JSON from path, or from stdin when path is "-".
func (rt *runtime) decodeFile(path string, dst any) error {
	r, closeFn, err := rt.openInput(path)
	if err != nil {
		return err
	}
	defer closeFn()
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return inventory.NewValidationError("decode "+path, "payload is not valid JSON", err)
	}
	return nil
}

func (rt *runtime) openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return rt.in, func() {}, nil
	}
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, nil, fmt.Errorf("inventoryctl: open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// openOutput returns stdout for an empty path or "-", otherwise a new file.
func (rt *runtime) openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return rt.out, func() error { return nil }, nil
	}
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return nil, nil, fmt.Errorf("inventoryctl: create %s: %w", path, err)
	}
	return f, f.Close, nil
}
