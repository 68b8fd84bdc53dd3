package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/port-experimental/dispatch-cli/internal/api"
	"github.com/port-experimental/dispatch-cli/internal/batch"
	"github.com/port-experimental/dispatch-cli/internal/output"
	"github.com/spf13/cobra"
)

// validOrderStatuses are the statuses an order can be moved to.
var validOrderStatuses = map[string]bool{
	"pending":   true,
	"accepted":  true,
	"picked-up": true,
	"delivered": true,
	"cancelled": true,
}

// records converts API records for output.
func records[T ~map[string]interface{}](list []T) []map[string]interface{} {
	out := make([]map[string]interface{}, len(list))
	for i, rec := range list {
		out[i] = rec
	}
	return out
}

// withClient runs fn with an API client for the active session.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client *api.Client) error) error {
	rt, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.requireSession(); err != nil {
		return err
	}
	return fn(cmd.Context(), rt.client)
}

// RegisterOrders registers the orders command and its subcommands.
func RegisterOrders(rootCmd *cobra.Command) {
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "Delivery order operations",
	}

	ordersCmd.AddCommand(registerOrderList())
	ordersCmd.AddCommand(registerOrderGet())
	ordersCmd.AddCommand(registerOrderSetStatus())

	rootCmd.AddCommand(ordersCmd)
}

// registerOrderList registers the order list command.
func registerOrderList() *cobra.Command {
	var status, format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders assigned to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client *api.Client) error {
				params := map[string]string{}
				if status != "" {
					params["status"] = status
				}

				result, err := client.ListOrders(ctx, params)
				if err != nil {
					return fmt.Errorf("failed to list orders: %w", err)
				}
				return formatOutput(records(result), format)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only show orders with this status")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, yaml, text")

	return cmd
}

// registerOrderGet registers the order get command.
func registerOrderGet() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "get [order-id]",
		Short: "Get a specific order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client *api.Client) error {
				result, err := client.GetOrder(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get order: %w", err)
				}
				return formatOutput(map[string]interface{}(result), format)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, yaml, text")

	return cmd
}

// registerOrderSetStatus registers the order set-status command.
func registerOrderSetStatus() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "set-status [status] [order-id...]",
		Short: "Move one or more orders to a new status",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ids := args[0], args[1:]
			if !validOrderStatuses[status] {
				return fmt.Errorf("invalid order status '%s'", status)
			}

			return withClient(cmd, func(ctx context.Context, client *api.Client) error {
				results := batch.Apply(ctx, concurrency, ids, func(ctx context.Context, id string) (api.Order, error) {
					return client.UpdateOrderStatus(ctx, id, status)
				}, func(done, total int) {
					output.VerbosePrintf("  %d/%d orders updated\n", done, total)
				})

				for _, r := range results {
					if r.Err != nil {
						output.ErrorPrintf("%s %s: %v\n", output.Error("✗"), r.Input, r.Err)
						continue
					}
					output.Printf("%s %s → %s\n", output.Success("✓"), r.Input, status)
				}

				if failed := batch.Failed(results); len(failed) > 0 {
					return fmt.Errorf("failed to update %d of %d orders", len(failed), len(results))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", batch.DefaultConcurrency, "Number of orders updated in parallel")

	return cmd
}

// RegisterProducts registers the products command and its subcommands.
func RegisterProducts(rootCmd *cobra.Command) {
	productsCmd := &cobra.Command{
		Use:   "products",
		Short: "Product catalogue operations",
	}

	productsCmd.AddCommand(registerProductList())
	productsCmd.AddCommand(registerProductGet())

	rootCmd.AddCommand(productsCmd)
}

// registerProductList registers the product list command.
func registerProductList() *cobra.Command {
	var search, format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client *api.Client) error {
				params := map[string]string{}
				if search != "" {
					params["q"] = search
				}

				result, err := client.ListProducts(ctx, params)
				if err != nil {
					return fmt.Errorf("failed to list products: %w", err)
				}
				return formatOutput(records(result), format)
			})
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Filter products by name")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, yaml, text")

	return cmd
}

// registerProductGet registers the product get command.
func registerProductGet() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "get [product-id]",
		Short: "Get a specific product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client *api.Client) error {
				result, err := client.GetProduct(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get product: %w", err)
				}
				return formatOutput(map[string]interface{}(result), format)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, yaml, text")

	return cmd
}

// RegisterInventory registers the inventory command and its subcommands.
func RegisterInventory(rootCmd *cobra.Command) {
	inventoryCmd := &cobra.Command{
		Use:   "inventory",
		Short: "Stock operations",
	}

	inventoryCmd.AddCommand(registerInventoryList())
	inventoryCmd.AddCommand(registerInventoryAdjust())

	rootCmd.AddCommand(inventoryCmd)
}

// registerInventoryList registers the inventory list command.
func registerInventoryList() *cobra.Command {
	var format string
	var lowStock bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stock you hold",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client *api.Client) error {
				params := map[string]string{}
				if lowStock {
					params["low_stock"] = "true"
				}

				result, err := client.ListInventory(ctx, params)
				if err != nil {
					return fmt.Errorf("failed to list inventory: %w", err)
				}
				return formatOutput(records(result), format)
			})
		},
	}

	cmd.Flags().BoolVar(&lowStock, "low-stock", false, "Only show items below their reorder level")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, yaml, text")

	return cmd
}

// registerInventoryAdjust registers the inventory adjust command.
func registerInventoryAdjust() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjust [sku] [delta]",
		Short: "Add or remove stock, e.g. `adjust SKU-1 -- -3`",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sku := args[0]
			delta, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid delta '%s': must be an integer", args[1])
			}
			if delta == 0 {
				return fmt.Errorf("invalid delta: must not be zero")
			}

			return withClient(cmd, func(ctx context.Context, client *api.Client) error {
				item, err := client.AdjustInventory(ctx, sku, delta)
				if err != nil {
					return fmt.Errorf("failed to adjust inventory: %w", err)
				}

				output.SuccessPrintln(fmt.Sprintf("✓ %s adjusted by %+d", sku, delta))
				if qty, ok := item["quantity"]; ok {
					output.Printf("New quantity: %v\n", qty)
				}
				return nil
			})
		},
	}

	return cmd
}
