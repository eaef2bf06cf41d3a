package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	pkgconfig "github.com/tradezone/marketplace/pkg/config"
	"github.com/tradezone/marketplace/pkg/logging"
	"github.com/tradezone/marketplace/storefront"
	"github.com/tradezone/marketplace/storefront/api"
	"github.com/tradezone/marketplace/storefront/checkout"
)

const usage = `usage: storefront <command> [args]

commands:
  login <username> <password>
  logout
  whoami
  listings
  add <listing id>
  remove <listing id>
  cart
  checkout <name> <address> <phone> <payment method>
  orders
  ban-listing <listing id> | unban-listing <listing id>
  ban-user <account id> | unban-user <account id>
  order-status <order id> <status>
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := pkgconfig.Load()
	logger := logging.New(cfg.LogLevel).With("service", "storefront")

	client, err := storefront.New(storefront.Config{
		GatewayURL: pkgconfig.EnvDefault("STOREFRONT_GATEWAY_URL", "http://localhost:8080"),
		MirrorPath: pkgconfig.EnvDefault("STOREFRONT_MIRROR", "storefront.db"),
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(ctx, client, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *storefront.Client, args []string) error {
	need := func(n int) error {
		if len(args) != n+1 {
			return fmt.Errorf("%s: expected %d argument(s)\n%s", args[0], n, usage)
		}
		return nil
	}

	switch args[0] {
	case "login":
		if err := need(2); err != nil {
			return err
		}
		s, err := c.Login(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s (%s)\n", s.Username, s.Role)
		return nil
	case "logout":
		return c.Logout(ctx)
	case "whoami":
		s := c.Session()
		fmt.Printf("%s (%s)\n", s.Username, s.Role)
		return nil
	case "listings":
		return printResult(c.Listings(ctx))
	case "add":
		if err := need(1); err != nil {
			return err
		}
		return c.AddToCart(ctx, args[1])
	case "remove":
		if err := need(1); err != nil {
			return err
		}
		return c.RemoveFromCart(ctx, args[1])
	case "cart":
		for _, e := range c.Cart.Entries() {
			fmt.Printf("%-36s %-24s %8.2f x%d\n", e.ListingID, e.Name, e.Price, e.Quantity)
		}
		fmt.Printf("total: %s\n", strconv.FormatFloat(c.Cart.Total(), 'f', 2, 64))
		return nil
	case "checkout":
		if err := need(4); err != nil {
			return err
		}
		order, err := c.Checkout(ctx, api.Delivery{Name: args[1], Address: args[2], Phone: args[3], PaymentMethod: args[4]})
		var fl *checkout.Failure
		if errors.As(err, &fl) && fl.Kind == checkout.KindStale {
			for _, id := range fl.Removed {
				fmt.Printf("removed from cart, no longer listed: %s\n", id)
			}
		}
		return printResult(order, err)
	case "orders":
		return printResult(c.MyOrders(ctx))
	case "ban-listing", "unban-listing":
		if err := need(1); err != nil {
			return err
		}
		return printResult(c.SetListingBanned(ctx, args[1], args[0] == "ban-listing"))
	case "ban-user", "unban-user":
		if err := need(1); err != nil {
			return err
		}
		return printResult(c.SetAccountBanned(ctx, args[1], args[0] == "ban-user"))
	case "order-status":
		if err := need(2); err != nil {
			return err
		}
		return printResult(c.UpdateOrderStatus(ctx, args[1], args[2]))
	}
	return fmt.Errorf("unknown command %q\n%s", args[0], usage)
}

func printResult(v any, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
