// Package cli is the terminal rendition of the storefront views: each
// command maps to one page action and prints its result.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"storefront/internal/domain"
	"storefront/internal/usecase"

	"github.com/sirupsen/logrus"
)

var ErrUnknownCommand = errors.New("unknown command")

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

type Handler struct {
	session  *usecase.SessionUseCase
	cart     *usecase.CartUseCase
	catalog  *usecase.CatalogUseCase
	checkout *usecase.CheckoutUseCase
	orders   *usecase.OrderUseCase
	out      io.Writer
	log      *logrus.Logger

	commands map[string]command
}

func NewHandler(
	session *usecase.SessionUseCase,
	cart *usecase.CartUseCase,
	catalog *usecase.CatalogUseCase,
	checkout *usecase.CheckoutUseCase,
	orders *usecase.OrderUseCase,
	out io.Writer,
	logger *logrus.Logger,
) *Handler {
	h := &Handler{
		session:  session,
		cart:     cart,
		catalog:  catalog,
		checkout: checkout,
		orders:   orders,
		out:      out,
		log:      logger,
	}
	h.RegisterCommands()
	return h
}

func (h *Handler) RegisterCommands() {
	h.commands = map[string]command{
		"login":      {"login -email E -password P", h.Login},
		"logout":     {"logout", h.Logout},
		"register":   {"register -username U -email E -password P -confirm P [-type consumer|farmer] [-phone N] [-location L]", h.Register},
		"whoami":     {"whoami", h.WhoAmI},
		"products":   {"products [-page N] [-search S] [-category ID] [-min X] [-max X] [-ordering F]", h.ListProducts},
		"product":    {"product -id N", h.GetProduct},
		"categories": {"categories", h.ListCategories},
		"cart":       {"cart", h.ShowCart},
		"cart-add":   {"cart-add -product N [-qty N]", h.AddToCart},
		"cart-set":   {"cart-set -item N -qty N", h.SetQuantity},
		"cart-rm":    {"cart-rm -item N", h.RemoveFromCart},
		"cart-clear": {"cart-clear", h.ClearCart},
		"checkout":   {"checkout -address A [-notes N]", h.Checkout},
		"orders":     {"orders", h.ListOrders},
	}
}

// Run executes the command named by args[0].
func (h *Handler) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		h.Usage()
		return fmt.Errorf("%w: none given", ErrUnknownCommand)
	}
	cmd, ok := h.commands[args[0]]
	if !ok {
		h.Usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	h.log.Debugf("CLI: Running %s", args[0])
	return cmd.run(ctx, args[1:])
}

func (h *Handler) Usage() {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(h.out, "Commands:")
	for _, name := range names {
		fmt.Fprintf(h.out, "  %s\n", h.commands[name].usage)
	}
}

func (h *Handler) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(h.out)
	return fs
}

func (h *Handler) Login(ctx context.Context, args []string) error {
	fs := h.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := h.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(h.out, "Logged in as %s (%s)\n", user.Username, user.Email)
	return nil
}

func (h *Handler) Logout(ctx context.Context, _ []string) error {
	h.session.Logout(ctx)
	fmt.Fprintln(h.out, "Logged out")
	return nil
}

func (h *Handler) Register(ctx context.Context, args []string) error {
	fs := h.flags("register")
	var req domain.RegisterRequest
	var userType string
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.Password, "password", "", "password")
	fs.StringVar(&req.PasswordConfirm, "confirm", "", "password confirmation")
	fs.StringVar(&userType, "type", string(domain.UserTypeConsumer), "consumer or farmer")
	fs.StringVar(&req.PhoneNumber, "phone", "", "phone number")
	fs.StringVar(&req.Location, "location", "", "location")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.UserType = domain.UserType(userType)

	user, err := h.session.Register(ctx, req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) && len(verr.Fields) > 0 {
			h.printFieldErrors(verr.Fields)
		}
		return err
	}
	if h.session.IsAuthenticated() {
		fmt.Fprintf(h.out, "Registered and logged in as %s\n", user.Username)
	} else {
		fmt.Fprintf(h.out, "Registered %s, please log in\n", user.Username)
	}
	return nil
}

func (h *Handler) WhoAmI(_ context.Context, _ []string) error {
	snap := h.session.Snapshot()
	if !snap.IsAuthenticated() {
		fmt.Fprintln(h.out, "Not logged in")
		return nil
	}
	u := snap.User
	tw := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", u.ID)
	fmt.Fprintf(tw, "Username\t%s\n", u.Username)
	fmt.Fprintf(tw, "Email\t%s\n", u.Email)
	fmt.Fprintf(tw, "Type\t%s\n", u.UserType)
	if u.Location != "" {
		fmt.Fprintf(tw, "Location\t%s\n", u.Location)
	}
	return tw.Flush()
}

func (h *Handler) ListProducts(ctx context.Context, args []string) error {
	fs := h.flags("products")
	var q domain.ProductQuery
	fs.IntVar(&q.Page, "page", 1, "page number")
	fs.StringVar(&q.Search, "search", "", "search text")
	fs.StringVar(&q.Category, "category", "", "category ID")
	fs.StringVar(&q.PriceMin, "min", "", "minimum price")
	fs.StringVar(&q.PriceMax, "max", "", "maximum price")
	fs.StringVar(&q.Ordering, "ordering", "", "ordering field, e.g. price or -price")
	if err := fs.Parse(args); err != nil {
		return err
	}

	page, err := h.catalog.ListProducts(ctx, q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(h.out, "Page %d of %d (%d products)\n", max(q.Page, 1), page.TotalPages, page.Count)
	return nil
}

func (h *Handler) GetProduct(ctx context.Context, args []string) error {
	fs := h.flags("product")
	id := fs.Int64("id", 0, "product ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := h.catalog.GetProduct(ctx, *id)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", p.ID)
	fmt.Fprintf(tw, "Name\t%s\n", p.Name)
	fmt.Fprintf(tw, "Price\t%s\n", p.Price.StringFixed(2))
	fmt.Fprintf(tw, "Available\t%t\n", p.IsAvailable)
	if p.Description != "" {
		fmt.Fprintf(tw, "Description\t%s\n", p.Description)
	}
	return tw.Flush()
}

func (h *Handler) ListCategories(ctx context.Context, _ []string) error {
	tw := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSLUG")
	for _, c := range h.catalog.ListCategories(ctx) {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, c.Slug)
	}
	return tw.Flush()
}

func (h *Handler) ShowCart(ctx context.Context, _ []string) error {
	items := h.cart.FetchCart(ctx)
	return h.printCart(items)
}

func (h *Handler) printCart(items []domain.CartItem) error {
	if len(items) == 0 {
		fmt.Fprintln(h.out, "Your cart is empty")
		return nil
	}
	tw := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPRODUCT\tPRICE\tQTY\tSUBTOTAL")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			item.ID, item.ProductName, item.UnitPrice.StringFixed(2), item.Quantity, item.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\t\t%d\t%s\n", domain.CartCount(items), domain.CartTotal(items).StringFixed(2))
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(h.out, "Cart mode: %s\n", h.cart.Mode())
	return nil
}

func (h *Handler) AddToCart(ctx context.Context, args []string) error {
	fs := h.flags("cart-add")
	productID := fs.Int64("product", 0, "product ID")
	qty := fs.Int("qty", 1, "quantity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	product, err := h.catalog.GetProduct(ctx, *productID)
	if err != nil {
		return err
	}
	if err := h.cart.AddItem(ctx, *product, *qty); err != nil {
		return err
	}
	fmt.Fprintf(h.out, "Added %d x %s to cart\n", *qty, product.Name)
	return h.printCart(h.cart.FetchCart(ctx))
}

func (h *Handler) SetQuantity(ctx context.Context, args []string) error {
	fs := h.flags("cart-set")
	itemID := fs.Int64("item", 0, "cart item ID")
	qty := fs.Int("qty", 0, "new quantity, 0 removes the item")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := h.cart.UpdateQuantity(ctx, *itemID, *qty); err != nil {
		return err
	}
	return h.printCart(h.cart.FetchCart(ctx))
}

func (h *Handler) RemoveFromCart(ctx context.Context, args []string) error {
	fs := h.flags("cart-rm")
	itemID := fs.Int64("item", 0, "cart item ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := h.cart.RemoveItem(ctx, *itemID); err != nil {
		return err
	}
	return h.printCart(h.cart.FetchCart(ctx))
}

func (h *Handler) ClearCart(ctx context.Context, _ []string) error {
	if err := h.cart.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(h.out, "Cart cleared")
	return nil
}

func (h *Handler) Checkout(ctx context.Context, args []string) error {
	fs := h.flags("checkout")
	address := fs.String("address", "", "delivery address")
	notes := fs.String("notes", "", "order notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !h.session.IsAuthenticated() {
		fmt.Fprintln(h.out, "Please log in to check out")
		return domain.ErrNotAuthenticated
	}
	order, err := h.checkout.Checkout(ctx, *address, *notes, h.cart.FetchCart(ctx))
	if err != nil {
		return err
	}
	fmt.Fprintf(h.out, "Order #%d placed: %s (%s)\n", order.ID, order.TotalAmount.StringFixed(2), order.Status)
	return nil
}

func (h *Handler) ListOrders(ctx context.Context, _ []string) error {
	if !h.session.IsAuthenticated() {
		fmt.Fprintln(h.out, "Please log in to see your orders")
		return domain.ErrNotAuthenticated
	}
	orders, _ := h.orders.Refresh(ctx)
	if len(orders) == 0 {
		fmt.Fprintln(h.out, "No orders yet")
		return nil
	}
	tw := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tDATE\tSTATUS\tITEMS\tTOTAL")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			o.ID, o.CreatedAt.Format("2006-01-02"), o.Status, orderItemCount(o), o.TotalAmount.StringFixed(2))
	}
	return tw.Flush()
}

func orderItemCount(o domain.Order) int {
	if o.ItemCount > 0 {
		return o.ItemCount
	}
	return len(o.Items)
}

func (h *Handler) printFieldErrors(fields map[string][]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h.out, "  %s: %s\n", name, strings.Join(fields[name], " "))
	}
}
