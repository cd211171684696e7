package fakeapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (s *Server) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	s.mu.Lock()
	acc := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	if acc == nil || acc.password != req.Password {
		s.mu.Unlock()
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}
	token := s.issueLocked(acc.user.ID, time.Now().Add(time.Hour))
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"access": token, "refresh": "refresh-" + token})
}

type registerRequest struct {
	Username        string          `json:"username" binding:"required"`
	Email           string          `json:"email" binding:"required"`
	Password        string          `json:"password" binding:"required,min=8"`
	PasswordConfirm string          `json:"password_confirm"`
	UserType        domain.UserType `json:"user_type"`
	PhoneNumber     string          `json:"phone_number"`
	Location        string          `json:"location"`
}

func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	// Field errors from binding are reported together with the uniqueness
	// check below, so a bad password and a taken email show up in one body.
	invalid := gin.H{}
	if err := c.ShouldBindJSON(&req); err != nil {
		body, ok := fieldErrors(err)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body: " + err.Error()})
			return
		}
		invalid = body
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[strings.ToLower(req.Email)]; exists && req.Email != "" {
		invalid["email"] = []string{"user with this email address already exists."}
	}
	if len(invalid) > 0 {
		c.JSON(http.StatusBadRequest, invalid)
		return
	}
	if req.Password != req.PasswordConfirm {
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Passwords don't match"}})
		return
	}

	s.nextID++
	userType := req.UserType
	if userType == "" {
		userType = domain.UserTypeConsumer
	}
	user := domain.User{
		ID:          s.nextID,
		Username:    req.Username,
		Email:       req.Email,
		UserType:    userType,
		PhoneNumber: req.PhoneNumber,
		Location:    req.Location,
		IsActive:    true,
		DateJoined:  time.Now().UTC(),
	}
	s.accounts[strings.ToLower(req.Email)] = &account{user: user, password: req.Password}
	c.JSON(http.StatusCreated, user)
}

func (s *Server) Me(c *gin.Context) {
	userID := c.GetInt64("userID")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.ID == userID {
			c.JSON(http.StatusOK, acc.user)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

func (s *Server) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "12"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 12
	}
	search := strings.ToLower(c.Query("search"))
	category := c.Query("category")
	priceMin, minErr := decimal.NewFromString(c.Query("price_min"))
	priceMax, maxErr := decimal.NewFromString(c.Query("price_max"))

	s.mu.Lock()
	all := sortedProducts(s.products)
	s.mu.Unlock()

	filtered := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if search != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), search) {
			continue
		}
		if category != "" && strconv.FormatInt(p.Category, 10) != category {
			continue
		}
		if minErr == nil && p.Price.LessThan(priceMin) {
			continue
		}
		if maxErr == nil && p.Price.GreaterThan(priceMax) {
			continue
		}
		filtered = append(filtered, p)
	}

	switch c.Query("ordering") {
	case "price":
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Price.LessThan(filtered[j].Price) })
	case "-price":
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Price.GreaterThan(filtered[j].Price) })
	case "name":
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Name < filtered[j].Name })
	}

	start := (page - 1) * pageSize
	if start > len(filtered) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
		return
	}
	end := min(start+pageSize, len(filtered))

	var next, previous *string
	if end < len(filtered) {
		n := fmt.Sprintf("?page=%d&page_size=%d", page+1, pageSize)
		next = &n
	}
	if page > 1 {
		p := fmt.Sprintf("?page=%d&page_size=%d", page-1, pageSize)
		previous = &p
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(filtered),
		"next":     next,
		"previous": previous,
		"results":  filtered[start:end],
	})
}

func (s *Server) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	s.mu.Lock()
	p, ok := s.products[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) ListCategories(c *gin.Context) {
	s.mu.Lock()
	categories := append([]domain.Category{}, s.categories...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, categories)
}

func (s *Server) cartRowJSON(row cartRow) gin.H {
	p := s.products[row.ProductID]
	subtotal, _ := p.Price.Mul(decimal.NewFromInt(int64(row.Quantity))).Float64()
	return gin.H{
		"id":            row.ID,
		"product":       row.ProductID,
		"product_name":  p.Name,
		"product_price": p.Price.StringFixed(2),
		"quantity":      row.Quantity,
		"subtotal":      subtotal,
	}
}

func (s *Server) ListCart(c *gin.Context) {
	userID := c.GetInt64("userID")
	s.mu.Lock()
	rows := make([]gin.H, 0, len(s.carts[userID]))
	for _, row := range s.carts[userID] {
		rows = append(rows, s.cartRowJSON(row))
	}
	envelope := s.EnvelopeCart
	s.mu.Unlock()

	if envelope {
		c.JSON(http.StatusOK, gin.H{"count": len(rows), "next": nil, "previous": nil, "results": rows})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) AddCartItem(c *gin.Context) {
	userID := c.GetInt64("userID")
	var req struct {
		Product  int64 `json:"product" binding:"required,gt=0"`
		Quantity int   `json:"quantity" binding:"required,gt=0"`
	}
	if !bindJSON(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[req.Product]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"product": []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", req.Product)}})
		return
	}
	for _, row := range s.carts[userID] {
		if row.ProductID == req.Product {
			c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"The fields user, product must make a unique set."}})
			return
		}
	}
	s.nextID++
	row := cartRow{ID: s.nextID, ProductID: req.Product, Quantity: req.Quantity}
	s.carts[userID] = append(s.carts[userID], row)
	c.JSON(http.StatusCreated, s.cartRowJSON(row))
}

func (s *Server) UpdateCartItem(c *gin.Context) {
	userID := c.GetInt64("userID")
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	var req struct {
		Quantity int `json:"quantity" binding:"required,gt=0"`
	}
	if !bindJSON(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.carts[userID]
	for i := range rows {
		if rows[i].ID == id {
			rows[i].Quantity = req.Quantity
			c.JSON(http.StatusOK, s.cartRowJSON(rows[i]))
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

func (s *Server) DeleteCartItem(c *gin.Context) {
	userID := c.GetInt64("userID")
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.carts[userID]
	for i := range rows {
		if rows[i].ID == id {
			s.carts[userID] = append(rows[:i:i], rows[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

type checkoutLineRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

func (s *Server) Checkout(c *gin.Context) {
	userID := c.GetInt64("userID")
	var req struct {
		DeliveryAddress string                `json:"delivery_address" binding:"required"`
		OrderNotes      string                `json:"order_notes"`
		CartItems       []checkoutLineRequest `json:"cart_items" binding:"dive"`
	}
	if !bindJSON(c, &req) {
		return
	}
	// The required tag accepts whitespace.
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"delivery_address": []string{"This field may not be blank."}})
		return
	}
	if len(req.CartItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Cart is empty"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	order := domain.Order{
		ID:              s.nextID,
		User:            userID,
		TotalAmount:     decimal.Zero,
		Status:          domain.StatusPending,
		DeliveryAddress: req.DeliveryAddress,
		OrderNotes:      req.OrderNotes,
		CreatedAt:       time.Now().UTC(),
	}
	for _, line := range req.CartItems {
		p, ok := s.products[line.ProductID]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Product %d does not exist", line.ProductID)})
			return
		}
		if p.Stock > 0 && p.Stock < line.Quantity {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Insufficient stock for %s", p.Name)})
			return
		}
		s.nextID++
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		order.Items = append(order.Items, domain.OrderItem{
			ID:              s.nextID,
			Product:         p.ID,
			ProductName:     p.Name,
			Quantity:        line.Quantity,
			PriceAtPurchase: p.Price,
			Subtotal:        subtotal,
		})
		order.TotalAmount = order.TotalAmount.Add(subtotal)
	}
	order.ItemCount = len(order.Items)
	s.orders[userID] = append(s.orders[userID], order)
	delete(s.carts, userID)
	c.JSON(http.StatusCreated, order)
}

func (s *Server) ListOrders(c *gin.Context) {
	userID := c.GetInt64("userID")
	s.mu.Lock()
	orders := append([]domain.Order{}, s.orders[userID]...)
	s.mu.Unlock()

	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "next": nil, "previous": nil, "results": orders})
}
