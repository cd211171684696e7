// Package fakeapi is an in-memory stand-in for the marketplace REST API,
// used by tests to exercise the client end to end over real HTTP.
package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const signingKey = "fakeapi-signing-key"

// Recorded is one request as the server saw it.
type Recorded struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type account struct {
	user     domain.User
	password string
}

type cartRow struct {
	ID        int64
	ProductID int64
	Quantity  int
}

type failure struct {
	status int
	body   any
}

type Server struct {
	mu         sync.Mutex
	accounts   map[string]*account // by email
	tokens     map[string]int64    // token -> user id
	products   map[int64]domain.Product
	categories []domain.Category
	carts      map[int64][]cartRow
	orders     map[int64][]domain.Order
	nextID     int64
	requests   []Recorded
	failures   map[string][]failure

	// EnvelopeCart makes GET /cart/items/ answer with a paginated envelope.
	EnvelopeCart bool

	engine *gin.Engine
	log    *logrus.Logger
}

func New(logger *logrus.Logger) *Server {
	gin.SetMode(gin.TestMode)
	useJSONFieldNames()
	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]int64),
		products: make(map[int64]domain.Product),
		carts:    make(map[int64][]cartRow),
		orders:   make(map[int64][]domain.Order),
		nextID:   1000,
		failures: make(map[string][]failure),
		log:      logger,
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery(), s.record(), s.injectFailures())
	s.RegisterRoutes(router.Group("/api"))
	s.engine = router
	return s
}

// Start serves the fake on a local port for the duration of the test and
// returns the API base URL.
func (s *Server) Start(t testing.TB) string {
	srv := httptest.NewServer(s.engine)
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) RegisterRoutes(router gin.IRouter) {
	auth := router.Group("/auth")
	{
		auth.POST("/login/", s.Login)
		auth.POST("/register/", s.Register)
	}
	router.GET("/users/me/", s.requireUser(), s.Me)

	products := router.Group("/products")
	{
		products.GET("/", s.ListProducts)
		products.GET("/categories/", s.ListCategories)
		products.GET("/:id/", s.GetProduct)
	}

	cart := router.Group("/cart/items", s.requireUser())
	{
		cart.GET("/", s.ListCart)
		cart.POST("/", s.AddCartItem)
		cart.PATCH("/:id/", s.UpdateCartItem)
		cart.DELETE("/:id/", s.DeleteCartItem)
	}

	router.POST("/checkout/", s.requireUser(), s.Checkout)
	router.GET("/orders/", s.requireUser(), s.ListOrders)
}

// --- test controls ---

func (s *Server) AddUser(id int64, username, email, password string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := domain.User{
		ID:         id,
		Username:   username,
		Email:      email,
		UserType:   domain.UserTypeConsumer,
		IsActive:   true,
		DateJoined: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	s.accounts[strings.ToLower(email)] = &account{user: user, password: password}
	return user
}

// IssueToken returns a valid token for email as if it had logged in.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[strings.ToLower(email)]
	if acc == nil {
		return ""
	}
	return s.issueLocked(acc.user.ID, time.Now().Add(time.Hour))
}

// IssueExpiredToken returns a token whose exp lies in the past.
func (s *Server) IssueExpiredToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[strings.ToLower(email)]
	if acc == nil {
		return ""
	}
	return s.issueLocked(acc.user.ID, time.Now().Add(-time.Hour))
}

func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *Server) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Server) SetPrice(productID int64, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[productID]; ok {
		p.Price = price
		s.products[productID] = p
	}
}

func (s *Server) AddCategory(c domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
}

// FailNext makes the next request to method+path answer status with body.
// path is relative to the API root, e.g. "/cart/items/".
func (s *Server) FailNext(method, path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " /api" + path
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded requests for method and path (relative to the API root).
func (s *Server) RequestsTo(method, path string) []Recorded {
	var out []Recorded
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == "/api"+path {
			out = append(out, r)
		}
	}
	return out
}

// CartQuantities maps product id to quantity in the user's server cart.
func (s *Server) CartQuantities(userID int64) map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int)
	for _, row := range s.carts[userID] {
		out[row.ProductID] = row.Quantity
	}
	return out
}

func (s *Server) SetOrderStatus(userID, orderID int64, status domain.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders[userID] {
		if s.orders[userID][i].ID == orderID {
			s.orders[userID][i].Status = status
		}
	}
}

// --- middleware ---

func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
			Authorization: c.GetHeader("Authorization"),
			RequestID:     c.GetHeader("X-Request-ID"),
		})
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.Request.URL.Path
		s.mu.Lock()
		queue := s.failures[key]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if f != nil {
			s.log.Debugf("fakeapi: Injecting %d for %s", f.status, key)
			if f.body == nil {
				c.AbortWithStatus(f.status)
				return
			}
			c.AbortWithStatusJSON(f.status, f.body)
			return
		}
		c.Next()
	}
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}

		s.mu.Lock()
		userID, ok := s.tokens[parts[1]]
		s.mu.Unlock()
		if !ok || !s.validSignature(parts[1]) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

func (s *Server) issueLocked(userID int64, exp time.Time) string {
	s.nextID++
	claims := jwt.MapClaims{
		"user_id": userID,
		"jti":     s.nextID,
		"exp":     exp.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		s.log.Errorf("fakeapi: Failed to sign token: %v", err)
		return ""
	}
	s.tokens[token] = userID
	return token
}

func (s *Server) validSignature(token string) bool {
	_, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return []byte(signingKey), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil
}

func sortedProducts(products map[int64]domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
