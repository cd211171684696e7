package clients

import (
	"context"
	"net/http"

	"storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

type AuthClient interface {
	// Login exchanges credentials for an access token.
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Me(ctx context.Context) (*domain.User, error)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse covers both the access/refresh pair and a plain token.
type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	Token   string `json:"token"`
}

type authHTTPClient struct {
	api *APIClient
	log *logrus.Logger
}

func NewAuthClient(api *APIClient, logger *logrus.Logger) AuthClient {
	return &authHTTPClient{api: api, log: logger}
}

func (c *authHTTPClient) Login(ctx context.Context, email, password string) (string, error) {
	c.log.Infof("AuthClient: Requesting token for %s", email)
	var resp loginResponse
	if err := c.api.Do(ctx, http.MethodPost, "/auth/login/", nil, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Access != "" {
		return resp.Access, nil
	}
	if resp.Token != "" {
		return resp.Token, nil
	}
	c.log.Errorf("AuthClient: Login response for %s carried no token", email)
	return "", domain.ErrMissingToken
}

func (c *authHTTPClient) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	c.log.Infof("AuthClient: Registering %s (%s)", req.Email, req.Username)
	var user domain.User
	if err := c.api.Do(ctx, http.MethodPost, "/auth/register/", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *authHTTPClient) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.api.Do(ctx, http.MethodGet, "/users/me/", nil, nil, &user); err != nil {
		return nil, err
	}
	c.log.Debugf("AuthClient: Identity resolved to user %d (%s)", user.ID, user.Username)
	return &user, nil
}
