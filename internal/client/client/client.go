package client

import (
	"context"

	"github.com/dmitrijs2005/invkeeper/internal/client/models"
)

type Client interface {
	Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context) error

	ListProducts(ctx context.Context, filter models.ProductFilter) (*models.Page[models.Product], error)
	GetProduct(ctx context.Context, id models.ID) (*models.Product, error)
	UpdateProduct(ctx context.Context, id models.ID, upd models.ProductUpdate) (*models.Product, error)
	UpdateQuantity(ctx context.Context, id models.ID, upd models.QuantityUpdate) (*models.Product, error)
}
