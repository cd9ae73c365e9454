package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/invkeeper/internal/client/client"
	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/common"
	"github.com/dmitrijs2005/invkeeper/internal/logging"
)

// ConflictError reports that the resource changed since the caller read it.
// The caller should refresh and decide again; nothing is retried or merged.
type ConflictError struct {
	ID              models.ID
	ExpectedVersion int64
	// CurrentVersion is set when the server disclosed it.
	CurrentVersion *int64
	Message        string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("product %s was modified by someone else (expected version %d", e.ID, e.ExpectedVersion)
	if e.CurrentVersion != nil {
		msg += fmt.Sprintf(", current %d", *e.CurrentVersion)
	}
	msg += ")"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *ConflictError) Unwrap() error { return common.ErrVersionConflict }

// ValidationError is a rejected update, either caught locally or by the server.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid update: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return common.ErrValidation }

// InventoryService reads products and submits version-stamped updates.
//
// Contract:
//   - SubmitUpdate/UpdateQuantity: send the change together with the version
//     the caller last saw. Success yields version+1; a concurrent change yields
//     *ConflictError and leaves the server copy untouched.
//   - Refresh: re-read a product after a conflict.
type InventoryService interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) (*models.Page[models.Product], error)
	Refresh(ctx context.Context, id models.ID) (*models.Product, error)
	SubmitUpdate(ctx context.Context, id models.ID, fields models.ProductUpdate, expectedVersion int64) (*models.Product, error)
	UpdateQuantity(ctx context.Context, id models.ID, quantity float64, expectedVersion int64) (*models.Product, error)
}

type inventoryService struct {
	client client.Client
	log    logging.Logger
}

func NewInventoryService(client client.Client, log logging.Logger) InventoryService {
	return &inventoryService{client: client, log: log.With("component", "inventory")}
}

func (s *inventoryService) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.Page[models.Product], error) {
	if filter.Page < 0 || filter.Size < 0 {
		return nil, &ValidationError{Field: "page", Message: "must not be negative"}
	}
	page, err := s.client.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return page, nil
}

func (s *inventoryService) Refresh(ctx context.Context, id models.ID) (*models.Product, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}
	p, err := s.client.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (s *inventoryService) SubmitUpdate(ctx context.Context, id models.ID, fields models.ProductUpdate, expectedVersion int64) (*models.Product, error) {
	if err := validateUpdate(id, fields, expectedVersion); err != nil {
		return nil, err
	}
	fields.Version = expectedVersion

	p, err := s.client.UpdateProduct(ctx, id, fields)
	return s.settle(ctx, id, expectedVersion, p, err)
}

func (s *inventoryService) UpdateQuantity(ctx context.Context, id models.ID, quantity float64, expectedVersion int64) (*models.Product, error) {
	if err := validateUpdate(id, models.ProductUpdate{Quantity: &quantity}, expectedVersion); err != nil {
		return nil, err
	}

	p, err := s.client.UpdateQuantity(ctx, id, models.QuantityUpdate{Quantity: quantity, Version: expectedVersion})
	return s.settle(ctx, id, expectedVersion, p, err)
}

// settle classifies the outcome of an update call. A success whose version is
// not expected+1 is reported with ErrUnexpectedVersion alongside the product.
func (s *inventoryService) settle(ctx context.Context, id models.ID, expected int64, p *models.Product, err error) (*models.Product, error) {
	if err != nil {
		if cerr := asConflict(id, expected, err); cerr != nil {
			s.log.Info(ctx, "update rejected by version check", "id", id, "expected_version", expected)
			return nil, cerr
		}
		if verr := asValidation(err); verr != nil {
			return nil, verr
		}
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}

	if p.Version != expected+1 {
		s.log.Warn(ctx, "server returned unexpected version", "id", id, "expected_version", expected+1, "got_version", p.Version)
		return p, fmt.Errorf("%w: product %s is at version %d, want %d", common.ErrUnexpectedVersion, id, p.Version, expected+1)
	}
	return p, nil
}

func validateUpdate(id models.ID, u models.ProductUpdate, expectedVersion int64) error {
	switch {
	case id == "":
		return &ValidationError{Field: "id", Message: "is required"}
	case expectedVersion < 0:
		return &ValidationError{Field: "version", Message: "must not be negative"}
	case u.IsEmpty():
		return &ValidationError{Message: "no fields to change"}
	case u.Quantity != nil && *u.Quantity < 0:
		return &ValidationError{Field: "quantity", Message: "must be >= 0"}
	case u.Price != nil && *u.Price < 0:
		return &ValidationError{Field: "price", Message: "must be >= 0"}
	case u.Name != nil && strings.TrimSpace(*u.Name) == "":
		return &ValidationError{Field: "name", Message: "is required"}
	case u.SKU != nil && strings.TrimSpace(*u.SKU) == "":
		return &ValidationError{Field: "sku", Message: "is required"}
	case u.UOM != nil && !u.UOM.Valid():
		return &ValidationError{Field: "uom", Message: fmt.Sprintf("unknown unit %q", *u.UOM)}
	}
	return nil
}

// duplicateSKU is the error title the API uses for its other 409 response.
const duplicateSKU = "duplicate sku"

func asConflict(id models.ID, expected int64, err error) *ConflictError {
	var re *client.ResponseError
	if !errors.As(err, &re) {
		return nil
	}

	conflict := re.Status() == http.StatusConflict && !strings.EqualFold(re.Body.Error, duplicateSKU)
	if !conflict && !isConflictPayload(re.Body) {
		return nil
	}
	return &ConflictError{
		ID:              id,
		ExpectedVersion: expected,
		CurrentVersion:  re.Body.CurrentVersion,
		Message:         re.Body.Text(),
	}
}

// isConflictPayload recognizes optimistic-lock failures reported with a
// status other than 409.
func isConflictPayload(b models.ErrorResponse) bool {
	if b.CurrentVersion != nil {
		return true
	}
	text := strings.ToLower(b.Error + " " + b.Message)
	if strings.Contains(text, "optimistic") {
		return true
	}
	return strings.Contains(text, "version") &&
		(strings.Contains(text, "conflict") || strings.Contains(text, "mismatch") || strings.Contains(text, "stale"))
}

func asValidation(err error) *ValidationError {
	var re *client.ResponseError
	if !errors.As(err, &re) {
		return nil
	}
	switch {
	case re.Status() == http.StatusConflict:
		return &ValidationError{Field: "sku", Message: re.Body.Text()}
	case errors.Is(re.Err, common.ErrValidation):
		return &ValidationError{Message: re.Err.Message}
	}
	return nil
}
