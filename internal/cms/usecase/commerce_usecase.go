package usecase

import (
	"context"
	"strings"

	"blog-cms/internal/cms/domain/model"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/validation"
)

// CommerceUsecaseInterface is the admin view of orders and products.
type CommerceUsecaseInterface interface {
	ListOrders(ctx context.Context, req ListOrdersRequest) ([]*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ExportOrders(ctx context.Context, req ExportRequest) (*ExportFile, error)
	ListProducts(ctx context.Context, req ListProductsRequest) ([]*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	SetProductActive(ctx context.Context, req SetProductActiveRequest) (*model.Product, error)
}

type CommerceUsecase struct {
	deps Dependencies
}

var _ CommerceUsecaseInterface = (*CommerceUsecase)(nil)

func NewCommerceUsecase(deps Dependencies) *CommerceUsecase {
	return &CommerceUsecase{deps: deps.withDefaults()}
}

var orderExporter = exporter[model.Order]{
	name:     "orders",
	variable: "order",
	header: []string{"orderNumber", "createdTimestamp", "status", "productId", "productName", "listPrice",
		"discountCouponCode", "amountPaid", "currency", "customerEmail", "customerName", "paymentChargeId"},
	row: func(o *model.Order) []string {
		return []string{
			o.OrderNumber, formatTime(o.CreatedTimestamp), o.Status, o.ProductID, o.ProductName, formatMoney(o.ListPrice),
			o.DiscountCouponCode, formatMoney(o.AmountPaid), o.Currency, o.CustomerEmail, o.CustomerName, o.PaymentChargeID,
		}
	},
}

// ListOrders returns orders, newest first.
func (uc *CommerceUsecase) ListOrders(ctx context.Context, req ListOrdersRequest) ([]*model.Order, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	q := model.NewQuery().OrderBy(model.FieldCreatedTimestamp, model.Descending).WithLimit(req.Limit).WithOffset(req.Offset)
	if req.Status != "" {
		q = q.Where(model.FieldStatus, model.OperatorEqual, req.Status)
	}
	orders, err := uc.deps.Stores.Orders.Find(ctx, q)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list orders")
	}
	return orders, nil
}

func (uc *CommerceUsecase) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("id is required")
	}
	order, err := uc.deps.Stores.Orders.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("order").WithCause(err)
		}
		return nil, apperrors.WrapError(err, "failed to read order")
	}
	return order, nil
}

// ExportOrders exports orders matching req.Filter, a CEL expression over the
// variable order.
func (uc *CommerceUsecase) ExportOrders(ctx context.Context, req ExportRequest) (*ExportFile, error) {
	orders, err := uc.deps.Stores.Orders.Find(ctx, model.NewQuery().OrderBy(model.FieldCreatedTimestamp, model.Ascending))
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read orders")
	}
	return orderExporter.export(req, orders, uc.deps.now())
}

// ListProducts returns products ordered by name.
func (uc *CommerceUsecase) ListProducts(ctx context.Context, req ListProductsRequest) ([]*model.Product, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	q := model.NewQuery().OrderBy(model.FieldName, model.Ascending).WithLimit(req.Limit).WithOffset(req.Offset)
	if req.Active != nil {
		q = q.Where(model.FieldActive, model.OperatorEqual, *req.Active)
	}
	products, err := uc.deps.Stores.Products.Find(ctx, q)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list products")
	}
	return products, nil
}

func (uc *CommerceUsecase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("id is required")
	}
	product, err := uc.deps.Stores.Products.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("product").WithCause(err)
		}
		return nil, apperrors.WrapError(err, "failed to read product")
	}
	return product, nil
}

func (uc *CommerceUsecase) SetProductActive(ctx context.Context, req SetProductActiveRequest) (*model.Product, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	product, err := uc.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	product.Active = req.Active
	product.LastModifiedTimestamp = uc.deps.now()
	err = uc.deps.Stores.Products.Update(ctx, product.ID, map[string]interface{}{
		model.FieldActive:                product.Active,
		model.FieldLastModifiedTimestamp: product.LastModifiedTimestamp,
	})
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to update product")
	}
	return product, nil
}
