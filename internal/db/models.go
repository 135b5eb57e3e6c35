package db

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           pgtype.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Tier         string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

type Product struct {
	ID                          pgtype.UUID
	Name                        string
	Slug                        string
	Price                       decimal.Decimal
	EntrepreneurDiscountPercent decimal.Decimal
	TraineeDiscountPercent      decimal.Decimal
	IsActive                    bool
	CreatedAt                   pgtype.Timestamptz
	UpdatedAt                   pgtype.Timestamptz
}

type DeliveryRule struct {
	ID        pgtype.UUID
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	Charge    decimal.Decimal
	IsActive  bool
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type Cart struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type CartItem struct {
	ID          pgtype.UUID
	CartID      pgtype.UUID
	ProductID   pgtype.UUID
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int32
	CreatedAt   pgtype.Timestamptz
}

type Order struct {
	ID                    pgtype.UUID
	UserID                pgtype.UUID
	Tier                  string
	Status                string
	Subtotal              decimal.Decimal
	TotalDiscount         decimal.Decimal
	SubtotalAfterDiscount decimal.Decimal
	DeliveryCharge        decimal.Decimal
	GrandTotal            decimal.Decimal
	DeliveryRuleID        pgtype.UUID
	AddressNote           string
	CreatedAt             pgtype.Timestamptz
}

type OrderItem struct {
	ID                pgtype.UUID
	OrderID           pgtype.UUID
	ProductID         pgtype.UUID
	ProductName       string
	UnitPrice         decimal.Decimal
	Quantity          int32
	LineSubtotal      decimal.Decimal
	ApplicablePercent decimal.Decimal
	LineDiscount      decimal.Decimal
}

type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}

type AuditLog struct {
	ID           pgtype.UUID
	ActorUserID  pgtype.UUID
	Action       string
	ResourceType string
	ResourceID   pgtype.Text
	Method       string
	Route        string
	Status       int32
	IP           pgtype.Text
	UserAgent    pgtype.Text
	RequestID    pgtype.Text
	Metadata     []byte
	CreatedAt    pgtype.Timestamptz
}
