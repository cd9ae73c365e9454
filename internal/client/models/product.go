package models

import (
	"net/url"
	"strconv"
	"time"
)

// Versioned is a resource guarded by optimistic concurrency: a write is
// accepted only when it names the current version, and bumps it by one.
type Versioned interface {
	GetVersion() int64
}

type UnitOfMeasure string

const (
	UnitPieces UnitOfMeasure = "PCS"
	UnitKg     UnitOfMeasure = "KG"
	UnitLiter  UnitOfMeasure = "LITER"
	UnitGram   UnitOfMeasure = "GRAM"
	UnitMeter  UnitOfMeasure = "METER"
	UnitBox    UnitOfMeasure = "BOX"
	UnitDozen  UnitOfMeasure = "DOZEN"
	UnitPack   UnitOfMeasure = "PACK"
)

var knownUnits = map[UnitOfMeasure]struct{}{
	UnitPieces: {}, UnitKg: {}, UnitLiter: {}, UnitGram: {},
	UnitMeter: {}, UnitBox: {}, UnitDozen: {}, UnitPack: {},
}

// Valid reports whether u is one of the units the API understands.
func (u UnitOfMeasure) Valid() bool {
	_, ok := knownUnits[u]
	return ok
}

type Product struct {
	ID          ID            `json:"id"`
	Name        string        `json:"name"`
	SKU         string        `json:"sku"`
	Price       float64       `json:"price"`
	Quantity    float64       `json:"quantity"`
	Description string        `json:"description,omitempty"`
	UOM         UnitOfMeasure `json:"uom"`
	Active      bool          `json:"active"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	DeletedAt   *time.Time    `json:"deletedAt,omitempty"`
	Version     int64         `json:"version"`
}

func (p Product) GetVersion() int64 { return p.Version }

// ProductUpdate carries the fields to change; nil fields are left as they are.
// Version is the version the caller last observed.
type ProductUpdate struct {
	Name        *string        `json:"name,omitempty"`
	SKU         *string        `json:"sku,omitempty"`
	Price       *float64       `json:"price,omitempty"`
	Quantity    *float64       `json:"quantity,omitempty"`
	Description *string        `json:"description,omitempty"`
	UOM         *UnitOfMeasure `json:"uom,omitempty"`
	Active      *bool          `json:"active,omitempty"`
	Version     int64          `json:"version"`
}

// IsEmpty reports whether no field is set.
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.SKU == nil && u.Price == nil && u.Quantity == nil &&
		u.Description == nil && u.UOM == nil && u.Active == nil
}

// QuantityUpdate is the body of PATCH /products/{id}/quantity.
type QuantityUpdate struct {
	Quantity float64 `json:"quantity"`
	Version  int64   `json:"version"`
}

// ProductFilter holds listing parameters. Zero values are omitted from the query.
type ProductFilter struct {
	Page        int
	Size        int
	Sort        string
	Name        string
	SKU         string
	UOM         UnitOfMeasure
	Active      *bool
	MinPrice    *float64
	MaxPrice    *float64
	MinQuantity *float64
	MaxQuantity *float64
}

// Values encodes the filter as URL query parameters.
func (f ProductFilter) Values() url.Values {
	v := url.Values{}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Size > 0 {
		v.Set("size", strconv.Itoa(f.Size))
	}
	setString := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	setFloat := func(k string, p *float64) {
		if p != nil {
			v.Set(k, strconv.FormatFloat(*p, 'f', -1, 64))
		}
	}
	setString("sort", f.Sort)
	setString("name", f.Name)
	setString("sku", f.SKU)
	setString("uom", string(f.UOM))
	if f.Active != nil {
		v.Set("active", strconv.FormatBool(*f.Active))
	}
	setFloat("minPrice", f.MinPrice)
	setFloat("maxPrice", f.MaxPrice)
	setFloat("minQuantity", f.MinQuantity)
	setFloat("maxQuantity", f.MaxQuantity)
	return v
}
