package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/catalog-approvals/backend/internal/apperr"
)

// Product statuses
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
	ProductStatusDraft    = "draft"
)

const CollectionProducts = "products"

var AllProductStatuses = []string{ProductStatusActive, ProductStatusInactive, ProductStatusDraft}

func IsValidProductStatus(s string) bool {
	for _, st := range AllProductStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Writable product columns. Anything else in a proposal is rejected.
const (
	FieldProductCode    = "product_code"
	FieldProductName    = "product_name"
	FieldLevel1Category = "level_1_category"
	FieldLevel2Category = "level_2_category"
	FieldLevel3Category = "level_3_category"
	FieldStatus         = "status"
	FieldMaterial       = "material"
	FieldColor          = "color"
	FieldSize           = "size"
	FieldStyle          = "style"
	FieldSellingPoints  = "selling_points"
	FieldTaxRate        = "tax_rate"
)

var ProductFields = []string{
	FieldProductCode, FieldProductName,
	FieldLevel1Category, FieldLevel2Category, FieldLevel3Category,
	FieldStatus, FieldMaterial, FieldColor, FieldSize, FieldStyle,
	FieldSellingPoints, FieldTaxRate,
}

// RequiredProductFields must be present and non-empty on create.
var RequiredProductFields = []string{FieldProductName, FieldProductCode, FieldLevel1Category}

func IsProductField(name string) bool {
	for _, f := range ProductFields {
		if f == name {
			return true
		}
	}
	return false
}

type Product struct {
	ID             int64     `json:"id"`
	ProductCode    string    `json:"product_code"`
	ProductName    string    `json:"product_name"`
	Level1Category string    `json:"level_1_category"`
	Level2Category *string   `json:"level_2_category,omitempty"`
	Level3Category *string   `json:"level_3_category,omitempty"`
	Status         string    `json:"status"`
	Material       *string   `json:"material,omitempty"`
	Color          *string   `json:"color,omitempty"`
	Size           *string   `json:"size,omitempty"`
	Style          *string   `json:"style,omitempty"`
	SellingPoints  *string   `json:"selling_points,omitempty"`
	TaxRate        *float64  `json:"tax_rate,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Values snapshots the product as a field map, the shape stored in
// change-request and ledger prior/new values.
func (p *Product) Values() map[string]any {
	return map[string]any{
		"id":                p.ID,
		FieldProductCode:    p.ProductCode,
		FieldProductName:    p.ProductName,
		FieldLevel1Category: p.Level1Category,
		FieldLevel2Category: derefString(p.Level2Category),
		FieldLevel3Category: derefString(p.Level3Category),
		FieldStatus:         p.Status,
		FieldMaterial:       derefString(p.Material),
		FieldColor:          derefString(p.Color),
		FieldSize:           derefString(p.Size),
		FieldStyle:          derefString(p.Style),
		FieldSellingPoints:  derefString(p.SellingPoints),
		FieldTaxRate:        derefFloat(p.TaxRate),
		"created_at":        p.CreatedAt,
		"updated_at":        p.UpdatedAt,
	}
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// NormalizeProductValues checks a partial field map against the writable
// product columns and coerces values to the column types. Text fields accept
// strings (trimmed) or nil, tax_rate accepts any JSON number or nil.
func NormalizeProductValues(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if !IsProductField(k) {
			return nil, apperr.Validation(k, "unknown field %q", k)
		}

		switch k {
		case FieldTaxRate:
			f, err := toFloat(v)
			if err != nil {
				return nil, apperr.Validation(k, "%v", err)
			}
			out[k] = f
		default:
			if v == nil {
				out[k] = nil
				continue
			}
			s, ok := v.(string)
			if !ok {
				return nil, apperr.Validation(k, "must be a string, got %T", v)
			}
			out[k] = strings.TrimSpace(s)
		}
	}

	if st, ok := out[FieldStatus]; ok {
		s, _ := st.(string)
		if !IsValidProductStatus(s) {
			return nil, apperr.Validation(FieldStatus, "invalid status %q, must be one of: %s", s, strings.Join(AllProductStatuses, ", "))
		}
	}
	for _, f := range RequiredProductFields {
		if v, ok := out[f]; ok && (v == nil || v == "") {
			return nil, apperr.Validation(f, "cannot be empty")
		}
	}
	return out, nil
}

// MissingRequiredFields lists required create fields absent from values.
func MissingRequiredFields(values map[string]any) []string {
	var missing []string
	for _, f := range RequiredProductFields {
		v, ok := values[f]
		if !ok || v == nil || v == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// SortedFieldNames returns the keys of values in a stable order.
func SortedFieldNames(values map[string]any) []string {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func toFloat(v any) (any, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return nil, fmt.Errorf("must be a number, got %T", v)
	}
}
