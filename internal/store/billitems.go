package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"kadaipos/engine/internal/domain"
)

// Line items are persisted inside the bill row as a tagged JSON envelope.
// The shape has changed across releases, so every read goes through an
// explicit version switch instead of trusting the raw payload.
//
// version 1: bare array of {product_id, name, price, qty}. No tax fields,
// written before tax-inclusive pricing existed.
// version 2: {"version": 2, "items": [...]} with the full BillItem shape.
const billItemsVersion = 2

type billItemsEnvelope struct {
	Version int               `json:"version"`
	Items   []domain.BillItem `json:"items"`
}

type legacyBillItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Qty       int     `json:"qty"`
}

func EncodeBillItems(items []domain.BillItem) ([]byte, error) {
	if items == nil {
		items = []domain.BillItem{}
	}
	payload, err := json.Marshal(billItemsEnvelope{Version: billItemsVersion, Items: items})
	if err != nil {
		return nil, fmt.Errorf("%w: encode line items: %v", ErrDecode, err)
	}
	return payload, nil
}

// DecodeBillItems parses a persisted line-item payload, migrating legacy
// version-1 rows on read. Anything it cannot make sense of is ErrDecode:
// a bill whose items cannot be trusted must not be silently re-totalled.
func DecodeBillItems(raw []byte) ([]domain.BillItem, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty line-item payload", ErrDecode)
	}

	if trimmed[0] == '[' {
		return decodeLegacyBillItems(trimmed)
	}

	var envelope billItemsEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: line-item envelope: %v", ErrDecode, err)
	}
	switch envelope.Version {
	case billItemsVersion:
		if err := validateDecodedItems(envelope.Items); err != nil {
			return nil, err
		}
		return envelope.Items, nil
	default:
		return nil, fmt.Errorf("%w: unsupported line-item version %d", ErrDecode, envelope.Version)
	}
}

func decodeLegacyBillItems(raw []byte) ([]domain.BillItem, error) {
	var legacy []legacyBillItem
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("%w: legacy line items: %v", ErrDecode, err)
	}

	items := make([]domain.BillItem, 0, len(legacy))
	for _, item := range legacy {
		items = append(items, domain.BillItem{
			ProductID: item.ProductID,
			NameEN:    item.Name,
			Price:     item.Price,
			Qty:       item.Qty,
		})
	}
	if err := validateDecodedItems(items); err != nil {
		return nil, err
	}
	return items, nil
}

func validateDecodedItems(items []domain.BillItem) error {
	for i, item := range items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: line item %d has no product id", ErrDecode, i)
		}
		if item.Qty < 1 {
			return fmt.Errorf("%w: line item %d has quantity %d", ErrDecode, i, item.Qty)
		}
	}
	return nil
}
