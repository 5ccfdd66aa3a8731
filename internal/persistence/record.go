package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"quickbasket/internal/model"
	cerrors "quickbasket/pkg/errors"

	"github.com/shopspring/decimal"
)

// wireItem is the stored shape of a line item. Price is kept as a JSON
// number so stored records stay readable by other clients of the key.
type wireItem struct {
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Image    string      `json:"image"`
	Quantity int         `json:"quantity"`
}

type wireRecord struct {
	Items     []wireItem `json:"items"`
	Timestamp int64      `json:"timestamp"`
	Version   string     `json:"version"`
}

func encodeRecord(items []model.LineItem, now time.Time) (string, error) {
	rec := wireRecord{
		Items:     make([]wireItem, 0, len(items)),
		Timestamp: now.UnixMilli(),
		Version:   RecordVersion,
	}
	for _, item := range items {
		rec.Items = append(rec.Items, wireItem{
			Name:     item.Name,
			Price:    json.Number(item.Price.String()),
			Image:    item.Image,
			Quantity: item.Quantity,
		})
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode cart record: %w", err)
	}
	return string(b), nil
}

// decodeRecord parses a stored record. It fails with ErrStorageCorrupted when
// the payload is not a JSON object with an items array; otherwise it returns
// the valid items and how many were dropped.
func decodeRecord(raw string) ([]model.LineItem, int, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", cerrors.ErrStorageCorrupted, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("%w: trailing data after record", cerrors.ErrStorageCorrupted)
	}

	obj, ok := payload.(map[string]interface{})
	if !ok {
		return nil, 0, fmt.Errorf("%w: record is not an object", cerrors.ErrStorageCorrupted)
	}
	rawItems, ok := obj["items"].([]interface{})
	if !ok {
		return nil, 0, fmt.Errorf("%w: record has no items array", cerrors.ErrStorageCorrupted)
	}

	items := make([]model.LineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		if item, ok := validateItem(raw); ok {
			items = append(items, item)
		}
	}
	return items, len(rawItems) - len(items), nil
}

// validateItem checks one stored element against the line item shape:
// string name, numeric price > 0, whole numeric quantity in
// [1, model.MaxQuantity], string image.
func validateItem(raw interface{}) (model.LineItem, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return model.LineItem{}, false
	}

	name, ok := m["name"].(string)
	if !ok {
		return model.LineItem{}, false
	}
	image, ok := m["image"].(string)
	if !ok {
		return model.LineItem{}, false
	}

	priceNum, ok := m["price"].(json.Number)
	if !ok {
		return model.LineItem{}, false
	}
	price, err := decimal.NewFromString(priceNum.String())
	if err != nil || !price.IsPositive() {
		return model.LineItem{}, false
	}

	qtyNum, ok := m["quantity"].(json.Number)
	if !ok {
		return model.LineItem{}, false
	}
	qty, err := decimal.NewFromString(qtyNum.String())
	if err != nil || !qty.IsPositive() || !qty.IsInteger() || qty.GreaterThan(decimal.NewFromInt(model.MaxQuantity)) {
		return model.LineItem{}, false
	}

	return model.LineItem{
		Name:     name,
		Price:    price,
		Image:    image,
		Quantity: int(qty.IntPart()),
	}, true
}
