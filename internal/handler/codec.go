package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/multipriced-checkout/internal/domain/checkout"
	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
)

// Decimal amounts are encoded as JSON strings so they stay exact.

// decodeCheckoutRequest reads {"items":["A","B",...]}.
func decodeCheckoutRequest(data []byte) ([]string, error) {
	var (
		skus []string
		seen bool
	)
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			seen = true
			return d.Arr(func(d *jx.Decoder) error {
				sku, err := d.Str()
				if err != nil {
					return errors.Wrap(err, "item sku")
				}
				skus = append(skus, sku)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode checkout request")
	}
	if !seen {
		return nil, errors.New("items required")
	}
	return skus, nil
}

func encodeReceipt(e *jx.Encoder, r *checkout.Receipt) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(r.ID)
	e.FieldStart("total")
	e.Str(r.Total.Amount.String())
	e.FieldStart("created_at")
	e.Str(r.CreatedAt.Format(time.RFC3339))
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range r.Lines {
		encodeLine(e, l)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, l pricing.Resolution) {
	e.ObjStart()
	e.FieldStart("sku")
	e.Str(l.SKU)
	e.FieldStart("count")
	e.Int(l.Count)
	e.FieldStart("subtotal")
	e.Str(l.Subtotal.String())
	e.FieldStart("tiers")
	e.ArrStart()
	for _, a := range l.Applications {
		e.ObjStart()
		e.FieldStart("quantity")
		e.Int(a.Rule.Quantity)
		e.FieldStart("price")
		e.Str(a.Rule.Price.Decimal.String())
		e.FieldStart("times")
		e.Int(a.Times)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeRules(e *jx.Encoder, rules []pricing.Rule) {
	e.ArrStart()
	for _, r := range rules {
		e.ObjStart()
		e.FieldStart("sku")
		e.Str(r.SKU)
		e.FieldStart("price")
		e.Str(r.Price.Decimal.String())
		e.FieldStart("quantity")
		e.Int(r.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeError(e *jx.Encoder, code int, message string) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		encodeError(e, status, message)
	})
}
