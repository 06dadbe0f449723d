package cartapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/packfinderz-cart/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	v.RegisterStructValidation(validateWireLine, wireLine{})
	return v
}

func validateWireLine(sl validator.StructLevel) {
	line := sl.Current().Interface().(wireLine)
	if line.UnitPrice != nil && line.UnitPrice.IsNegative() {
		sl.ReportError(line.UnitPrice, "unitPrice", "UnitPrice", "gte", "0")
	}
}

// flexString accepts JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*f = ""
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// wireLine is a cart line as the server sends it. Required fields are pointers so an
// absent field is distinguishable from a zero value.
type wireLine struct {
	ID          flexString       `json:"id"`
	ProductID   *int64           `json:"productId" validate:"required,gt=0"`
	Quantity    *int             `json:"quantity" validate:"required,gte=1"`
	UnitPrice   *decimal.Decimal `json:"unitPrice" validate:"required"`
	ProductName string           `json:"productName"`
	ImageURL    string           `json:"imageUrl"`
	Available   *bool            `json:"available" validate:"required"`
}

func (w wireLine) toRemote() cart.RemoteLine {
	return cart.RemoteLine{
		ID:          string(w.ID),
		ProductID:   *w.ProductID,
		ProductName: w.ProductName,
		ImageURL:    w.ImageURL,
		Quantity:    *w.Quantity,
		UnitPrice:   *w.UnitPrice,
		Available:   *w.Available,
	}
}

type wireLines struct {
	Lines []wireLine `validate:"dive"`
}

type wireValidation struct {
	Valid            *bool      `json:"valid" validate:"required"`
	UnavailableItems []wireLine `json:"unavailableItems" validate:"dive"`
	Message          string     `json:"message"`
}

type wireCheckoutRequest struct {
	SuccessURL string  `json:"successUrl"`
	CancelURL  string  `json:"cancelUrl"`
	ProductIDs []int64 `json:"productIds,omitempty"`
}

type wireCheckoutSession struct {
	CheckoutURL *string      `json:"checkoutUrl" validate:"required,url"`
	PaymentIDs  []flexString `json:"paymentIds"`
}

type wireErrorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
	Message string `json:"message"`
}

// responseKind classifies a server response before its body is trusted.
type responseKind int

const (
	kindSuccess responseKind = iota
	kindValidation
	kindAuth
	kindNotFound
	kindConflict
	kindServer
)

func classify(status int) responseKind {
	switch {
	case status >= 200 && status < 300:
		return kindSuccess
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return kindAuth
	case status == http.StatusNotFound:
		return kindNotFound
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return kindConflict
	case status >= 400 && status < 500:
		return kindValidation
	default:
		return kindServer
	}
}

func (k responseKind) code() pkgerrors.Code {
	switch k {
	case kindValidation:
		return pkgerrors.CodeValidation
	case kindAuth:
		return pkgerrors.CodeUnauthorized
	case kindNotFound:
		return pkgerrors.CodeNotFound
	case kindConflict:
		return pkgerrors.CodeConflict
	default:
		return pkgerrors.CodeDependency
	}
}

// errorFromResponse turns a non-success response into a typed error carrying the
// server's message when one can be found.
func errorFromResponse(op string, resp response) error {
	kind := classify(resp.status)
	message := fmt.Sprintf("remote %s failed with status %d", op, resp.status)
	var details any
	var body wireErrorBody
	if len(resp.body) > 0 && json.Unmarshal(resp.body, &body) == nil {
		switch {
		case body.Error != nil && body.Error.Message != "":
			message = body.Error.Message
			details = body.Error.Details
		case body.Message != "":
			message = body.Message
		}
	}
	err := pkgerrors.New(kind.code(), message)
	if details != nil {
		err = err.WithDetails(details)
	}
	return err
}

// unwrapData strips a {"data": ...} envelope if the body carries one.
func unwrapData(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	if data, ok := envelope["data"]; ok {
		return data
	}
	return trimmed
}

func schemaError(op string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("remote %s returned an invalid payload", op))
}

func decodeLines(op string, body []byte) ([]cart.RemoteLine, error) {
	payload := bytes.TrimSpace(unwrapData(body))
	var wrapped wireLines
	switch {
	case len(payload) == 0 || bytes.Equal(payload, []byte("null")):
		return nil, schemaError(op, errors.New("empty cart payload"))
	case payload[0] == '{':
		var items struct {
			Items *[]wireLine `json:"items"`
		}
		if err := json.Unmarshal(payload, &items); err != nil {
			return nil, schemaError(op, err)
		}
		if items.Items == nil {
			return nil, schemaError(op, errors.New("cart object has no items"))
		}
		wrapped.Lines = *items.Items
	case payload[0] == '[':
		if err := json.Unmarshal(payload, &wrapped.Lines); err != nil {
			return nil, schemaError(op, err)
		}
	default:
		return nil, schemaError(op, errors.New("cart payload must be an array or object"))
	}
	if err := validate.Struct(wrapped); err != nil {
		return nil, schemaError(op, err)
	}
	out := make([]cart.RemoteLine, 0, len(wrapped.Lines))
	for _, line := range wrapped.Lines {
		out = append(out, line.toRemote())
	}
	return out, nil
}

func decodeLine(op string, body []byte) (cart.RemoteLine, error) {
	var line wireLine
	if err := json.Unmarshal(unwrapData(body), &line); err != nil {
		return cart.RemoteLine{}, schemaError(op, err)
	}
	if err := validate.Struct(line); err != nil {
		return cart.RemoteLine{}, schemaError(op, err)
	}
	return line.toRemote(), nil
}

func decodeValidation(op string, body []byte) (cart.RemoteValidation, error) {
	var v wireValidation
	if err := json.Unmarshal(unwrapData(body), &v); err != nil {
		return cart.RemoteValidation{}, schemaError(op, err)
	}
	if err := validate.Struct(v); err != nil {
		return cart.RemoteValidation{}, schemaError(op, err)
	}
	out := cart.RemoteValidation{Valid: *v.Valid, Message: v.Message}
	for _, line := range v.UnavailableItems {
		out.Unavailable = append(out.Unavailable, line.toRemote())
	}
	return out, nil
}

func decodeSession(op string, body []byte) (cart.CheckoutSession, error) {
	var s wireCheckoutSession
	if err := json.Unmarshal(unwrapData(body), &s); err != nil {
		return cart.CheckoutSession{}, schemaError(op, err)
	}
	if err := validate.Struct(s); err != nil {
		return cart.CheckoutSession{}, schemaError(op, err)
	}
	out := cart.CheckoutSession{CheckoutURL: *s.CheckoutURL}
	for _, id := range s.PaymentIDs {
		out.PaymentIDs = append(out.PaymentIDs, string(id))
	}
	return out, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
