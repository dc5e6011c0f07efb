package typehandler

import (
	"reflect"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gobatis/gobatis/internal/xerrors"
)

// registerDomainHandlers wires the domain-stack scalar types spec.md §4.2
// names explicitly: uuid.UUID, decimal.Decimal, and the civil date/time
// family, each stored as its canonical text form so any SQL driver handles
// it without a vendor-specific extension.
func registerDomainHandlers(r *Registry) {
	r.Register(reflect.TypeOf(uuid.UUID{}), "", uuidHandler{})
	r.Register(reflect.TypeOf(decimal.Decimal{}), "", decimalHandler{})
	r.Register(reflect.TypeOf(civil.Date{}), "", civilDateHandler{})
	r.Register(reflect.TypeOf(civil.DateTime{}), "", civilDateTimeHandler{})
	r.Register(reflect.TypeOf(civil.Time{}), "", civilTimeHandler{})
}

type uuidHandler struct{}

func (uuidHandler) SetParameter(v any) (any, error) {
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil, xerrors.TypeConversion("typehandler: expected uuid.UUID, got %T", v)
	}
	return id.String(), nil
}

func (uuidHandler) GetResult(dest any) (any, error) {
	switch t := dest.(type) {
	case string:
		return uuid.Parse(t)
	case []byte:
		return uuid.ParseBytes(t)
	default:
		return nil, xerrors.TypeConversion("typehandler: cannot parse uuid from %T", dest)
	}
}

type decimalHandler struct{}

func (decimalHandler) SetParameter(v any) (any, error) {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return nil, xerrors.TypeConversion("typehandler: expected decimal.Decimal, got %T", v)
	}
	return d.String(), nil
}

func (decimalHandler) GetResult(dest any) (any, error) {
	switch t := dest.(type) {
	case string:
		return decimal.NewFromString(t)
	case []byte:
		return decimal.NewFromString(string(t))
	case float64:
		return decimal.NewFromFloat(t), nil
	default:
		return nil, xerrors.TypeConversion("typehandler: cannot parse decimal from %T", dest)
	}
}

type civilDateHandler struct{}

func (civilDateHandler) SetParameter(v any) (any, error) {
	d, ok := v.(civil.Date)
	if !ok {
		return nil, xerrors.TypeConversion("typehandler: expected civil.Date, got %T", v)
	}
	return d.String(), nil
}

func (civilDateHandler) GetResult(dest any) (any, error) {
	s, err := asString(dest)
	if err != nil {
		return nil, err
	}
	return civil.ParseDate(s)
}

type civilDateTimeHandler struct{}

func (civilDateTimeHandler) SetParameter(v any) (any, error) {
	d, ok := v.(civil.DateTime)
	if !ok {
		return nil, xerrors.TypeConversion("typehandler: expected civil.DateTime, got %T", v)
	}
	return d.String(), nil
}

func (civilDateTimeHandler) GetResult(dest any) (any, error) {
	s, err := asString(dest)
	if err != nil {
		return nil, err
	}
	return civil.ParseDateTime(s)
}

type civilTimeHandler struct{}

func (civilTimeHandler) SetParameter(v any) (any, error) {
	t, ok := v.(civil.Time)
	if !ok {
		return nil, xerrors.TypeConversion("typehandler: expected civil.Time, got %T", v)
	}
	return t.String(), nil
}

func (civilTimeHandler) GetResult(dest any) (any, error) {
	s, err := asString(dest)
	if err != nil {
		return nil, err
	}
	return civil.ParseTime(s)
}

func asString(dest any) (string, error) {
	switch t := dest.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	default:
		return "", xerrors.TypeConversion("typehandler: cannot read string form of %T", dest)
	}
}
