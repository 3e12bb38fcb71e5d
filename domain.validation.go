package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// bookPayloadFields lists the payload fields in the order violations are reported.
var bookPayloadFields = []string{"title", "author", "description", "rating"}

// Violation describes a single rejected field of a request. Loc is the path
// to the field, starting with the request part (body, path or query).
type Violation struct {
	Loc  []string          `json:"loc"`
	Msg  string            `json:"msg"`
	Type string            `json:"type"`
	Ctx  *ViolationContext `json:"ctx,omitempty"`
}

// ViolationContext holds the limit a field was checked against.
type ViolationContext struct {
	LimitValue int `json:"limit_value"`
}

// BookValidator checks book payloads against the bounds declared on BookPayload.
type BookValidator struct {
	validate *validator.Validate
}

// NewBookValidator returns a validator which names fields after their json tag.
func NewBookValidator() *BookValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &BookValidator{validate: v}
}

// Validate reports every field of the payload which violates its bounds.
// An empty result means the payload is valid.
func (bv *BookValidator) Validate(payload BookPayload) []Violation {
	return bv.collect(payload, nil)
}

// Check decodes a book payload from r then validates it. Fields which could
// not be decoded are reported once, with their type error.
func (bv *BookValidator) Check(r io.Reader) (BookPayload, []Violation) {
	payload, violations := DecodeBookPayload(r)
	for _, v := range violations {
		if len(v.Loc) == 1 {
			return payload, violations
		}
	}
	return payload, bv.collect(payload, violations)
}

func (bv *BookValidator) collect(payload BookPayload, decoded []Violation) []Violation {
	byField := make(map[string]Violation, len(bookPayloadFields))
	for _, v := range decoded {
		byField[v.Loc[len(v.Loc)-1]] = v
	}

	err := bv.validate.Struct(payload)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if _, found := byField[fe.Field()]; found {
				continue
			}
			byField[fe.Field()] = violationFromFieldError(fe)
		}
	}

	var violations []Violation
	for _, name := range bookPayloadFields {
		if v, found := byField[name]; found {
			violations = append(violations, v)
		}
	}
	return violations
}

func violationFromFieldError(fe validator.FieldError) Violation {
	v := Violation{Loc: []string{"body", fe.Field()}}
	if limit, err := strconv.Atoi(fe.Param()); err == nil {
		v.Ctx = &ViolationContext{LimitValue: limit}
	}
	isText := fe.Kind() == reflect.String

	switch {
	case fe.Tag() == "required":
		v.Msg, v.Type = "field required", "value_error.missing"
	case fe.Tag() == "min" && isText:
		v.Msg = fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
		v.Type = "value_error.any_str.min_length"
	case fe.Tag() == "max" && isText:
		v.Msg = fmt.Sprintf("ensure this value has at most %s characters", fe.Param())
		v.Type = "value_error.any_str.max_length"
	case fe.Tag() == "min":
		v.Msg = fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
		v.Type = "value_error.number.not_ge"
	case fe.Tag() == "max":
		v.Msg = fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
		v.Type = "value_error.number.not_le"
	case fe.Tag() == "gt":
		v.Msg = fmt.Sprintf("ensure this value is greater than %s", fe.Param())
		v.Type = "value_error.number.not_gt"
	case fe.Tag() == "lt":
		v.Msg = fmt.Sprintf("ensure this value is less than %s", fe.Param())
		v.Type = "value_error.number.not_lt"
	default:
		v.Msg, v.Type = fe.Error(), "value_error."+fe.Tag()
	}
	return v
}

// DecodeBookPayload reads a json object from r field by field so that every
// field holding a value of the wrong type gets its own violation.
func DecodeBookPayload(r io.Reader) (BookPayload, []Violation) {
	var payload BookPayload
	if r == nil {
		return payload, []Violation{{Loc: []string{"body"}, Msg: "field required", Type: "value_error.missing"}}
	}

	raw := map[string]json.RawMessage{}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return payload, []Violation{{Loc: []string{"body"}, Msg: "field required", Type: "value_error.missing"}}
		case errors.As(err, &typeErr):
			return payload, []Violation{{Loc: []string{"body"}, Msg: "value is not a valid dict", Type: "type_error.dict"}}
		default:
			return payload, []Violation{{Loc: []string{"body"}, Msg: "invalid json body", Type: "value_error.jsondecode"}}
		}
	}
	if raw == nil {
		return payload, []Violation{{Loc: []string{"body"}, Msg: "field required", Type: "value_error.missing"}}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return payload, []Violation{{Loc: []string{"body"}, Msg: "invalid json body", Type: "value_error.jsondecode"}}
	}

	var violations []Violation
	payload.Title = decodeStringField(raw, "title", &violations)
	payload.Author = decodeStringField(raw, "author", &violations)
	payload.Description = decodeStringField(raw, "description", &violations)
	payload.Rating = decodeIntegerField(raw, "rating", &violations)
	return payload, violations
}

func decodeStringField(raw map[string]json.RawMessage, name string, violations *[]Violation) *string {
	value, found := raw[name]
	if !found {
		return nil
	}
	if isJSONNull(value) {
		*violations = append(*violations, noneViolation(name))
		return nil
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		*violations = append(*violations, Violation{Loc: []string{"body", name}, Msg: "str type expected", Type: "type_error.str"})
		return nil
	}
	return &s
}

func decodeIntegerField(raw map[string]json.RawMessage, name string, violations *[]Violation) *int {
	value, found := raw[name]
	if !found {
		return nil
	}
	if isJSONNull(value) {
		*violations = append(*violations, noneViolation(name))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			v := int(i)
			return &v
		}
		// integral floats like 40.0 are accepted. Magnitudes beyond int
		// are clamped so the bounds still report them.
		f, err := strconv.ParseFloat(n.String(), 64)
		if (err == nil || errors.Is(err, strconv.ErrRange)) && f == math.Trunc(f) {
			v := clampToInt(f)
			return &v
		}
	}
	*violations = append(*violations, IntegerViolation("body", name))
	return nil
}

func clampToInt(f float64) int {
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	default:
		return int(f)
	}
}

// IntegerViolation reports a value which is not a valid integer.
func IntegerViolation(part, name string) Violation {
	return Violation{Loc: []string{part, name}, Msg: "value is not a valid integer", Type: "type_error.integer"}
}

func noneViolation(name string) Violation {
	return Violation{Loc: []string{"body", name}, Msg: "none is not an allowed value", Type: "type_error.none.not_allowed"}
}

func isJSONNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
