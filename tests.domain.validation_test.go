package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// TestBookValidator_Validate checks the bounds of each payload field.
func TestBookValidator_Validate(t *testing.T) {
	bv := NewBookValidator()
	long := strings.Repeat("a", 101)

	testCases := []struct {
		name     string
		payload  BookPayload
		expected []Violation
	}{
		{
			"valid payload",
			BookPayload{Title: strPtr("a"), Author: strPtr("b"), Description: strPtr("c"), Rating: intPtr(0)},
			nil,
		},
		{
			"valid payload at upper bounds",
			BookPayload{Title: strPtr(long[:100]), Author: strPtr(long[:100]), Description: strPtr(long[:100]), Rating: intPtr(100)},
			nil,
		},
		{
			"empty author and description are allowed",
			BookPayload{Title: strPtr("t"), Author: strPtr(""), Description: strPtr(""), Rating: intPtr(50)},
			nil,
		},
		{
			"empty title",
			BookPayload{Title: strPtr(""), Author: strPtr("b"), Description: strPtr("c"), Rating: intPtr(1)},
			[]Violation{{
				Loc:  []string{"body", "title"},
				Msg:  "ensure this value has at least 1 characters",
				Type: "value_error.any_str.min_length",
				Ctx:  &ViolationContext{LimitValue: 1},
			}},
		},
		{
			"too long title",
			BookPayload{Title: strPtr(long), Author: strPtr("b"), Description: strPtr("c"), Rating: intPtr(1)},
			[]Violation{{
				Loc:  []string{"body", "title"},
				Msg:  "ensure this value has at most 100 characters",
				Type: "value_error.any_str.max_length",
				Ctx:  &ViolationContext{LimitValue: 100},
			}},
		},
		{
			"negative rating",
			BookPayload{Title: strPtr("a"), Author: strPtr("b"), Description: strPtr("c"), Rating: intPtr(-1)},
			[]Violation{{
				Loc:  []string{"body", "rating"},
				Msg:  "ensure this value is greater than -1",
				Type: "value_error.number.not_gt",
				Ctx:  &ViolationContext{LimitValue: -1},
			}},
		},
		{
			"missing fields",
			BookPayload{},
			[]Violation{
				{Loc: []string{"body", "title"}, Msg: "field required", Type: "value_error.missing"},
				{Loc: []string{"body", "author"}, Msg: "field required", Type: "value_error.missing"},
				{Loc: []string{"body", "description"}, Msg: "field required", Type: "value_error.missing"},
				{Loc: []string{"body", "rating"}, Msg: "field required", Type: "value_error.missing"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, bv.Validate(tc.payload))
		})
	}
}

// TestBookValidator_Check ensures decoding and validation failures are merged in field order.
func TestBookValidator_Check(t *testing.T) {
	bv := NewBookValidator()

	t.Run("three violations", func(t *testing.T) {
		body := `{"title":"a","author":"` + strings.Repeat("b", 101) + `","description":"` + strings.Repeat("c", 101) + `","rating":101}`
		_, violations := bv.Check(strings.NewReader(body))
		require.Len(t, violations, 3)
		assert.Equal(t, []string{"body", "author"}, violations[0].Loc)
		assert.Equal(t, []string{"body", "description"}, violations[1].Loc)
		assert.Equal(t, Violation{
			Loc:  []string{"body", "rating"},
			Msg:  "ensure this value is less than 101",
			Type: "value_error.number.not_lt",
			Ctx:  &ViolationContext{LimitValue: 101},
		}, violations[2])
	})

	t.Run("type errors are reported once", func(t *testing.T) {
		body := `{"title":12,"author":null,"description":"c","rating":"high"}`
		_, violations := bv.Check(strings.NewReader(body))
		assert.Equal(t, []Violation{
			{Loc: []string{"body", "title"}, Msg: "str type expected", Type: "type_error.str"},
			{Loc: []string{"body", "author"}, Msg: "none is not an allowed value", Type: "type_error.none.not_allowed"},
			{Loc: []string{"body", "rating"}, Msg: "value is not a valid integer", Type: "type_error.integer"},
		}, violations)
	})

	t.Run("integral float rating", func(t *testing.T) {
		payload, violations := bv.Check(strings.NewReader(`{"title":"a","author":"b","description":"c","rating":40.0}`))
		assert.Empty(t, violations)
		require.NotNil(t, payload.Rating)
		assert.Equal(t, 40, *payload.Rating)
	})

	t.Run("fractional rating", func(t *testing.T) {
		_, violations := bv.Check(strings.NewReader(`{"title":"a","author":"b","description":"c","rating":4.5}`))
		assert.Equal(t, []Violation{IntegerViolation("body", "rating")}, violations)
	})

	t.Run("large ratings are reported against their bound", func(t *testing.T) {
		ratingViolation := func(tag string, limit int) Violation {
			msg := "ensure this value is less than 101"
			if tag == "not_gt" {
				msg = "ensure this value is greater than -1"
			}
			return Violation{
				Loc:  []string{"body", "rating"},
				Msg:  msg,
				Type: "value_error.number." + tag,
				Ctx:  &ViolationContext{LimitValue: limit},
			}
		}
		testCases := []struct {
			rating   string
			expected Violation
		}{
			{"3000000000", ratingViolation("not_lt", 101)},
			{"-3000000000", ratingViolation("not_gt", -1)},
			{"123456789012345678901234567890", ratingViolation("not_lt", 101)},
			{"-1e30", ratingViolation("not_gt", -1)},
		}
		for _, tc := range testCases {
			body := `{"title":"a","author":"b","description":"c","rating":` + tc.rating + `}`
			_, violations := bv.Check(strings.NewReader(body))
			assert.Equal(t, []Violation{tc.expected}, violations, tc.rating)
		}
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		payload, violations := bv.Check(strings.NewReader(`{"id":9,"title":"a","author":"b","description":"c","rating":1}`))
		assert.Empty(t, violations)
		assert.Equal(t, Book{Title: "a", Author: "b", Description: "c", Rating: 1}, payload.Book())
	})
}

// TestDecodeBookPayload_Body covers failures concerning the whole body.
func TestDecodeBookPayload_Body(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected Violation
	}{
		{"empty body", "", Violation{Loc: []string{"body"}, Msg: "field required", Type: "value_error.missing"}},
		{"array body", "[1,2]", Violation{Loc: []string{"body"}, Msg: "value is not a valid dict", Type: "type_error.dict"}},
		{"malformed body", `{"title":`, Violation{Loc: []string{"body"}, Msg: "invalid json body", Type: "value_error.jsondecode"}},
		{"null body", "null", Violation{Loc: []string{"body"}, Msg: "field required", Type: "value_error.missing"}},
		{"trailing data", `{"title":"a","author":"b","description":"c","rating":1} trailing`, Violation{Loc: []string{"body"}, Msg: "invalid json body", Type: "value_error.jsondecode"}},
		{"two objects", `{"title":"a"}{"title":"b"}`, Violation{Loc: []string{"body"}, Msg: "invalid json body", Type: "value_error.jsondecode"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, violations := DecodeBookPayload(strings.NewReader(tc.body))
			assert.Equal(t, []Violation{tc.expected}, violations)
		})
	}

	t.Run("trailing whitespace", func(t *testing.T) {
		_, violations := DecodeBookPayload(strings.NewReader("{\"title\":\"a\",\"author\":\"b\",\"description\":\"c\",\"rating\":1}\n\t "))
		assert.Empty(t, violations)
	})

	t.Run("nil reader", func(t *testing.T) {
		_, violations := DecodeBookPayload(nil)
		assert.Equal(t, []Violation{{Loc: []string{"body"}, Msg: "field required", Type: "value_error.missing"}}, violations)
	})
}
