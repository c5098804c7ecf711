// Package catalog decodes the diagnostics product list returned by the backend and
// flattens its three collections (packages, test profiles, tests) into one ordered,
// immutable list of Items.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultReportGenerationHours is used when an entry omits report_generation_hr.
const DefaultReportGenerationHours = "72 hours"

// Kind identifies which backend collection an item came from.
type Kind int

const (
	KindPackage Kind = iota + 1
	KindTestProfile
	KindTest
)

func (k Kind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindTestProfile:
		return "test_profile"
	case KindTest:
		return "test"
	default:
		return "unknown"
	}
}

// Content is the nested marketing/medical copy attached to an item.
type Content struct {
	Highlights              []string `json:"highlights"`
	WhyTest                 string   `json:"why_test"`
	WhatMeasuredDescription string   `json:"what_measured_description"`
	Who                     []string `json:"who"`
	WhatToExpectDescription string   `json:"what_to_expect_description"`
	Preparation             string   `json:"preparation"`
	FastingInfo             string   `json:"fasting_info"`
	WhenToTake              string   `json:"when_to_take"`
}

// Product holds commerce identifiers for an item.
type Product struct {
	Price           FlexString `json:"price"`
	ProductID       FlexString `json:"product_id"`
	VendorProductID string     `json:"vendor_product_id"`
}

// Item is one sellable package, test profile or test, normalized across the
// three backend shapes. Items are built by Flatten and never mutated afterwards.
type Item struct {
	Code                  string
	Name                  string
	Kind                  Kind
	Description           string
	Price                 string
	SampleType            string
	IsFastingRequired     bool
	ReportGenerationHours string
	Content               Content
	Product               Product
}

// Highlight returns highlights[i] and whether it holds non-blank text.
func (it Item) Highlight(i int) (string, bool) {
	if i < 0 || i >= len(it.Content.Highlights) {
		return "", false
	}
	h := strings.TrimSpace(it.Content.Highlights[i])
	return h, h != ""
}

// VendorProductID is a convenience accessor for Product.VendorProductID.
func (it Item) VendorProductID() string {
	return it.Product.VendorProductID
}

// Response is the top-level JSON document served by the catalog endpoint.
type Response struct {
	Data struct {
		DiagnosticProductList *ProductList `json:"diagnostic_product_list"`
	} `json:"data"`
}

// ProductList groups the three backend collections. Any of them may be absent.
type ProductList struct {
	Packages     []Package     `json:"packages"`
	TestProfiles []TestProfile `json:"test_profiles"`
	Tests        []Test        `json:"tests"`
}

// Entry is the accessor surface shared by Package, TestProfile and Test.
type Entry interface {
	Kind() Kind
	Fields() *EntryFields
}

// EntryFields are the attributes common to every backend shape.
type EntryFields struct {
	Code               *string    `json:"code"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	SampleType         string     `json:"sample_type"`
	Price              FlexString `json:"price"`
	IsFastingRequired  bool       `json:"is_fasting_required"`
	ReportGenerationHr FlexString `json:"report_generation_hr"`
	Product            Product    `json:"product"`
	Content            Content    `json:"content"`
}

// Package is a bundle of tests sold together.
type Package struct {
	EntryFields
	IncludedTests []IncludedTest `json:"tests"`
}

// IncludedTest names one test bundled in a package.
type IncludedTest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (p *Package) Kind() Kind            { return KindPackage }
func (p *Package) Fields() *EntryFields { return &p.EntryFields }

// TestProfile is a panel of related parameters.
type TestProfile struct {
	EntryFields
	ParameterCount int `json:"parameter_count"`
}

func (p *TestProfile) Kind() Kind            { return KindTestProfile }
func (p *TestProfile) Fields() *EntryFields { return &p.EntryFields }

// Test is a single standalone test.
type Test struct {
	EntryFields
}

func (t *Test) Kind() Kind            { return KindTest }
func (t *Test) Fields() *EntryFields { return &t.EntryFields }

// FlexString accepts either a JSON string or a JSON number and keeps its text form.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("catalog: expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// reportHours turns the raw report_generation_hr value into display text.
// A bare number of hours gains the "hours" unit.
func reportHours(raw FlexString) string {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return DefaultReportGenerationHours
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64) + " hours"
	}
	return s
}
