package blocks

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
)

// PropertyType describes the editor widget and value shape of a property
type PropertyType string

const (
	PropertyText         PropertyType = "text"
	PropertyTextarea     PropertyType = "textarea"
	PropertyColor        PropertyType = "color"
	PropertySize         PropertyType = "size"
	PropertyURL          PropertyType = "url"
	PropertySelect       PropertyType = "select"
	PropertyBoolean      PropertyType = "boolean"
	PropertyAlignment    PropertyType = "alignment"
	PropertySizeWithUnit PropertyType = "sizeWithUnit"
	PropertyNumber       PropertyType = "number"
	PropertyList         PropertyType = "list"
	PropertyNetworks     PropertyType = "networks"
)

const (
	CategoryContent = "content"
	CategoryStyle   = "style"
	CategoryLayout  = "layout"
)

// ValidationFunc returns nil when the value passes, or an error carrying
// a human readable reason
type ValidationFunc func(value interface{}) error

// TransformFunc normalizes a raw edited value before it is stored
type TransformFunc func(value interface{}) interface{}

type PropertyOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PropertyConfig describes one editable facet of a block type
type PropertyConfig struct {
	Key          string           `json:"key"`
	Type         PropertyType     `json:"type"`
	Label        string           `json:"label"`
	Category     string           `json:"category"`
	DefaultValue interface{}      `json:"defaultValue,omitempty"`
	Options      []PropertyOption `json:"options,omitempty"`
	Required     bool             `json:"required,omitempty"`
	Validation   ValidationFunc   `json:"-"`
	Transform    TransformFunc    `json:"-"`
}

// Validate checks a candidate value against the property's rules
func (p PropertyConfig) Validate(value interface{}) error {
	if isEmptyValue(value) {
		if p.Required {
			return fmt.Errorf("%s is required", p.Label)
		}
		return nil
	}
	if p.Validation == nil {
		return nil
	}
	return p.Validation(value)
}

// Normalize applies the property's transform, if any
func (p PropertyConfig) Normalize(value interface{}) interface{} {
	if p.Transform == nil {
		return value
	}
	return p.Transform(value)
}

func isEmptyValue(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

var cssUnitPattern = regexp.MustCompile(`^\d+(%|px|rem|em)$`)

// ValidateCSSUnit accepts an integer followed by %, px, rem or em
func ValidateCSSUnit(value interface{}) error {
	s, ok := value.(string)
	if !ok || !cssUnitPattern.MatchString(s) {
		return errors.New("must be a number followed by px, %, rem or em")
	}
	return nil
}

// OneOf builds an enumeration membership rule
func OneOf(allowed ...string) ValidationFunc {
	return func(value interface{}) error {
		s, ok := value.(string)
		if ok {
			for _, candidate := range allowed {
				if s == candidate {
					return nil
				}
			}
		}
		return fmt.Errorf("must be one of: %s", strings.Join(allowed, ", "))
	}
}

// ValidateURL accepts absolute URLs, root relative paths and anchors.
// Values carrying Liquid merge tags are accepted as is.
func ValidateURL(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return errors.New("must be a valid URL")
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "#") {
		return nil
	}
	if strings.Contains(s, "{{") || strings.Contains(s, "{%") {
		return nil
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return errors.New("must be a valid URL")
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		if !govalidator.IsRequestURL(s) {
			return errors.New("must be a valid URL")
		}
		return nil
	}
	if u.Host == "" && u.Opaque == "" {
		return errors.New("must be a valid URL")
	}
	return nil
}

// ValidateNonEmptyArray requires a list with at least one element
func ValidateNonEmptyArray(value interface{}) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return errors.New("must be a list")
	}
	if rv.Len() == 0 {
		return errors.New("must contain at least one item")
	}
	return nil
}

// ValidateListItems requires a non empty list of strings
func ValidateListItems(value interface{}) error {
	if err := ValidateNonEmptyArray(value); err != nil {
		return err
	}
	if _, ok := value.([]string); ok {
		return nil
	}
	items, ok := value.([]interface{})
	if !ok {
		return errors.New("must be a list of text items")
	}
	for i, item := range items {
		if _, isString := item.(string); !isString {
			return fmt.Errorf("item %d must be text", i+1)
		}
	}
	return nil
}

var namedColorPattern = regexp.MustCompile(`^[a-zA-Z]+$`)

// ValidateColor accepts hex, rgb(a) and named colors
func ValidateColor(value interface{}) error {
	s, ok := value.(string)
	if ok {
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "#") && govalidator.IsHexcolor(s) {
			return nil
		}
		if govalidator.IsRGBcolor(s) || strings.HasPrefix(s, "rgba(") || namedColorPattern.MatchString(s) {
			return nil
		}
	}
	return errors.New("must be a hex, rgb or named color")
}

// ValidateNetworks requires a non empty list of {platform, url} entries
func ValidateNetworks(value interface{}) error {
	if err := ValidateNonEmptyArray(value); err != nil {
		return err
	}

	var networks []SocialNetwork
	if err := decodeProps(value, &networks); err != nil {
		return errors.New("must be a list of networks")
	}
	for i, n := range networks {
		if n.Platform == "" {
			return fmt.Errorf("network %d is missing a platform", i+1)
		}
		if err := ValidateURL(string(n.URL)); err != nil {
			return fmt.Errorf("network %d: %v", i+1, err)
		}
	}
	return nil
}

var listSeparator = regexp.MustCompile(`[\n,]`)

// TransformListItems turns newline or comma separated text into a list of
// trimmed, non empty items. Lists are returned as []string with their
// elements untouched.
func TransformListItems(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		items := []string{}
		for _, segment := range listSeparator.Split(v, -1) {
			if segment = strings.TrimSpace(segment); segment != "" {
				items = append(items, segment)
			}
		}
		return items
	case []string:
		return v
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return value
			}
			items = append(items, s)
		}
		return items
	}
	return value
}

// TransformSizeWithUnit collapses a {value, unit} pair into a CSS length
func TransformSizeWithUnit(value interface{}) interface{} {
	m, ok := value.(map[string]interface{})
	if !ok {
		if p, isProps := value.(Props); isProps {
			m = p
		} else {
			return value
		}
	}

	unit, _ := m["unit"].(string)
	if unit == "" {
		unit = "px"
	}
	switch n := m["value"].(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64) + unit
	case int:
		return strconv.Itoa(n) + unit
	case string:
		if n == "" {
			return value
		}
		return n + unit
	}
	return value
}
