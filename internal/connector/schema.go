// Package connector declares the Camping Care resources, their operations and
// the parameters each operation accepts, and executes operations from plain
// parameter maps.
package connector

import (
	"sort"

	"campingcare/internal/domain"
)

type FieldType string

const (
	TypeString     FieldType = "string"
	TypeNumber     FieldType = "number"
	TypeBoolean    FieldType = "boolean"
	TypeOptions    FieldType = "options"
	TypeMulti      FieldType = "multi"      // list of strings
	TypeCollection FieldType = "collection" // structured JSON, decoded by the operation
)

// Location says where a resolved field ends up in the outbound request.
type Location string

const (
	InPath  Location = "path"
	InQuery Location = "query"
	InBody  Location = "body"
	InNone  Location = "" // consumed by the operation handler
)

// Field is one parameter. It applies to the operations listed in Show and,
// when When is set, only while every named parameter holds one of the listed
// values.
type Field struct {
	Name        string              `json:"name"`
	DisplayName string              `json:"displayName"`
	Type        FieldType           `json:"type"`
	In          Location            `json:"in,omitempty"`
	Required    bool                `json:"required,omitempty"`
	Default     any                 `json:"default,omitempty"`
	Min         *float64            `json:"min,omitempty"`
	Max         *float64            `json:"max,omitempty"`
	Options     []domain.Option     `json:"options,omitempty"`
	Loader      string              `json:"loadOptions,omitempty"`
	Description string              `json:"description,omitempty"`
	Show        []string            `json:"show"`
	When        map[string][]string `json:"when,omitempty"`
}

// Operation maps to one HTTP call unless Handler names a custom routine.
type Operation struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	Method      string `json:"method,omitempty"`
	Path        string `json:"path,omitempty"`
	Handler     string `json:"-"`
}

type Resource struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"displayName"`
	Operations  []Operation `json:"operations"`
	Fields      []Field     `json:"fields"`
}

type Catalog struct {
	Resources []Resource `json:"resources"`
}

func (c *Catalog) Resource(name string) (*Resource, bool) {
	for i := range c.Resources {
		if c.Resources[i].Name == name {
			return &c.Resources[i], true
		}
	}
	return nil, false
}

func (r *Resource) Operation(name string) (*Operation, bool) {
	for i := range r.Operations {
		if r.Operations[i].Name == name {
			return &r.Operations[i], true
		}
	}
	return nil, false
}

// FieldsFor returns the fields that apply to op given the parameters set so
// far, in declaration order.
func (r *Resource) FieldsFor(op string, params map[string]any) []Field {
	var out []Field
	for _, f := range r.Fields {
		if f.shownFor(op, params) {
			out = append(out, f)
		}
	}
	return out
}

func (f Field) shownFor(op string, params map[string]any) bool {
	if !contains(f.Show, op) {
		return false
	}
	for key, allowed := range f.When {
		v, _ := params[key].(string)
		if !contains(allowed, v) {
			return false
		}
	}
	return true
}

// Operations lists "resource.operation" pairs, sorted.
func (c *Catalog) Operations() []string {
	var out []string
	for _, r := range c.Resources {
		for _, op := range r.Operations {
			out = append(out, r.Name+"."+op.Name)
		}
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func num(f float64) *float64 { return &f }
