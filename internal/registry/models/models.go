// Package models holds the data returned by a registry lookup.
package models

import "strings"

// EntityReport is the flattened view of one registry entity.
// PKD is never nil so it serializes as [] when no activity codes were found.
type EntityReport struct {
	Podstawowe map[string]string   `json:"podstawowe"`
	PKD        []map[string]string `json:"pkd"`
}

// NewEntityReport returns a report with the given base fields and no PKD entries.
func NewEntityReport(fields map[string]string) *EntityReport {
	if fields == nil {
		fields = map[string]string{}
	}
	return &EntityReport{
		Podstawowe: fields,
		PKD:        []map[string]string{},
	}
}

// Well-known keys in the flattened search result.
const (
	FieldRegon = "Regon"
	FieldType  = "Typ"
)

// Entity type codes returned in the "Typ" search field.
const (
	EntityTypeLegal   = "P" // legal person or organizational unit
	EntityTypeNatural = "F" // natural person running a business
)

// BIR diagnostic parameters readable through GetValue.
const (
	ParamMessageCode   = "KomunikatKod"
	ParamMessageText   = "KomunikatTresc"
	ParamServiceStatus = "StatusUslugi"
)

// NoticeNoEntity is the KomunikatKod of a search that matched nothing.
const NoticeNoEntity = "4"

// ReportName names a BIR full report (pNazwaRaportu).
type ReportName string

const (
	ReportLegalEntity     ReportName = "PublDaneRaportPrawna"
	ReportNaturalActivity ReportName = "PublDaneRaportDzialalnosciFizycznej"
)

// ReportFor selects the full report for an entity type.
// Unknown or missing types fall back to the legal-entity report.
func ReportFor(entityType string) ReportName {
	switch strings.TrimSpace(entityType) {
	case EntityTypeNatural:
		return ReportNaturalActivity
	default:
		return ReportLegalEntity
	}
}

func (r ReportName) String() string { return string(r) }
