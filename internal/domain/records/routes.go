package records

import (
	"github.com/hulubedeje/hms/internal/domain/catalog"
	"github.com/hulubedeje/hms/pkg/pagination"
)

// Route exposes one resource kind as a collection endpoint.
type Route struct {
	Path    string
	Kind    string
	Limit   int
	Filters []string
}

// Routes returns the collection endpoints served by the API.
func Routes() []Route {
	return []Route{
		{Path: "/patients", Kind: catalog.Patient, Limit: pagination.DefaultLimit, Filters: []string{"user_id", "gender"}},
		{Path: "/doctors", Kind: catalog.Doctor, Limit: pagination.DefaultLimit, Filters: []string{"user_id", "specialty"}},
		{Path: "/appointments", Kind: catalog.Appointment, Limit: pagination.DefaultLimit, Filters: []string{"patient_id", "doctor_id", "status"}},
		{Path: "/pharmacy/medicines", Kind: catalog.Medicine, Limit: pagination.LargeLimit, Filters: []string{"name", "sku"}},
		{Path: "/pharmacy/prescriptions", Kind: catalog.Prescription, Limit: pagination.DefaultLimit, Filters: []string{"patient_id", "doctor_id"}},
		{Path: "/lab/tests", Kind: catalog.LabTest, Limit: pagination.DefaultLimit, Filters: []string{"patient_id", "doctor_id", "status"}},
		{Path: "/billing/invoices", Kind: catalog.Invoice, Limit: pagination.DefaultLimit, Filters: []string{"patient_id"}},
		{Path: "/nursing/vitals", Kind: catalog.Vital, Limit: pagination.LargeLimit, Filters: []string{"patient_id"}},
		{Path: "/nursing/bed-assignments", Kind: catalog.BedAssignment, Limit: pagination.LargeLimit, Filters: []string{"patient_id", "ward"}},
		{Path: "/inventory/items", Kind: catalog.InventoryItem, Limit: pagination.LargeLimit, Filters: []string{"name", "category"}},
		{Path: "/ehr/records", Kind: catalog.MedicalRecord, Limit: pagination.LargeLimit, Filters: []string{"patient_id"}},
	}
}
