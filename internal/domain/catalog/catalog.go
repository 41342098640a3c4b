// Package catalog declares the hospital resource kinds and their schemas.
package catalog

import (
	"github.com/hulubedeje/hms/internal/platform/schema"
)

const (
	User          = "User"
	Patient       = "Patient"
	Doctor        = "Doctor"
	Appointment   = "Appointment"
	Medicine      = "Medicine"
	Prescription  = "Prescription"
	LabTest       = "LabTest"
	Invoice       = "Invoice"
	Vital         = "Vital"
	BedAssignment = "BedAssignment"
	InventoryItem = "InventoryItem"
	MedicalRecord = "MedicalRecord"
)

var (
	Roles             = []string{"admin", "doctor", "nurse", "pharmacist", "lab", "patient"}
	Genders           = []string{"male", "female", "other"}
	AppointmentStatus = []string{"scheduled", "completed", "cancelled"}
	LabTestStatus     = []string{"requested", "in_progress", "completed"}
	DefaultCountry    = "Ethiopia"
	DefaultThreshold  = int64(5)
)

// MedicineLine is one entry of a prescription's medicines list.
var MedicineLine = schema.New("MedicineLine",
	schema.Str("name").Req(),
	schema.Str("dose").Null(),
	schema.Str("frequency").Null(),
	schema.Int("days").Null().Min0(),
)

// InvoiceItem is one billed line of an invoice.
var InvoiceItem = schema.New("InvoiceItem",
	schema.Str("label").Req(),
	schema.Num("amount").Req(),
)

func emptyStrings() []string { return []string{} }

// Schemas returns fresh schema declarations for all twelve kinds.
func Schemas() []*schema.Schema {
	return []*schema.Schema{
		schema.New(User,
			schema.Mail("email").Req(),
			schema.Str("password_hash").Req(),
			schema.Str("full_name").Req(),
			schema.OneOf("role", Roles...).Req(),
			schema.Str("phone").Null(),
			schema.Bool("is_active").Default(true),
			schema.Bool("verified").Default(false),
		),
		schema.New(Patient,
			schema.Str("user_id").Null(),
			schema.Str("first_name").Req(),
			schema.Str("last_name").Req(),
			schema.OneOf("gender", Genders...).Req(),
			schema.Day("dob").Null(),
			schema.Str("blood_group").Null(),
			schema.Str("address").Null(),
			schema.Str("city").Null(),
			schema.Str("country").Null().Default(DefaultCountry),
			schema.Str("emergency_contact").Null(),
			schema.Strs("medical_history").Null().Default(emptyStrings()),
			schema.Strs("allergies").Null().Default(emptyStrings()),
		),
		schema.New(Doctor,
			schema.Str("user_id").Null(),
			schema.Str("first_name").Req(),
			schema.Str("last_name").Req(),
			schema.Str("specialty").Req(),
			schema.Str("bio").Null(),
			schema.Strs("availability").Null().Default(emptyStrings()),
		),
		schema.New(Appointment,
			schema.Str("patient_id").Req(),
			schema.Str("doctor_id").Req(),
			schema.Day("date").Req(),
			schema.Str("time_slot").Req(),
			schema.OneOf("status", AppointmentStatus...).Default("scheduled"),
			schema.Str("reason").Null(),
		),
		schema.New(Medicine,
			schema.Str("name").Req(),
			schema.Str("sku").Null(),
			schema.Str("description").Null(),
			schema.Int("quantity").Min0().Default(int64(0)),
			schema.Num("price").Default(0.0),
			schema.Day("expires_on").Null(),
		),
		schema.New(Prescription,
			schema.Str("patient_id").Req(),
			schema.Str("doctor_id").Req(),
			schema.List("medicines", MedicineLine).Default([]schema.Record{}),
			schema.Str("notes").Null(),
		),
		schema.New(LabTest,
			schema.Str("patient_id").Req(),
			schema.Str("doctor_id").Req(),
			schema.Str("test_type").Req(),
			schema.OneOf("status", LabTestStatus...).Default("requested"),
			schema.Str("result_url").Null(),
		),
		schema.New(Invoice,
			schema.Str("patient_id").Req(),
			schema.Num("amount").Req(),
			schema.List("items", InvoiceItem).Default([]schema.Record{}),
			schema.Bool("paid").Default(false),
			schema.Str("method").Null(),
		),
		schema.New(Vital,
			schema.Str("patient_id").Req(),
			schema.Num("temperature_c").Null(),
			schema.Int("pulse_bpm").Null(),
			schema.Str("blood_pressure").Null(),
			schema.Int("respiration_rate").Null(),
			schema.Str("notes").Null(),
		),
		schema.New(BedAssignment,
			schema.Str("patient_id").Req(),
			schema.Str("ward").Req(),
			schema.Str("bed_number").Req(),
			schema.Time("assigned_on").Now(),
		),
		schema.New(InventoryItem,
			schema.Str("name").Req(),
			schema.Str("category").Null(),
			schema.Int("quantity").Default(int64(0)),
			schema.Int("threshold").Default(DefaultThreshold),
			schema.Str("location").Null(),
		),
		schema.New(MedicalRecord,
			schema.Str("patient_id").Req(),
			schema.Time("visit_date").Now(),
			schema.Str("complaints").Null(),
			schema.Str("diagnosis").Null(),
			schema.Str("treatment").Null(),
			schema.Strs("documents").Null().Default(emptyStrings()),
		),
	}
}

// NewRegistry returns a registry holding every hospital kind.
func NewRegistry() *schema.Registry {
	reg, err := schema.NewRegistry(Schemas()...)
	if err != nil {
		// Kinds are declared above with distinct names.
		panic(err)
	}
	return reg
}
