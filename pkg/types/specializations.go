package types

import "strings"

// Specializations lists the medical specializations accepted when the
// owner registers a doctor.
var Specializations = []string{
	"cardiology",
	"neurology",
	"pediatrics",
	"orthopedics",
	"dermatology",
	"oncology",
	"gynecology",
	"psychiatry",
	"endocrinology",
	"gastroenterology",
}

// IsValidSpecialization reports whether the value is in the catalogue.
// Matching ignores case; the ledger stores whatever casing the owner
// submitted.
func IsValidSpecialization(value string) bool {
	for _, s := range Specializations {
		if strings.EqualFold(s, value) {
			return true
		}
	}
	return false
}
