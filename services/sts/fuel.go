package sts

import "strings"

// fuelCodeNames is the vendor's service-code dictionary.
var fuelCodeNames = map[string]string{
	"1": "АИ-100",
	"2": "АИ-92",
	"3": "АИ-95",
	"4": "АИ-98",
	"5": "ДТ",
	"6": "ДТ зим.",
	"7": "СУГ",
}

// fuelAliases maps common free-text spellings to the dictionary names.
// Keys are lowercased before lookup.
var fuelAliases = map[string]string{
	"ai100":   "АИ-100",
	"ai-100":  "АИ-100",
	"аи100":   "АИ-100",
	"ai92":    "АИ-92",
	"ai-92":   "АИ-92",
	"аи92":    "АИ-92",
	"ai95":    "АИ-95",
	"ai-95":   "АИ-95",
	"аи95":    "АИ-95",
	"ai98":    "АИ-98",
	"ai-98":   "АИ-98",
	"аи98":    "АИ-98",
	"diesel":  "ДТ",
	"dt":      "ДТ",
	"дт":      "ДТ",
	"дизель":  "ДТ",
	"diesel_winter": "ДТ зим.",
	"lpg":     "СУГ",
	"суг":     "СУГ",
	"газ":     "СУГ",
	"propane": "СУГ",
}

// entityFuelFields is the ordered candidate list for the fuel identifier
// in tank, pump, sale and transaction payloads. "name" is excluded: on
// these records it is the entity's own display name, not a fuel.
var entityFuelFields = []string{
	"fuel_code",
	"service_code",
	"service",
	"fuel_type",
	"fuelType",
	"fuel",
	"fuel_name",
}

// priceFuelFields additionally accepts "name": on price records the
// vendor puts the fuel name there.
var priceFuelFields = []string{
	"fuel_code",
	"service_code",
	"service",
	"fuel_type",
	"fuelType",
	"fuel",
	"fuel_name",
	"name",
}

// ResolveFuelType resolves the fuel designation of a price record into a
// display name. The first non-empty candidate field wins; it is looked up
// as a service code, then as an alias; an unrecognized non-empty value is
// returned verbatim; nothing at all resolves to the unknown sentinel.
func ResolveFuelType(obj map[string]interface{}) string {
	return ResolveFuelName(getString(obj, priceFuelFields...))
}

// ResolveEntityFuelType is ResolveFuelType for tank, pump, sale and
// transaction records, where "name" must not be read as a fuel.
func ResolveEntityFuelType(obj map[string]interface{}) string {
	return ResolveFuelName(getString(obj, entityFuelFields...))
}

// ResolveFuelName resolves a single raw fuel designation string.
func ResolveFuelName(candidate string) string {
	if candidate == "" {
		return UnknownValue
	}
	if name, ok := fuelCodeNames[candidate]; ok {
		return name
	}
	if name, ok := fuelAliases[strings.ToLower(candidate)]; ok {
		return name
	}
	return candidate
}
