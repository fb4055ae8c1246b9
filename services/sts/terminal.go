package sts

type deviceCategory int

const (
	categoryFiscalRegister deviceCategory = iota
	categoryBillAcceptor
	categoryCardReader
	categoryContactlessReader
)

// deviceCategories maps the vendor's device display names to logical
// categories. The vendor identifies devices only by display name; keeping
// the lookup in one table means a vendor rename touches one line. A name
// with no entry here simply stays not-found (reported as "error").
var deviceCategories = map[string]deviceCategory{
	"Фискальный регистратор": categoryFiscalRegister,
	"ФР":                     categoryFiscalRegister,
	"Купюроприемник":         categoryBillAcceptor,
	"Купюроприёмник":         categoryBillAcceptor,
	"Картридер":              categoryCardReader,
	"Карт-ридер":             categoryCardReader,
	"МПС-ридер":              categoryContactlessReader,
	"МПС ридер":              categoryContactlessReader,
}

var categoryDisplayNames = map[deviceCategory]string{
	categoryFiscalRegister:    "Фискальный регистратор",
	categoryBillAcceptor:      "Купюроприемник",
	categoryCardReader:        "Картридер",
	categoryContactlessReader: "МПС-ридер",
}

// onlinePositiveValues are the state values treated as "device is up".
// Anything else, including an absent state, reads as "error".
var onlinePositiveValues = map[string]bool{
	"OK":      true,
	"ok":      true,
	"online":  true,
	"active":  true,
	"ready":   true,
	"working": true,
	"normal":  true,
	"1":       true,
}

const stateParamName = "Состояние"

// MapAPITerminalInfo normalizes the terminal-health payload. The vendor
// returns either a single object or a one-element array; nested POS,
// shift, and device blocks are resolved by display name through
// deviceCategories.
func MapAPITerminalInfo(payload interface{}) TerminalInfo {
	obj := unwrapFirst(payload)
	if obj == nil {
		return emptyTerminalInfo(nil)
	}

	info := emptyTerminalInfo(obj)
	info.TerminalID = stringOr(getString(obj, "id", "terminal_id", "number"), EmptyValue)
	info.Name = stringOr(getString(obj, "name", "terminal_name", "title"), UnknownValue)
	info.Online = deviceOnline(obj)

	pos := unwrapFirst(getValue(obj, "pos", "pos_list", "kassa"))
	if pos != nil {
		info.POS = POSStatus{
			Name:   stringOr(getString(pos, "name", "pos_name"), UnknownValue),
			Online: deviceOnline(pos),
			Shift:  mapShift(getValue(pos, "shift", "smena")),
		}
	}
	if info.POS.Shift == (ShiftState{}) {
		info.POS.Shift = mapShift(getValue(obj, "shift", "smena"))
	}

	devices := collectDevices(obj, pos)
	for _, device := range devices {
		name := getString(device, "name", "device_name", "title")
		category, known := deviceCategories[name]
		if !known {
			continue
		}
		status := DeviceStatus{
			Name:   categoryDisplayNames[category],
			Online: deviceOnline(device),
		}
		status.Status = "error"
		if status.Online {
			status.Status = "ok"
		}
		switch category {
		case categoryFiscalRegister:
			info.FiscalRegister = status
		case categoryBillAcceptor:
			info.BillAcceptor = status
		case categoryCardReader:
			info.CardReader = status
		case categoryContactlessReader:
			info.ContactlessReader = status
		}
	}

	return info
}

func emptyTerminalInfo(raw map[string]interface{}) TerminalInfo {
	notFound := func(category deviceCategory) DeviceStatus {
		return DeviceStatus{Name: categoryDisplayNames[category], Online: false, Status: "error"}
	}
	return TerminalInfo{
		TerminalID:        EmptyValue,
		Name:              UnknownValue,
		POS:               POSStatus{Name: UnknownValue},
		FiscalRegister:    notFound(categoryFiscalRegister),
		BillAcceptor:      notFound(categoryBillAcceptor),
		CardReader:        notFound(categoryCardReader),
		ContactlessReader: notFound(categoryContactlessReader),
		APIData:           raw,
	}
}

// unwrapFirst accepts a vendor value that is either an object or a
// one-element array of objects. Returns nil when it is neither.
func unwrapFirst(raw interface{}) map[string]interface{} {
	switch value := raw.(type) {
	case map[string]interface{}:
		return value
	case []interface{}:
		if len(value) > 0 {
			if obj, ok := value[0].(map[string]interface{}); ok {
				return obj
			}
		}
	}
	return nil
}

func collectDevices(objs ...map[string]interface{}) []map[string]interface{} {
	devices := []map[string]interface{}{}
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		items, ok := getValue(obj, "devices", "device_list", "equipment").([]interface{})
		if !ok {
			continue
		}
		for _, item := range items {
			if device, ok := item.(map[string]interface{}); ok {
				devices = append(devices, device)
			}
		}
	}
	return devices
}

// deviceOnline checks the named state parameter first, then several
// alternate top-level fields, against the positive-value synonyms.
func deviceOnline(obj map[string]interface{}) bool {
	if params, ok := getValue(obj, "params", "parameters").([]interface{}); ok {
		for _, item := range params {
			param, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if getString(param, "name", "param_name") != stateParamName {
				continue
			}
			return onlinePositiveValues[SafeString(getValue(param, "value", "param_value"))]
		}
	}

	for _, field := range []string{"state", "status", "online", "condition"} {
		if raw, ok := obj[field]; ok && raw != nil {
			return onlinePositiveValues[SafeString(raw)]
		}
	}

	return false
}

func mapShift(raw interface{}) ShiftState {
	obj := unwrapFirst(raw)
	if obj == nil {
		return ShiftState{}
	}
	openValue := SafeString(getValue(obj, "open", "is_open", "opened", "state"))
	return ShiftState{
		Open:     onlinePositiveValues[openValue] || openValue == "true" || openValue == "открыта",
		Number:   getString(obj, "number", "shift_number"),
		OpenedAt: getString(obj, "opened_at", "open_time", "dt_open"),
		Operator: getString(obj, "operator", "operator_name", "cashier"),
	}
}
