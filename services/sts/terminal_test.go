package sts

import (
	"encoding/json"
	"testing"
)

func terminalPayload(t *testing.T, raw string) interface{} {
	t.Helper()
	var payload interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return payload
}

func TestMapAPITerminalInfoUnwrapsSingleElementArray(t *testing.T) {
	payload := terminalPayload(t, `[{
		"id": 12,
		"name": "Терминал 12",
		"state": "OK",
		"devices": [
			{"name": "Фискальный регистратор", "state": "OK"},
			{"name": "Купюроприемник", "state": "error"}
		]
	}]`)

	info := MapAPITerminalInfo(payload)
	if info.TerminalID != "12" {
		t.Errorf("TerminalID = %q, want 12", info.TerminalID)
	}
	if !info.Online {
		t.Error("Online = false, want true for state OK")
	}
	if !info.FiscalRegister.Online || info.FiscalRegister.Status != "ok" {
		t.Errorf("FiscalRegister = %+v, want online/ok", info.FiscalRegister)
	}
	if info.BillAcceptor.Online || info.BillAcceptor.Status != "error" {
		t.Errorf("BillAcceptor = %+v, want offline/error", info.BillAcceptor)
	}
	// Devices absent from the payload stay in the error state
	if info.CardReader.Status != "error" {
		t.Errorf("CardReader.Status = %q, want error when not reported", info.CardReader.Status)
	}
}

func TestMapAPITerminalInfoDeviceNameVariants(t *testing.T) {
	payload := terminalPayload(t, `{
		"id": 1,
		"devices": [
			{"name": "ФР", "state": "1"},
			{"name": "Купюроприёмник", "state": "working"},
			{"name": "Карт-ридер", "state": "ready"},
			{"name": "МПС ридер", "state": "online"}
		]
	}`)

	info := MapAPITerminalInfo(payload)
	for name, status := range map[string]DeviceStatus{
		"fiscal register":    info.FiscalRegister,
		"bill acceptor":      info.BillAcceptor,
		"card reader":        info.CardReader,
		"contactless reader": info.ContactlessReader,
	} {
		if !status.Online || status.Status != "ok" {
			t.Errorf("%s = %+v, want online via alternate display name", name, status)
		}
	}

	// Canonical display names on the way out, regardless of the variant
	if info.FiscalRegister.Name != "Фискальный регистратор" {
		t.Errorf("FiscalRegister.Name = %q", info.FiscalRegister.Name)
	}
	if info.BillAcceptor.Name != "Купюроприемник" {
		t.Errorf("BillAcceptor.Name = %q", info.BillAcceptor.Name)
	}
}

func TestMapAPITerminalInfoStateParameter(t *testing.T) {
	// The named state parameter outranks the top-level fields
	payload := terminalPayload(t, `{
		"id": 1,
		"devices": [{
			"name": "Картридер",
			"state": "error",
			"params": [
				{"name": "Версия", "value": "1.2"},
				{"name": "Состояние", "value": "OK"}
			]
		}]
	}`)

	info := MapAPITerminalInfo(payload)
	if !info.CardReader.Online {
		t.Error("CardReader offline, want the Состояние parameter to win")
	}
}

func TestMapAPITerminalInfoPOSAndShift(t *testing.T) {
	payload := terminalPayload(t, `{
		"id": 1,
		"pos": {
			"name": "Касса 1",
			"state": "active",
			"shift": {"open": "true", "number": "114", "operator": "Иванова"}
		}
	}`)

	info := MapAPITerminalInfo(payload)
	if info.POS.Name != "Касса 1" || !info.POS.Online {
		t.Errorf("POS = %+v", info.POS)
	}
	if !info.POS.Shift.Open || info.POS.Shift.Number != "114" || info.POS.Shift.Operator != "Иванова" {
		t.Errorf("Shift = %+v", info.POS.Shift)
	}
}

func TestMapAPITerminalInfoShiftFallsBackToRoot(t *testing.T) {
	payload := terminalPayload(t, `{
		"id": 1,
		"shift": {"open": "открыта", "number": "7"}
	}`)

	info := MapAPITerminalInfo(payload)
	if !info.POS.Shift.Open || info.POS.Shift.Number != "7" {
		t.Errorf("Shift = %+v, want root-level fallback", info.POS.Shift)
	}
}

func TestMapAPITerminalInfoEmptyPayload(t *testing.T) {
	info := MapAPITerminalInfo(nil)
	if info.TerminalID != EmptyValue {
		t.Errorf("TerminalID = %q, want empty sentinel", info.TerminalID)
	}
	if info.Name != UnknownValue {
		t.Errorf("Name = %q, want unknown sentinel", info.Name)
	}
	for name, status := range map[string]DeviceStatus{
		"fiscal register":    info.FiscalRegister,
		"bill acceptor":      info.BillAcceptor,
		"card reader":        info.CardReader,
		"contactless reader": info.ContactlessReader,
	} {
		if status.Online || status.Status != "error" {
			t.Errorf("%s = %+v, want offline/error defaults", name, status)
		}
	}
}

func TestMapAPITerminalInfoUnknownDeviceIgnored(t *testing.T) {
	payload := terminalPayload(t, `{
		"id": 1,
		"devices": [{"name": "Неизвестное устройство", "state": "OK"}]
	}`)

	info := MapAPITerminalInfo(payload)
	if info.FiscalRegister.Online || info.BillAcceptor.Online ||
		info.CardReader.Online || info.ContactlessReader.Online {
		t.Error("unknown device name mapped onto a known slot")
	}
}
