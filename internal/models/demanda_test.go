package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatusKnown(t *testing.T) {
	for _, s := range []Status{StatusPendente, StatusAprovada, StatusReprovada,
		StatusEmRevisao, StatusFinalizadoPendente} {
		if !s.Known() {
			t.Errorf("%q not recognised", s)
		}
	}
	if Status("outro").Known() {
		t.Error("unknown status accepted")
	}
}

func TestStatusCritica(t *testing.T) {
	if !StatusAprovada.Critica() || !StatusReprovada.Critica() {
		t.Error("aprovada/reprovada must be critical")
	}
	if StatusPendente.Critica() || StatusEmRevisao.Critica() {
		t.Error("pendente/em_revisao must not be critical")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2026, time.March, 15)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2026-03-15"` {
		t.Errorf("marshal = %s", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("round trip: %v != %v", back, d)
	}
}

func TestDateUnmarshalAcceptsRFC3339(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2026-03-15T10:30:00Z"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Format(DateLayout) != "2026-03-15" {
		t.Errorf("date = %v", d)
	}
}

func TestDateValueNilWhenZero(t *testing.T) {
	var d Date
	v, err := d.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != nil {
		t.Errorf("zero date value = %v, want nil", v)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2026-07-01"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if d.Format(DateLayout) != "2026-07-01" {
		t.Errorf("date = %v", d)
	}

	if err := d.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if !d.IsZero() {
		t.Error("nil scan must zero the date")
	}
}

func TestStringListRoundTrip(t *testing.T) {
	list := StringList{"segunda", "quarta", "sexta"}
	v, err := list.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var back StringList
	if err := back.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(back) != 3 || back[2] != "sexta" {
		t.Errorf("round trip = %v", back)
	}
}

func TestInt64ListScanEmpty(t *testing.T) {
	var list Int64List
	if err := list.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if list != nil {
		t.Errorf("nil scan = %v, want nil", list)
	}
}

func TestDemandaTouch(t *testing.T) {
	d := &Demanda{}
	before := d.AtualizadoEm
	d.Touch()
	if !d.AtualizadoEm.After(before) {
		t.Error("Touch must advance atualizado_em")
	}
}

func TestBackupTipoValido(t *testing.T) {
	for _, tipo := range []string{BackupAuto, BackupManual, BackupStatusChange, BackupDelete, BackupShutdown} {
		if !BackupTipoValido(tipo) {
			t.Errorf("%q rejected", tipo)
		}
	}
	if BackupTipoValido("outro") {
		t.Error("unknown kind accepted")
	}
}
