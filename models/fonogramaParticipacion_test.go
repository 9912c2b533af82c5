package models

import (
	"errors"
	"testing"

	"github.com/javiertrombetta/capif-back-sub001/utils"
	"github.com/shopspring/decimal"
)

func inputParticipacion() *NewFonogramaParticipacion {
	return &NewFonogramaParticipacion{
		FonogramaId:  1,
		ProductoraId: 2,
		Porcentaje:   decimal.NewFromInt(40),
		FechaInicio:  fecha(2024, 1, 1),
		FechaHasta:   fechaPtr(2024, 12, 31),
	}
}

func TestNewFonogramaParticipacion_Validate(t *testing.T) {
	if err := inputParticipacion().Validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	// Open-ended participaciones are valid.
	abierta := inputParticipacion()
	abierta.FechaHasta = nil
	if err := abierta.Validate(); err != nil {
		t.Fatalf("open-ended input rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*NewFonogramaParticipacion)
	}{
		{"zero porcentaje", func(i *NewFonogramaParticipacion) { i.Porcentaje = decimal.Zero }},
		{"negative porcentaje", func(i *NewFonogramaParticipacion) { i.Porcentaje = decimal.NewFromInt(-10) }},
		{"porcentaje above 100", func(i *NewFonogramaParticipacion) { i.Porcentaje = decimal.NewFromInt(101) }},
		{"hasta before inicio", func(i *NewFonogramaParticipacion) { i.FechaHasta = fechaPtr(2023, 1, 1) }},
		{"hasta equal to inicio", func(i *NewFonogramaParticipacion) { i.FechaHasta = fechaPtr(2024, 1, 1) }},
		{"missing fonograma", func(i *NewFonogramaParticipacion) { i.FonogramaId = 0 }},
	}
	for _, tc := range cases {
		input := inputParticipacion()
		tc.mutate(input)
		err := input.Validate()
		var valErr *utils.ValidationError
		if !errors.As(err, &valErr) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestNewFonogramaParticipacion_PorcentajeCienEsValido(t *testing.T) {
	input := inputParticipacion()
	input.Porcentaje = cien
	if err := input.Validate(); err != nil {
		t.Fatalf("100%% share rejected: %v", err)
	}
}

func TestCubrePeriodo(t *testing.T) {
	p := &FonogramaParticipacion{
		FechaInicio: fecha(2024, 1, 1),
		FechaHasta:  fechaPtr(2024, 12, 31),
	}

	if !p.CubrePeriodo(fecha(2024, 3, 1), fecha(2024, 6, 1)) {
		t.Fatal("contained period not covered")
	}
	if p.CubrePeriodo(fecha(2023, 12, 1), fecha(2024, 6, 1)) {
		t.Fatal("period starting before fecha_inicio reported as covered")
	}
	if p.CubrePeriodo(fecha(2024, 6, 1), fecha(2025, 1, 1)) {
		t.Fatal("period extending past fecha_hasta reported as covered")
	}

	abierta := &FonogramaParticipacion{FechaInicio: fecha(2024, 1, 1)}
	if !abierta.CubrePeriodo(fecha(2024, 6, 1), fecha(2030, 1, 1)) {
		t.Fatal("open-ended participación should cover any future period")
	}
}

func TestSolapaPeriodo(t *testing.T) {
	p := &FonogramaParticipacion{
		FechaInicio: fecha(2024, 3, 1),
		FechaHasta:  fechaPtr(2024, 9, 1),
	}

	if !p.SolapaPeriodo(fecha(2024, 1, 1), fecha(2024, 4, 1)) {
		t.Fatal("partial overlap at the start not detected")
	}
	if !p.SolapaPeriodo(fecha(2024, 8, 1), fecha(2024, 12, 1)) {
		t.Fatal("partial overlap at the end not detected")
	}
	if p.SolapaPeriodo(fecha(2024, 10, 1), fecha(2024, 12, 1)) {
		t.Fatal("period entirely after fecha_hasta reported as overlapping")
	}
	if p.SolapaPeriodo(fecha(2024, 1, 1), fecha(2024, 2, 1)) {
		t.Fatal("period entirely before fecha_inicio reported as overlapping")
	}
	// fecha_hasta is exclusive.
	if p.SolapaPeriodo(fecha(2024, 9, 1), fecha(2024, 12, 1)) {
		t.Fatal("period starting exactly at fecha_hasta reported as overlapping")
	}
}
